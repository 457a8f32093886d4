package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

// UserService handles account lifecycle and profile reads.
type UserService struct {
	repo       repository.UserRepository
	followRepo repository.FollowRepository
}

func NewUserService(repo repository.UserRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{
		repo:       repo,
		followRepo: followRepo,
	}
}

// Register creates a new account. Email and username must be unused and the
// password confirmation must match.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		return nil, model.ErrMissingFields
	}
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("username is required")
	}
	if req.Password != req.ConfirmPassword {
		return nil, model.ErrPasswordMismatch
	}
	if (req.AvatarURL == nil) != (req.AvatarKey == nil) {
		return nil, fmt.Errorf("avatar_url and avatar_key must both be provided or both omitted")
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	exists, err = s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHashed: string(hashedPassword),
		AvatarURL:      req.AvatarURL,
		AvatarKey:      req.AvatarKey,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login authenticates by email and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		// Same error whether the account exists or the password is wrong.
		return nil, model.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password))
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile returns a profile with the viewer's relationship resolved:
// following, requested, or none. Two queries; a failed relationship lookup
// degrades to "none" instead of failing the profile.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &model.ProfileResponse{
		User:         user,
		FollowStatus: model.FollowStatusNone,
	}

	if viewerID != nil && *viewerID != userID {
		if following, err := s.followRepo.Exists(ctx, *viewerID, userID); err == nil && following {
			profile.FollowStatus = model.FollowStatusFollowing
		} else if requested, err := s.followRepo.RequestExists(ctx, *viewerID, userID); err == nil && requested {
			profile.FollowStatus = model.FollowStatusRequested
		}
	}

	return profile, nil
}

// Search finds users by username prefix. Follow flags are resolved in one
// batch query to avoid N+1 lookups.
func (s *UserService) Search(ctx context.Context, query string, limit int, viewerID *int64) ([]model.UserSummary, error) {
	users, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && len(users) > 0 {
		userIDs := make([]int64, len(users))
		for i, user := range users {
			userIDs[i] = user.ID
		}

		followMap, err := s.followRepo.CheckFollows(ctx, *viewerID, userIDs)
		if err == nil {
			for i := range users {
				users[i].IsFollowing = followMap[users[i].ID]
			}
		}
	}

	return users, nil
}

// UpdateProfile applies bio and privacy changes. Flipping an account public
// leaves pending requests in place; they still need an explicit accept.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	if err := s.repo.UpdateProfile(ctx, userID, req.Bio, req.IsPrivate); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

// UpdateAvatar swaps the stored avatar reference and returns the previous
// object key so the caller can delete the old upload.
func (s *UserService) UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) (*model.User, *string, error) {
	oldKey, err := s.repo.UpdateAvatar(ctx, userID, avatarURL, avatarKey)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, oldKey, nil
}

// Delete soft-deletes the account.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	return s.repo.Delete(ctx, userID)
}

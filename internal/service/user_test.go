package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

// ===== MOCK REPOSITORIES =====

type createUserCall struct {
	username string
	email    string
}

// mockUserRepository implements repository.UserRepository with overridable
// function fields. Unset fields fall back to empty-state defaults.
type mockUserRepository struct {
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id int64) (*model.User, error)
	getByEmailFn       func(ctx context.Context, email string) (*model.User, error)
	getByUsernameFn    func(ctx context.Context, username string) (*model.User, error)
	existsByUsernameFn func(ctx context.Context, username string) (bool, error)
	existsByEmailFn    func(ctx context.Context, email string) (bool, error)
	searchFn           func(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	updateProfileFn    func(ctx context.Context, userID int64, bio *string, isPrivate *bool) error
	updateAvatarFn     func(ctx context.Context, userID int64, avatarURL, avatarKey string) (*string, error)
	deleteFn           func(ctx context.Context, userID int64) error
	recordGymVisitFn   func(ctx context.Context, userID int64, now time.Time) (int, time.Time, bool, error)

	incrementFollowerCountFn  func(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	incrementFollowingCountFn func(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error

	createCalls []createUserCall
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, createUserCall{username: user.Username, email: user.Email})
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if m.existsByUsernameFn != nil {
		return m.existsByUsernameFn(ctx, username)
	}
	return false, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.existsByEmailFn != nil {
		return m.existsByEmailFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, userID int64, bio *string, isPrivate *bool) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, bio, isPrivate)
	}
	return nil
}

func (m *mockUserRepository) UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) (*string, error) {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(ctx, userID, avatarURL, avatarKey)
	}
	return nil, nil
}

func (m *mockUserRepository) Delete(ctx context.Context, userID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return nil
}

func (m *mockUserRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	if m.incrementFollowerCountFn != nil {
		return m.incrementFollowerCountFn(ctx, tx, userID, delta)
	}
	return nil
}

func (m *mockUserRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	if m.incrementFollowingCountFn != nil {
		return m.incrementFollowingCountFn(ctx, tx, userID, delta)
	}
	return nil
}

func (m *mockUserRepository) RecordGymVisit(ctx context.Context, userID int64, now time.Time) (int, time.Time, bool, error) {
	if m.recordGymVisitFn != nil {
		return m.recordGymVisitFn(ctx, userID, now)
	}
	return 0, time.Time{}, false, model.ErrUserNotFound
}

// mockFollowRepository implements repository.FollowRepository. Defaults
// describe an empty follow graph.
type mockFollowRepository struct {
	createFn          func(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	deleteFn          func(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	existsFn          func(ctx context.Context, followerID, followeeID int64) (bool, error)
	getFollowersFn    func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	getFollowingFn    func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	checkFollowsFn    func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	getFollowerIDsFn  func(ctx context.Context, userID int64) ([]int64, error)
	getFolloweeIDsFn  func(ctx context.Context, userID int64) ([]int64, error)
	createRequestFn   func(ctx context.Context, requesterID, receiverID int64) (bool, error)
	deleteRequestFn   func(ctx context.Context, tx *sqlx.Tx, requesterID, receiverID int64) (bool, error)
	requestExistsFn   func(ctx context.Context, requesterID, receiverID int64) (bool, error)
	getRequestersFn   func(ctx context.Context, receiverID int64) ([]model.UserSummary, error)
}

func (m *mockFollowRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	if m.createFn != nil {
		return m.createFn(ctx, tx, followerID, followeeID)
	}
	return true, nil
}

func (m *mockFollowRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, tx, followerID, followeeID)
	}
	return model.ErrNotFollowing
}

func (m *mockFollowRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, followerID, followeeID)
	}
	return false, nil
}

func (m *mockFollowRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	if m.getFollowersFn != nil {
		return m.getFollowersFn(ctx, userID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockFollowRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	if m.getFollowingFn != nil {
		return m.getFollowingFn(ctx, userID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockFollowRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if m.checkFollowsFn != nil {
		return m.checkFollowsFn(ctx, followerID, followeeIDs)
	}
	result := make(map[int64]bool)
	for _, id := range followeeIDs {
		result[id] = false
	}
	return result, nil
}

func (m *mockFollowRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.getFollowerIDsFn != nil {
		return m.getFollowerIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockFollowRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.getFolloweeIDsFn != nil {
		return m.getFolloweeIDsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockFollowRepository) CreateRequest(ctx context.Context, requesterID, receiverID int64) (bool, error) {
	if m.createRequestFn != nil {
		return m.createRequestFn(ctx, requesterID, receiverID)
	}
	return true, nil
}

func (m *mockFollowRepository) DeleteRequest(ctx context.Context, tx *sqlx.Tx, requesterID, receiverID int64) (bool, error) {
	if m.deleteRequestFn != nil {
		return m.deleteRequestFn(ctx, tx, requesterID, receiverID)
	}
	return false, nil
}

func (m *mockFollowRepository) RequestExists(ctx context.Context, requesterID, receiverID int64) (bool, error) {
	if m.requestExistsFn != nil {
		return m.requestExistsFn(ctx, requesterID, receiverID)
	}
	return false, nil
}

func (m *mockFollowRepository) GetRequesters(ctx context.Context, receiverID int64) ([]model.UserSummary, error) {
	if m.getRequestersFn != nil {
		return m.getRequestersFn(ctx, receiverID)
	}
	return nil, nil
}

// ===== REGISTER TESTS =====

func TestUserService_Register_Success(t *testing.T) {
	// ARRANGE
	repo := &mockUserRepository{}
	svc := NewUserService(repo, &mockFollowRepository{})

	req := &model.RegisterRequest{
		Username:        "lifter",
		Email:           "Lifter@Example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	}

	// ACT
	user, err := svc.Register(context.Background(), req)

	// ASSERT
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Username != "lifter" {
		t.Errorf("username = %q, want %q", user.Username, "lifter")
	}
	if user.Email != "lifter@example.com" {
		t.Errorf("email = %q, want lowercased %q", user.Email, "lifter@example.com")
	}
	if user.PasswordHashed == "hunter22" {
		t.Error("password was stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte("hunter22")); err != nil {
		t.Errorf("stored hash does not verify against the password: %v", err)
	}
	if len(repo.createCalls) != 1 {
		t.Fatalf("Create called %d times, want 1", len(repo.createCalls))
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	tests := []struct {
		name           string
		req            *model.RegisterRequest
		usernameExists bool
		emailExists    bool
		wantErr        error
	}{
		{
			name:    "missing email",
			req:     &model.RegisterRequest{Username: "a", Password: "pw", ConfirmPassword: "pw"},
			wantErr: model.ErrMissingFields,
		},
		{
			name:    "missing password",
			req:     &model.RegisterRequest{Username: "a", Email: "a@b.com"},
			wantErr: model.ErrMissingFields,
		},
		{
			name:    "password mismatch",
			req:     &model.RegisterRequest{Username: "a", Email: "a@b.com", Password: "pw1", ConfirmPassword: "pw2"},
			wantErr: model.ErrPasswordMismatch,
		},
		{
			name:           "username taken",
			req:            &model.RegisterRequest{Username: "taken", Email: "a@b.com", Password: "pw", ConfirmPassword: "pw"},
			usernameExists: true,
			wantErr:        model.ErrUsernameExists,
		},
		{
			name:        "email taken",
			req:         &model.RegisterRequest{Username: "fresh", Email: "used@b.com", Password: "pw", ConfirmPassword: "pw"},
			emailExists: true,
			wantErr:     model.ErrEmailExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepository{
				existsByUsernameFn: func(ctx context.Context, username string) (bool, error) {
					return tt.usernameExists, nil
				},
				existsByEmailFn: func(ctx context.Context, email string) (bool, error) {
					return tt.emailExists, nil
				},
			}
			svc := NewUserService(repo, &mockFollowRepository{})

			_, err := svc.Register(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register error = %v, want %v", err, tt.wantErr)
			}
			if len(repo.createCalls) != 0 {
				t.Errorf("Create was called despite validation failure")
			}
		})
	}
}

// ===== LOGIN TESTS =====

func TestUserService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	stored := &model.User{ID: 7, Username: "lifter", Email: "lifter@example.com", PasswordHashed: string(hash)}

	tests := []struct {
		name       string
		req        *model.LoginRequest
		getByEmail func(ctx context.Context, email string) (*model.User, error)
		wantErr    error
		wantUser   bool
	}{
		{
			name: "success",
			req:  &model.LoginRequest{Email: "lifter@example.com", Password: "correct-pw"},
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return stored, nil
			},
			wantUser: true,
		},
		{
			name: "email is case-insensitive",
			req:  &model.LoginRequest{Email: "  LIFTER@Example.COM ", Password: "correct-pw"},
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				if email != "lifter@example.com" {
					return nil, model.ErrUserNotFound
				}
				return stored, nil
			},
			wantUser: true,
		},
		{
			name: "wrong password",
			req:  &model.LoginRequest{Email: "lifter@example.com", Password: "wrong"},
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return stored, nil
			},
			wantErr: model.ErrInvalidCredentials,
		},
		{
			name: "unknown email",
			req:  &model.LoginRequest{Email: "ghost@example.com", Password: "correct-pw"},
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
			wantErr: model.ErrInvalidCredentials,
		},
		{
			name: "repository error maps to invalid credentials",
			req:  &model.LoginRequest{Email: "lifter@example.com", Password: "correct-pw"},
			getByEmail: func(ctx context.Context, email string) (*model.User, error) {
				return nil, errors.New("connection refused")
			},
			wantErr: model.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepository{getByEmailFn: tt.getByEmail}
			svc := NewUserService(repo, &mockFollowRepository{})

			user, err := svc.Login(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Login error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login returned error: %v", err)
			}
			if tt.wantUser && user.ID != stored.ID {
				t.Errorf("Login returned user %d, want %d", user.ID, stored.ID)
			}
		})
	}
}

// ===== PROFILE TESTS =====

func TestUserService_GetProfile_FollowStatus(t *testing.T) {
	target := &model.User{ID: 2, Username: "private_pat", IsPrivate: true}
	viewer := int64(1)

	tests := []struct {
		name       string
		viewerID   *int64
		following  bool
		requested  bool
		wantStatus model.FollowStatus
	}{
		{name: "anonymous viewer", viewerID: nil, wantStatus: model.FollowStatusNone},
		{name: "stranger", viewerID: &viewer, wantStatus: model.FollowStatusNone},
		{name: "follower", viewerID: &viewer, following: true, wantStatus: model.FollowStatusFollowing},
		{name: "pending request", viewerID: &viewer, requested: true, wantStatus: model.FollowStatusRequested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepository{
				getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
					return target, nil
				},
			}
			followRepo := &mockFollowRepository{
				existsFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
					return tt.following, nil
				},
				requestExistsFn: func(ctx context.Context, requesterID, receiverID int64) (bool, error) {
					return tt.requested, nil
				},
			}
			svc := NewUserService(userRepo, followRepo)

			profile, err := svc.GetProfile(context.Background(), target.ID, tt.viewerID)
			if err != nil {
				t.Fatalf("GetProfile returned error: %v", err)
			}
			if profile.FollowStatus != tt.wantStatus {
				t.Errorf("FollowStatus = %q, want %q", profile.FollowStatus, tt.wantStatus)
			}
		})
	}
}

func TestUserService_GetProfile_SelfViewIsNone(t *testing.T) {
	self := int64(2)
	userRepo := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "me"}, nil
		},
	}
	// The relationship lookups must not run for a self view.
	followRepo := &mockFollowRepository{
		existsFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
			t.Error("Exists should not be called when viewing own profile")
			return false, nil
		},
	}
	svc := NewUserService(userRepo, followRepo)

	profile, err := svc.GetProfile(context.Background(), self, &self)
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if profile.FollowStatus != model.FollowStatusNone {
		t.Errorf("FollowStatus = %q, want %q", profile.FollowStatus, model.FollowStatusNone)
	}
}

// ===== SEARCH TESTS =====

func TestUserService_Search_EnrichesFollowFlags(t *testing.T) {
	viewer := int64(9)
	userRepo := &mockUserRepository{
		searchFn: func(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
			return []model.UserSummary{{ID: 1, Username: "alpha"}, {ID: 2, Username: "alphonse"}}, nil
		},
	}
	followRepo := &mockFollowRepository{
		checkFollowsFn: func(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{1: true, 2: false}, nil
		},
	}
	svc := NewUserService(userRepo, followRepo)

	users, err := svc.Search(context.Background(), "alph", 20, &viewer)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if !users[0].IsFollowing {
		t.Error("expected is_following=true for followed user")
	}
	if users[1].IsFollowing {
		t.Error("expected is_following=false for unfollowed user")
	}
}

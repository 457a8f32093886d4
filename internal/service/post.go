package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/queue"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	publisher queue.Publisher
	db        *sqlx.DB
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
	db *sqlx.DB,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		publisher: publisher,
		db:        db,
	}
}

// Create validates and stores a new post, then publishes the fan-out event.
// Media items arrive pre-uploaded and tagged image or video; unknown tags
// are rejected here, not coerced.
func (s *PostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	if len(req.Media) == 0 {
		return nil, model.ErrNoMediaProvided
	}
	if len(req.Media) > model.MaxPostMediaCount {
		return nil, model.ErrTooManyMedia
	}
	if req.Caption != nil && len(*req.Caption) > model.MaxPostCaptionLength {
		return nil, model.ErrCaptionTooLong
	}
	if req.Split != nil && !model.IsValidSplit(*req.Split) {
		return nil, model.ErrInvalidSplit
	}
	for _, m := range req.Media {
		if m.URL == "" || !model.IsValidMediaType(m.Type) {
			return nil, model.ErrInvalidMedia
		}
	}

	post, err := s.postRepo.Create(ctx, userID, req.Caption, req.Split, req.Media)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	// Publish after the row exists; fan-out failure is retried by the
	// stream, not by failing the request.
	event := queue.NewPostCreatedEvent(post.ID, userID)
	if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
		log.Printf("[PostService] Failed to publish PostCreated event: post=%d err=%v", post.ID, err)
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		post.Author = &model.UserSummary{
			ID:        author.ID,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		}
	}

	return post, nil
}

// GetByID retrieves a single post with author and viewer like flag.
func (s *PostService) GetByID(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, post.UserID)
	if err == nil {
		post.Author = &model.UserSummary{
			ID:        author.ID,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		}
	}

	if viewerID != nil {
		likeStatus, err := s.postRepo.CheckLikes(ctx, *viewerID, []int64{postID})
		if err != nil {
			log.Printf("[PostService] Failed to check like status: %v", err)
		} else {
			post.IsLiked = likeStatus[postID]
		}
	}

	return post, nil
}

// Delete soft-deletes a post (ownership checked in the repo) and publishes
// the feed purge event.
func (s *PostService) Delete(ctx context.Context, postID, userID int64) error {
	if err := s.postRepo.Delete(ctx, postID, userID); err != nil {
		return err
	}

	event := queue.NewPostDeletedEvent(postID, userID)
	if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
		log.Printf("[PostService] Failed to publish PostDeleted event: post=%d err=%v", postID, err)
	}

	return nil
}

// GetUserPosts retrieves post thumbnails for a profile grid.
func (s *PostService) GetUserPosts(ctx context.Context, userID int64, cursor *string, limit int) (*model.PostListResponse, error) {
	if limit <= 0 {
		limit = 12 // 3-wide grid
	}
	if limit > 36 {
		limit = 36
	}

	thumbnails, nextCursor, err := s.postRepo.GetUserThumbnails(ctx, userID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get user thumbnails: %w", err)
	}

	hasMore := len(thumbnails) == limit && nextCursor != nil

	var finalCursor *string
	if hasMore {
		finalCursor = nextCursor
	}

	return &model.PostListResponse{
		Posts:      thumbnails,
		NextCursor: finalCursor,
		HasMore:    hasMore,
	}, nil
}

// Like records a like. The row insert and the counter bump share one
// transaction, so the counter always equals the row count. A duplicate like
// surfaces as ErrAlreadyLiked and changes nothing.
func (s *PostService) Like(ctx context.Context, postID, userID int64) error {
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return model.ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.Like(ctx, tx, postID, userID); err != nil {
		return err
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	// Notification event after commit, best-effort.
	if s.publisher != nil {
		authorID, err := s.postRepo.GetAuthorID(ctx, postID)
		if err == nil && authorID != userID {
			event := queue.NewPostLikedEvent(postID, userID, authorID)
			if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
				log.Printf("[PostService] Failed to publish PostLiked event: %v", err)
			}
		}
	}

	return nil
}

// Unlike removes a like. Same transactional pairing as Like; unliking a
// post that was never liked surfaces ErrNotLiked and leaves the counter
// untouched.
func (s *PostService) Unlike(ctx context.Context, postID, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.postRepo.Unlike(ctx, tx, postID, userID); err != nil {
		return err
	}

	if err := s.postRepo.IncrementLikeCount(ctx, tx, postID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetPostLikers returns the paginated list of users who liked a post.
func (s *PostService) GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int) (*model.LikersListResponse, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	users, nextCursor, err := s.postRepo.GetPostLikers(ctx, postID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get post likers: %w", err)
	}

	return &model.LikersListResponse{
		Users:      users,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}

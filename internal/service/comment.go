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

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	db          *sqlx.DB
	publisher   queue.Publisher
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	db *sqlx.DB,
	publisher queue.Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		db:          db,
		publisher:   publisher,
	}
}

// Create appends a comment. The insert and the post's counter bump share
// one transaction. Replies carry a parent id into the flat arena; appending
// one never touches the parent row.
func (s *CommentService) Create(ctx context.Context, postID, userID int64, req model.CreateCommentRequest) (*model.Comment, error) {
	if len(req.Content) == 0 {
		return nil, model.ErrContentRequired
	}
	if len(req.Content) > model.MaxCommentLength {
		return nil, model.ErrContentTooLong
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	comment, err := s.commentRepo.Create(ctx, tx, postID, userID, req.Content, req.ParentCommentID)
	if err != nil {
		return nil, err
	}

	if err := s.postRepo.IncrementCommentCount(ctx, tx, postID, 1); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		comment.Author = &model.UserSummary{
			ID:        author.ID,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		}
	}

	// Notification event after commit, best-effort.
	if s.publisher != nil {
		authorID, err := s.postRepo.GetAuthorID(ctx, postID)
		if err == nil && authorID != userID {
			event := queue.NewPostCommentedEvent(postID, comment.ID, userID, authorID)
			if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
				log.Printf("[CommentService] Failed to publish PostCommented event: %v", err)
			}
		}
	}

	return comment, nil
}

// Delete removes a comment and decrements the post's counter in one
// transaction.
func (s *CommentService) Delete(ctx context.Context, commentID, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	postID, err := s.commentRepo.Delete(ctx, tx, commentID, userID)
	if err != nil {
		return err
	}

	if err := s.postRepo.IncrementCommentCount(ctx, tx, postID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[CommentService] User %d deleted comment %d from post %d", userID, commentID, postID)
	return nil
}

// GetByPostID returns paginated comments for a post, oldest first.
func (s *CommentService) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) (*model.CommentListResponse, error) {
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

	comments, nextCursor, err := s.commentRepo.GetByPostID(ctx, postID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}

	return &model.CommentListResponse{
		Comments:   comments,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}

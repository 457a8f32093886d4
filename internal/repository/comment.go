package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a comment row inside the caller's transaction. A non-nil
// parentID makes it a reply; the thread stays flat, parents are never
// rewritten.
func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, postID, userID int64, content string, parentID *int64) (*model.Comment, error) {
	if parentID != nil {
		var parentPostID int64
		err := tx.GetContext(ctx, &parentPostID, `SELECT post_id FROM post_comments WHERE id = $1 AND deleted_at IS NULL`, *parentID)
		if err == sql.ErrNoRows {
			return nil, model.ErrCommentNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("check parent comment: %w", err)
		}
		if parentPostID != postID {
			return nil, model.ErrCommentNotFound
		}
	}

	query := `
		INSERT INTO post_comments (post_id, user_id, content, parent_comment_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, post_id, user_id, content, parent_comment_id, created_at
	`
	var comment model.Comment
	err := tx.GetContext(ctx, &comment, query, postID, userID, content, parentID)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	return &comment, nil
}

// Delete soft-deletes a comment inside the caller's transaction and returns
// the post id so the caller can decrement the post's comment counter.
func (r *commentRepository) Delete(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (int64, error) {
	var postID int64
	query := `
		UPDATE post_comments SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING post_id
	`
	err := tx.QueryRowxContext(ctx, query, commentID, userID).Scan(&postID)
	if err == sql.ErrNoRows {
		var exists bool
		tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM post_comments WHERE id = $1 AND deleted_at IS NULL)`, commentID)
		if exists {
			return 0, model.ErrNotCommentOwner
		}
		return 0, model.ErrCommentNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("delete comment: %w", err)
	}
	return postID, nil
}

// GetByPostID retrieves comments on a post oldest first, with cursor
// pagination and authors joined in.
func (r *commentRepository) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT c.id, c.post_id, c.user_id, c.content, c.parent_comment_id, c.created_at
			FROM post_comments c
			WHERE c.post_id = $1 AND c.deleted_at IS NULL
			ORDER BY c.created_at ASC, c.id ASC
			LIMIT $2
		`
		args = []interface{}{postID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT c.id, c.post_id, c.user_id, c.content, c.parent_comment_id, c.created_at
			FROM post_comments c
			WHERE c.post_id = $1 AND c.deleted_at IS NULL
			  AND (c.created_at, c.id) > ($2, $3)
			ORDER BY c.created_at ASC, c.id ASC
			LIMIT $4
		`
		args = []interface{}{postID, ts, id, limit + 1}
	}

	var comments []model.Comment
	err := r.db.SelectContext(ctx, &comments, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("get comments: %w", err)
	}

	var nextCursor *string
	if len(comments) > limit {
		comments = comments[:limit]
		last := comments[len(comments)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	if err := r.attachAuthors(ctx, comments); err != nil {
		return nil, nil, err
	}

	return comments, nextCursor, nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	query := `
		SELECT id, post_id, user_id, content, parent_comment_id, created_at
		FROM post_comments
		WHERE id = $1 AND deleted_at IS NULL
	`
	var comment model.Comment
	err := r.db.GetContext(ctx, &comment, query, commentID)
	if err == sql.ErrNoRows {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

func (r *commentRepository) attachAuthors(ctx context.Context, comments []model.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	userIDs := make([]int64, 0, len(comments))
	seen := make(map[int64]bool)
	for _, c := range comments {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			userIDs = append(userIDs, c.UserID)
		}
	}

	query := `SELECT id, username, avatar_url FROM users WHERE id = ANY($1)`
	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, query, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("get comment authors: %w", err)
	}

	byID := make(map[int64]model.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range comments {
		if u, ok := byID[comments[i].UserID]; ok {
			author := u
			comments[i].Author = &author
		}
	}
	return nil
}

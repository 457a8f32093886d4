package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

type forumRepository struct {
	db *sqlx.DB
}

func NewForumRepository(db *sqlx.DB) ForumRepository {
	return &forumRepository{db: db}
}

// CreatePost inserts a forum post and its media in a transaction.
func (r *forumRepository) CreatePost(ctx context.Context, userID int64, title, body string, media []model.MediaItem) (*model.ForumPost, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var post model.ForumPost
	query := `
		INSERT INTO forum_posts (user_id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, title, body, reply_count, created_at
	`
	err = tx.GetContext(ctx, &post, query, userID, title, body)
	if err != nil {
		return nil, fmt.Errorf("insert forum post: %w", err)
	}

	if len(media) > 0 {
		mediaQuery := `
			INSERT INTO forum_post_media (post_id, media_url, media_type, position)
			VALUES ($1, $2, $3, $4)
			RETURNING id, post_id, media_url, media_type, position
		`
		post.Media = make([]model.ForumMedia, len(media))
		for i, item := range media {
			var m model.ForumMedia
			err = tx.GetContext(ctx, &m, mediaQuery, post.ID, item.URL, item.Type, i)
			if err != nil {
				return nil, fmt.Errorf("insert forum media %d: %w", i, err)
			}
			post.Media[i] = m
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &post, nil
}

func (r *forumRepository) GetPost(ctx context.Context, postID int64) (*model.ForumPost, error) {
	query := `
		SELECT p.id, p.user_id, p.title, p.body, p.reply_count, p.created_at,
		       (SELECT COUNT(*) FROM forum_post_likes WHERE post_id = p.id) as like_count
		FROM forum_posts p
		WHERE p.id = $1 AND p.deleted_at IS NULL
	`
	var post model.ForumPost
	err := r.db.GetContext(ctx, &post, query, postID)
	if err == sql.ErrNoRows {
		return nil, model.ErrForumPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get forum post: %w", err)
	}

	mediaMap, err := r.getForumMedia(ctx, []int64{postID})
	if err != nil {
		return nil, err
	}
	post.Media = mediaMap[postID]

	return &post, nil
}

// ListPosts returns non-deleted forum posts created at or after `since`
// (zero time = no window), like counts derived from the membership set.
// Ordered by like count so the limit keeps the most-liked posts, not the
// newest; the service re-sorts with its own tie-breaking.
func (r *forumRepository) ListPosts(ctx context.Context, since time.Time, limit int) ([]model.ForumPost, error) {
	query := `
		SELECT p.id, p.user_id, p.title, p.body, p.reply_count, p.created_at,
		       (SELECT COUNT(*) FROM forum_post_likes WHERE post_id = p.id) as like_count
		FROM forum_posts p
		WHERE p.deleted_at IS NULL AND ($1::timestamptz IS NULL OR p.created_at >= $1)
		ORDER BY like_count DESC, p.created_at DESC
		LIMIT $2
	`
	var sinceArg interface{}
	if !since.IsZero() {
		sinceArg = since
	}

	var posts []model.ForumPost
	err := r.db.SelectContext(ctx, &posts, query, sinceArg, limit)
	if err != nil {
		return nil, fmt.Errorf("list forum posts: %w", err)
	}

	if len(posts) > 0 {
		postIDs := make([]int64, len(posts))
		for i, p := range posts {
			postIDs[i] = p.ID
		}
		mediaMap, err := r.getForumMedia(ctx, postIDs)
		if err != nil {
			return nil, err
		}
		for i := range posts {
			posts[i].Media = mediaMap[posts[i].ID]
		}
	}

	return posts, nil
}

func (r *forumRepository) DeletePost(ctx context.Context, postID, userID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE forum_posts SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete forum post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM forum_posts WHERE id = $1 AND deleted_at IS NULL)`, postID); err != nil {
			return fmt.Errorf("check forum post exists: %w", err)
		}
		if exists {
			return model.ErrNotForumPostOwner
		}
		return model.ErrForumPostNotFound
	}
	return nil
}

func (r *forumRepository) PostExists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM forum_posts WHERE id = $1 AND deleted_at IS NULL)`, postID)
	if err != nil {
		return false, fmt.Errorf("check forum post exists: %w", err)
	}
	return exists, nil
}

// ToggleLike flips membership in the post's like set. The insert path uses
// ON CONFLICT DO NOTHING; when it inserts nothing the row already existed,
// so it is deleted instead. Either way the caller gets the resulting state
// and the fresh set size.
func (r *forumRepository) ToggleLike(ctx context.Context, postID, userID int64) (bool, int, error) {
	return r.toggleLikeRow(ctx, "forum_post_likes", "post_id", postID, userID)
}

// ToggleReplyLike is the same membership toggle against the reply like set.
func (r *forumRepository) ToggleReplyLike(ctx context.Context, replyID, userID int64) (bool, int, error) {
	return r.toggleLikeRow(ctx, "forum_reply_likes", "reply_id", replyID, userID)
}

func (r *forumRepository) toggleLikeRow(ctx context.Context, table, idColumn string, targetID, userID int64) (bool, int, error) {
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, user_id)
		VALUES ($1, $2)
		ON CONFLICT (%s, user_id) DO NOTHING
	`, table, idColumn, idColumn)

	result, err := r.db.ExecContext(ctx, insert, targetID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("toggle like insert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("get rows affected: %w", err)
	}

	liked := rows > 0
	if !liked {
		del := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND user_id = $2`, table, idColumn)
		if _, err := r.db.ExecContext(ctx, del, targetID, userID); err != nil {
			return false, 0, fmt.Errorf("toggle like delete: %w", err)
		}
	}

	var count int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, table, idColumn)
	if err := r.db.GetContext(ctx, &count, countQuery, targetID); err != nil {
		return false, 0, fmt.Errorf("count likes: %w", err)
	}

	return liked, count, nil
}

func (r *forumRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if len(postIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT post_id FROM forum_post_likes WHERE user_id = $1 AND post_id = ANY($2)`
	var likedIDs []int64
	err := r.db.SelectContext(ctx, &likedIDs, query, userID, pq.Array(postIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check forum likes: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range postIDs {
		result[id] = false
	}
	for _, id := range likedIDs {
		result[id] = true
	}

	return result, nil
}

// CreateReply appends one node to the post's flat reply arena. A non-nil
// parentReplyID must resolve to a reply on the same post.
func (r *forumRepository) CreateReply(ctx context.Context, postID, userID int64, parentReplyID *int64, content string) (*model.ForumReply, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if parentReplyID != nil {
		var parentPostID int64
		err := tx.GetContext(ctx, &parentPostID, `SELECT post_id FROM forum_replies WHERE id = $1 AND deleted_at IS NULL`, *parentReplyID)
		if err == sql.ErrNoRows {
			return nil, model.ErrForumReplyNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("check parent reply: %w", err)
		}
		if parentPostID != postID {
			return nil, model.ErrForumReplyNotFound
		}
	}

	var reply model.ForumReply
	query := `
		INSERT INTO forum_replies (post_id, user_id, parent_reply_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, post_id, user_id, parent_reply_id, content, created_at
	`
	err = tx.GetContext(ctx, &reply, query, postID, userID, parentReplyID, content)
	if err != nil {
		return nil, fmt.Errorf("insert forum reply: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE forum_posts SET reply_count = reply_count + 1 WHERE id = $1`, postID)
	if err != nil {
		return nil, fmt.Errorf("increment reply count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &reply, nil
}

func (r *forumRepository) GetReply(ctx context.Context, replyID int64) (*model.ForumReply, error) {
	query := `
		SELECT id, post_id, user_id, parent_reply_id, content, created_at,
		       (SELECT COUNT(*) FROM forum_reply_likes WHERE reply_id = forum_replies.id) as like_count
		FROM forum_replies
		WHERE id = $1 AND deleted_at IS NULL
	`
	var reply model.ForumReply
	err := r.db.GetContext(ctx, &reply, query, replyID)
	if err == sql.ErrNoRows {
		return nil, model.ErrForumReplyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get forum reply: %w", err)
	}
	return &reply, nil
}

// GetReplies returns the whole arena for one post, oldest first, authors
// joined in. Clients rebuild the tree from parent_reply_id links.
func (r *forumRepository) GetReplies(ctx context.Context, postID int64) ([]model.ForumReply, error) {
	query := `
		SELECT rp.id, rp.post_id, rp.user_id, rp.parent_reply_id, rp.content, rp.created_at,
		       (SELECT COUNT(*) FROM forum_reply_likes WHERE reply_id = rp.id) as like_count
		FROM forum_replies rp
		WHERE rp.post_id = $1 AND rp.deleted_at IS NULL
		ORDER BY rp.created_at ASC, rp.id ASC
	`
	var replies []model.ForumReply
	err := r.db.SelectContext(ctx, &replies, query, postID)
	if err != nil {
		return nil, fmt.Errorf("get forum replies: %w", err)
	}

	if err := r.attachReplyAuthors(ctx, replies); err != nil {
		return nil, err
	}

	return replies, nil
}

func (r *forumRepository) DeleteReply(ctx context.Context, replyID, userID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var postID int64
	query := `
		UPDATE forum_replies SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING post_id
	`
	err = tx.QueryRowxContext(ctx, query, replyID, userID).Scan(&postID)
	if err == sql.ErrNoRows {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM forum_replies WHERE id = $1 AND deleted_at IS NULL)`, replyID); err != nil {
			return fmt.Errorf("check forum reply exists: %w", err)
		}
		if exists {
			return model.ErrNotCommentOwner
		}
		return model.ErrForumReplyNotFound
	}
	if err != nil {
		return fmt.Errorf("delete forum reply: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE forum_posts SET reply_count = reply_count - 1 WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("decrement reply count: %w", err)
	}

	return tx.Commit()
}

func (r *forumRepository) attachReplyAuthors(ctx context.Context, replies []model.ForumReply) error {
	if len(replies) == 0 {
		return nil
	}

	userIDs := make([]int64, 0, len(replies))
	seen := make(map[int64]bool)
	for _, rp := range replies {
		if !seen[rp.UserID] {
			seen[rp.UserID] = true
			userIDs = append(userIDs, rp.UserID)
		}
	}

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, `SELECT id, username, avatar_url FROM users WHERE id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("get reply authors: %w", err)
	}

	byID := make(map[int64]model.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range replies {
		if u, ok := byID[replies[i].UserID]; ok {
			author := u
			replies[i].Author = &author
		}
	}
	return nil
}

func (r *forumRepository) getForumMedia(ctx context.Context, postIDs []int64) (map[int64][]model.ForumMedia, error) {
	if len(postIDs) == 0 {
		return map[int64][]model.ForumMedia{}, nil
	}

	query := `
		SELECT id, post_id, media_url, media_type, position
		FROM forum_post_media
		WHERE post_id = ANY($1)
		ORDER BY post_id, position
	`
	var media []model.ForumMedia
	err := r.db.SelectContext(ctx, &media, query, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("get forum media: %w", err)
	}

	result := make(map[int64][]model.ForumMedia)
	for _, m := range media {
		result[m.PostID] = append(result[m.PostID], m)
	}
	return result, nil
}

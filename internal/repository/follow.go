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

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts a follow edge. ON CONFLICT DO NOTHING gives the edge set
// dedup on write: two racing inserts from stale snapshots leave exactly one
// row, and the loser learns it via inserted=false.
func (r *followRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	result, err := tx.ExecContext(ctx, query, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFollowing
	}

	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// GetFollowers retrieves users who follow the specified user with
// cursor-based pagination: nil cursor starts from the newest edge, a
// non-nil cursor fetches edges created before that timestamp. limit+1 rows
// are fetched to detect whether more results exist.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.follower_id
			WHERE f.followee_id = $1 AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, cursor, limit + 1}
	}

	return r.selectUsersWithCursor(ctx, query, args, limit)
}

// GetFollowing retrieves users that the specified user follows. Same cursor
// scheme as GetFollowers.
func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT u.id, u.username, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1
			ORDER BY f.created_at DESC
			LIMIT $2
		`
		args = []interface{}{userID, limit + 1}
	} else {
		query = `
			SELECT u.id, u.username, u.avatar_url, f.created_at
			FROM follows f
			JOIN users u ON u.id = f.followee_id
			WHERE f.follower_id = $1 AND f.created_at < $2
			ORDER BY f.created_at DESC
			LIMIT $3
		`
		args = []interface{}{userID, cursor, limit + 1}
	}

	return r.selectUsersWithCursor(ctx, query, args, limit)
}

func (r *followRepository) selectUsersWithCursor(ctx context.Context, query string, args []interface{}, limit int) ([]model.UserSummary, *time.Time, error) {
	type userWithTime struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var results []userWithTime
	err := r.db.SelectContext(ctx, &results, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list follow edges: %w", err)
	}

	var users []model.UserSummary
	var nextCursor *time.Time

	// More rows than requested means another page exists; the last kept
	// row's timestamp becomes the next cursor.
	if len(results) > limit {
		results = results[:limit]
		nextCursor = &results[len(results)-1].CreatedAt
	}

	for _, result := range results {
		users = append(users, result.UserSummary)
	}

	return users, nextCursor, nil
}

func (r *followRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if len(followeeIDs) == 0 {
		return make(map[int64]bool), nil
	}

	query := `SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`
	var followedIDs []int64
	err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(followeeIDs))
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}

	result := make(map[int64]bool)
	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}

	return result, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT follower_id FROM follows WHERE followee_id = $1`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT followee_id FROM follows WHERE follower_id = $1`
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followee ids: %w", err)
	}
	return ids, nil
}

// CreateRequest stages a pending follow request. Idempotent: a repeat
// request is absorbed by the conflict clause and reported via
// inserted=false so the service can log the no-op.
func (r *followRepository) CreateRequest(ctx context.Context, requesterID, receiverID int64) (bool, error) {
	query := `
		INSERT INTO follow_requests (requester_id, receiver_id)
		VALUES ($1, $2)
		ON CONFLICT (requester_id, receiver_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, requesterID, receiverID)
	if err != nil {
		return false, fmt.Errorf("failed to create follow request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteRequest removes a pending request inside the caller's transaction.
// Accept runs this together with the edge insert so a pair can never sit in
// both follow_requests and follows.
func (r *followRepository) DeleteRequest(ctx context.Context, tx *sqlx.Tx, requesterID, receiverID int64) (bool, error) {
	query := `DELETE FROM follow_requests WHERE requester_id = $1 AND receiver_id = $2`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, requesterID, receiverID)
	} else {
		result, err = r.db.ExecContext(ctx, query, requesterID, receiverID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete follow request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *followRepository) RequestExists(ctx context.Context, requesterID, receiverID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follow_requests WHERE requester_id = $1 AND receiver_id = $2)`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, requesterID, receiverID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow request: %w", err)
	}
	return exists, nil
}

// GetRequesters lists users with a pending request into the receiver's
// account, newest first.
func (r *followRepository) GetRequesters(ctx context.Context, receiverID int64) ([]model.UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.avatar_url
		FROM follow_requests fr
		JOIN users u ON u.id = fr.requester_id
		WHERE fr.receiver_id = $1
		ORDER BY fr.created_at DESC
	`
	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, query, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follow requesters: %w", err)
	}
	return users, nil
}

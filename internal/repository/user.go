package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, password_hashed, avatar_url, avatar_key, bio, is_private,
	sesh_count, last_gym_visit, follower_count, following_count, post_count, created_at, updated_at`

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hashed, avatar_url, avatar_key, is_private, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, sesh_count, follower_count, following_count, post_count, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.Email,
		u.PasswordHashed,
		u.AvatarURL,
		u.AvatarKey,
		u.IsPrivate,
	)

	err := row.Scan(
		&u.ID,
		&u.SeshCount,
		&u.FollowerCount,
		&u.FollowingCount,
		&u.PostCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by their email (login path)
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND deleted_at IS NULL`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &u, nil
}

// ExistsByUsername checks if a username is already taken
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND deleted_at IS NULL)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// ExistsByEmail checks if an email is already registered
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	searchQuery := `
		SELECT id, username, avatar_url
		FROM users
		WHERE username ILIKE $1 AND deleted_at IS NULL
		ORDER BY follower_count DESC
		LIMIT $2
	`

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, searchQuery, query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}

// UpdateProfile applies bio/privacy changes. Nil fields are left untouched.
func (r *userRepository) UpdateProfile(ctx context.Context, userID int64, bio *string, isPrivate *bool) error {
	query := `
		UPDATE users
		SET bio = COALESCE($2, bio),
		    is_private = COALESCE($3, is_private),
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, userID, bio, isPrivate)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// UpdateAvatar swaps the avatar reference and returns the previous object
// key so the caller can delete the old blob.
func (r *userRepository) UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) (*string, error) {
	query := `
		UPDATE users u
		SET avatar_url = $2, avatar_key = $3, updated_at = NOW()
		FROM (SELECT avatar_key FROM users WHERE id = $1) old
		WHERE u.id = $1 AND u.deleted_at IS NULL
		RETURNING old.avatar_key
	`
	var oldKey *string
	err := r.db.QueryRowxContext(ctx, query, userID, avatarURL, avatarKey).Scan(&oldKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	return oldKey, nil
}

// Delete soft-deletes the account. Content rows stay behind their
// foreign keys; the profile simply stops resolving.
func (r *userRepository) Delete(ctx context.Context, userID int64) error {
	query := `UPDATE users SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	query := `UPDATE users SET follower_count = follower_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment follower count: %w", err)
	}
	return nil
}

func (r *userRepository) IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	query := `UPDATE users SET following_count = following_count + $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to increment following count: %w", err)
	}
	return nil
}

// RecordGymVisit bumps the streak in a single conditional UPDATE so two
// concurrent check-ins on the same day count once. The guard compares
// calendar days in UTC.
func (r *userRepository) RecordGymVisit(ctx context.Context, userID int64, now time.Time) (int, time.Time, bool, error) {
	query := `
		UPDATE users
		SET sesh_count = sesh_count + 1, last_gym_visit = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		  AND (last_gym_visit IS NULL OR date(last_gym_visit AT TIME ZONE 'UTC') < date($2 AT TIME ZONE 'UTC'))
		RETURNING sesh_count, last_gym_visit
	`
	var seshCount int
	var lastVisit time.Time
	err := r.db.QueryRowxContext(ctx, query, userID, now.UTC()).Scan(&seshCount, &lastVisit)
	if err == nil {
		return seshCount, lastVisit, true, nil
	}
	if err != sql.ErrNoRows {
		return 0, time.Time{}, false, fmt.Errorf("failed to record gym visit: %w", err)
	}

	// Already counted today (or user missing) - read back current state.
	var u model.User
	readBack := `SELECT sesh_count, last_gym_visit FROM users WHERE id = $1 AND deleted_at IS NULL`
	if err := r.db.GetContext(ctx, &u, readBack, userID); err != nil {
		if err == sql.ErrNoRows {
			return 0, time.Time{}, false, model.ErrUserNotFound
		}
		return 0, time.Time{}, false, fmt.Errorf("failed to read streak: %w", err)
	}
	if u.LastGymVisit != nil {
		lastVisit = *u.LastGymVisit
	}
	return u.SeshCount, lastVisit, false, nil
}

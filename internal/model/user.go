package model

import (
	"errors"
	"time"
)

// User represents a user in the system
type User struct {
	ID             int64      `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	Email          string     `db:"email" json:"email"`
	PasswordHashed string     `db:"password_hashed" json:"-"` // "-" hides from JSON output
	AvatarURL      *string    `db:"avatar_url" json:"avatar_url"`
	AvatarKey      *string    `db:"avatar_key" json:"-"`
	Bio            *string    `db:"bio" json:"bio"`
	IsPrivate      bool       `db:"is_private" json:"is_private"` // Private accounts gate follows behind requests
	SeshCount      int        `db:"sesh_count" json:"sesh_count"` // Gym-session streak counter
	LastGymVisit   *time.Time `db:"last_gym_visit" json:"last_gym_visit,omitempty"`
	FollowerCount  int        `db:"follower_count" json:"follower_count"`
	FollowingCount int        `db:"following_count" json:"following_count"`
	PostCount      int        `db:"post_count" json:"post_count"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	AvatarURL       *string `json:"-"`
	AvatarKey       *string `json:"-"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the request body for PATCH /me.
type UpdateProfileRequest struct {
	Bio       *string `json:"bio,omitempty"`
	IsPrivate *bool   `json:"is_private,omitempty"`
}

// ProfileResponse is a user profile with the viewer's relationship to it.
type ProfileResponse struct {
	User         *User        `json:"user"`
	FollowStatus FollowStatus `json:"follow_status"` // none, requested, or following
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrEmailExists is returned when attempting to create a user with a taken email
	ErrEmailExists = errors.New("email already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordMismatch is returned when password and confirmation differ
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrMissingFields is returned when required registration fields are empty
	ErrMissingFields = errors.New("email and password are required")
)

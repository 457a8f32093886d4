package model

import (
	"errors"
	"time"
)

// HealthSample is one day of device-reported activity for a user. The
// client reads its health store and pushes totals; rows are upserted per
// (user, day) so re-syncs are idempotent.
type HealthSample struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"-"`
	Day          time.Time `db:"day" json:"day"` // Date only, UTC
	Steps        int64     `db:"steps" json:"steps"`
	ActiveEnergy float64   `db:"active_energy" json:"active_energy"` // kcal
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SyncHealthRequest is the request body for PUT /health/today.
type SyncHealthRequest struct {
	Steps        int64   `json:"steps"`
	ActiveEnergy float64 `json:"active_energy"`
}

// GymVisitResponse reports the streak state after a check-in.
type GymVisitResponse struct {
	SeshCount    int       `json:"sesh_count"`
	LastGymVisit time.Time `json:"last_gym_visit"`
	Counted      bool      `json:"counted"` // False when already checked in today
}

// Health errors
var (
	ErrInvalidHealthSample = errors.New("health sample values must be non-negative")
)

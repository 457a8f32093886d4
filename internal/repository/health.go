package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

type healthRepository struct {
	db *sqlx.DB
}

func NewHealthRepository(db *sqlx.DB) HealthRepository {
	return &healthRepository{db: db}
}

// UpsertDailySample overwrites the (user, day) row with the device-reported
// totals. Device frameworks report whole-day cumulative values, so re-syncs
// replace rather than add.
func (r *healthRepository) UpsertDailySample(ctx context.Context, userID int64, day time.Time, steps int64, activeEnergy float64) (*model.HealthSample, error) {
	query := `
		INSERT INTO health_samples (user_id, day, steps, active_energy, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, day)
		DO UPDATE SET steps = EXCLUDED.steps, active_energy = EXCLUDED.active_energy, updated_at = NOW()
		RETURNING user_id, day, steps, active_energy, updated_at
	`
	var sample model.HealthSample
	err := r.db.GetContext(ctx, &sample, query, userID, day.UTC().Truncate(24*time.Hour), steps, activeEnergy)
	if err != nil {
		return nil, fmt.Errorf("upsert health sample: %w", err)
	}
	return &sample, nil
}

// GetSamples returns daily samples within [from, to], oldest first.
func (r *healthRepository) GetSamples(ctx context.Context, userID int64, from, to time.Time) ([]model.HealthSample, error) {
	query := `
		SELECT user_id, day, steps, active_energy, updated_at
		FROM health_samples
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day ASC
	`
	var samples []model.HealthSample
	err := r.db.SelectContext(ctx, &samples, query, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("get health samples: %w", err)
	}
	return samples, nil
}

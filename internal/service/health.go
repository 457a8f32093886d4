package service

import (
	"context"
	"log"
	"time"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

// HealthService tracks gym-session streaks and device-synced daily
// activity. Days are bucketed in UTC everywhere so the client's timezone
// cannot double-count a check-in.
type HealthService struct {
	healthRepo repository.HealthRepository
	userRepo   repository.UserRepository
}

func NewHealthService(healthRepo repository.HealthRepository, userRepo repository.UserRepository) *HealthService {
	return &HealthService{
		healthRepo: healthRepo,
		userRepo:   userRepo,
	}
}

// RecordGymVisit checks the user in. The streak counter bumps at most once
// per UTC day; a second check-in the same day returns the current state
// with Counted=false.
func (s *HealthService) RecordGymVisit(ctx context.Context, userID int64) (*model.GymVisitResponse, error) {
	seshCount, lastVisit, counted, err := s.userRepo.RecordGymVisit(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if counted {
		log.Printf("[HealthService] Gym visit recorded: user=%d sesh_count=%d", userID, seshCount)
	}

	return &model.GymVisitResponse{
		SeshCount:    seshCount,
		LastGymVisit: lastVisit,
		Counted:      counted,
	}, nil
}

// SyncToday upserts the device-reported totals for the current UTC day.
// Clients re-sync whole-day totals, not deltas, so replays are idempotent.
func (s *HealthService) SyncToday(ctx context.Context, userID int64, req model.SyncHealthRequest) (*model.HealthSample, error) {
	if req.Steps < 0 || req.ActiveEnergy < 0 {
		return nil, model.ErrInvalidHealthSample
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	return s.healthRepo.UpsertDailySample(ctx, userID, day, req.Steps, req.ActiveEnergy)
}

// GetSamples returns the user's daily samples in [from, to], oldest first.
// A zero range defaults to the trailing 30 days.
func (s *HealthService) GetSamples(ctx context.Context, userID int64, from, to time.Time) ([]model.HealthSample, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.healthRepo.GetSamples(ctx, userID, from, to)
}

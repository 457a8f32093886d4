package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/queue"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

// notificationCreator is the slice of NotificationService the follow state
// machine needs: ledger append plus push relay to the recipient's devices.
type notificationCreator interface {
	CreateNotification(ctx context.Context, userID, actorID int64, notifType string, postID, commentID *int64) error
}

// FollowService owns the follow state machine. Every transition between
// none, requested, and following goes through this service; handlers never
// touch the edge or request tables directly.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	notifier   notificationCreator
	db         *sqlx.DB
	publisher  queue.Publisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	notifier notificationCreator,
	db *sqlx.DB,
	publisher queue.Publisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		db:         db,
		publisher:  publisher,
	}
}

// Follow advances the pair from none. Public targets gain the edge
// immediately; private targets get a pending request instead. Repeating the
// call in either state is a no-op that reports the current state.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error) {
	if followerID == followeeID {
		return "", model.ErrCannotFollowSelf
	}

	followee, err := s.userRepo.GetByID(ctx, followeeID)
	if err != nil {
		return "", err
	}

	// Already on the follower set: nothing to do.
	following, err := s.followRepo.Exists(ctx, followerID, followeeID)
	if err != nil {
		return "", err
	}
	if following {
		return model.FollowStatusFollowing, nil
	}

	if followee.IsPrivate {
		inserted, err := s.followRepo.CreateRequest(ctx, followerID, followeeID)
		if err != nil {
			return "", err
		}
		if !inserted {
			log.Printf("[FollowService] Follow: request already pending follower=%d followee=%d", followerID, followeeID)
			return model.FollowStatusRequested, nil
		}

		// Through the notification service so the request also reaches the
		// receiver's devices, same as follow/like/comment records.
		if err := s.notifier.CreateNotification(ctx, followeeID, followerID, model.NotificationTypeFollowRequest, nil, nil); err != nil {
			log.Printf("[FollowService] Follow: request notification FAILED: %v", err)
		}

		log.Printf("[FollowService] Follow: request created follower=%d followee=%d", followerID, followeeID)
		return model.FollowStatusRequested, nil
	}

	if err := s.createEdge(ctx, followerID, followeeID); err != nil {
		if err == model.ErrAlreadyFollowing {
			return model.FollowStatusFollowing, nil
		}
		return "", err
	}

	return model.FollowStatusFollowing, nil
}

// Unfollow removes the edge, or withdraws a pending request when no edge
// exists yet. Both leave the pair at none.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = s.followRepo.Delete(ctx, tx, followerID, followeeID)
	if err == model.ErrNotFollowing {
		// No edge; maybe a pending request to withdraw.
		removed, reqErr := s.followRepo.DeleteRequest(ctx, tx, followerID, followeeID)
		if reqErr != nil {
			return reqErr
		}
		if !removed {
			return model.ErrNotFollowing
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		log.Printf("[FollowService] Unfollow: request withdrawn follower=%d followee=%d", followerID, followeeID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, followeeID, -1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.publish(ctx, queue.NewUserUnfollowedEvent(followerID, followeeID))
	return nil
}

// RemoveFollower expels an existing follower from the user's follower set.
// Same edge removal as Unfollow with the roles swapped; there is no request
// to withdraw on this side.
func (s *FollowService) RemoveFollower(ctx context.Context, userID, followerID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.followRepo.Delete(ctx, tx, followerID, userID); err != nil {
		return err
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, userID, -1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.publish(ctx, queue.NewUserUnfollowedEvent(followerID, userID))

	log.Printf("[FollowService] RemoveFollower OK: user=%d follower=%d", userID, followerID)
	return nil
}

// AcceptRequest turns a pending request into an edge. The request delete
// and the edge insert share one transaction so the pair can never sit in
// both tables.
func (s *FollowService) AcceptRequest(ctx context.Context, receiverID, requesterID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed, err := s.followRepo.DeleteRequest(ctx, tx, requesterID, receiverID)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrNoFollowRequest
	}

	inserted, err := s.followRepo.Create(ctx, tx, requesterID, receiverID)
	if err != nil {
		return err
	}
	if inserted {
		if err := s.userRepo.IncrementFollowerCount(ctx, tx, receiverID, 1); err != nil {
			return err
		}
		if err := s.userRepo.IncrementFollowingCount(ctx, tx, requesterID, 1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	// Backfill + follow notification run async, after commit.
	s.publish(ctx, queue.NewUserFollowedEvent(requesterID, receiverID))

	log.Printf("[FollowService] AcceptRequest OK: requester=%d receiver=%d", requesterID, receiverID)
	return nil
}

// DeclineRequest discards a pending request. The requester is not notified.
func (s *FollowService) DeclineRequest(ctx context.Context, receiverID, requesterID int64) error {
	removed, err := s.followRepo.DeleteRequest(ctx, nil, requesterID, receiverID)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrNoFollowRequest
	}
	return nil
}

// GetRequests lists pending inbound requests for the receiver, newest first.
func (s *FollowService) GetRequests(ctx context.Context, receiverID int64) (*model.FollowRequestListResponse, error) {
	users, err := s.followRepo.GetRequesters(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	return &model.FollowRequestListResponse{Users: users}, nil
}

// Status reports the pair state for a viewer looking at another profile.
func (s *FollowService) Status(ctx context.Context, followerID, followeeID int64) (model.FollowStatus, error) {
	following, err := s.followRepo.Exists(ctx, followerID, followeeID)
	if err != nil {
		return "", err
	}
	if following {
		return model.FollowStatusFollowing, nil
	}

	requested, err := s.followRepo.RequestExists(ctx, followerID, followeeID)
	if err != nil {
		return "", err
	}
	if requested {
		return model.FollowStatusRequested, nil
	}

	return model.FollowStatusNone, nil
}

// GetFollowers retrieves users who follow the specified user. Cursor
// pagination: nil starts from the newest edge, limit+1 detects more pages.
// Follow flags for the viewer come from one batch query, not N+1.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	users, nextCursor, err := s.followRepo.GetFollowers(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		users = s.enrichWithFollowStatus(ctx, *viewerID, users)
	}

	return followListResponse(users, nextCursor), nil
}

// GetFollowing retrieves users that the specified user follows. Same
// pagination and enrichment scheme as GetFollowers.
func (s *FollowService) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	users, nextCursor, err := s.followRepo.GetFollowing(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		users = s.enrichWithFollowStatus(ctx, *viewerID, users)
	}

	return followListResponse(users, nextCursor), nil
}

// createEdge inserts the edge and bumps both counters in one transaction,
// then triggers the async backfill.
func (s *FollowService) createEdge(ctx context.Context, followerID, followeeID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := s.followRepo.Create(ctx, tx, followerID, followeeID)
	if err != nil {
		return err
	}
	if !inserted {
		return model.ErrAlreadyFollowing
	}

	if err := s.userRepo.IncrementFollowerCount(ctx, tx, followeeID, 1); err != nil {
		return err
	}
	if err := s.userRepo.IncrementFollowingCount(ctx, tx, followerID, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	// Publish after commit so the worker never sees an edge that rolled back.
	s.publish(ctx, queue.NewUserFollowedEvent(followerID, followeeID))
	return nil
}

func (s *FollowService) publish(ctx context.Context, event queue.FeedEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamFeed, event); err != nil {
		log.Printf("[FollowService] Failed to publish %s: %v", event.Type, err)
	}
}

// enrichWithFollowStatus resolves is_following for a user list with a
// single batch query. A failed check degrades to false flags rather than
// failing the request.
func (s *FollowService) enrichWithFollowStatus(ctx context.Context, viewerID int64, users []model.UserSummary) []model.UserSummary {
	if len(users) == 0 {
		return users
	}

	userIDs := make([]int64, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}

	followMap, err := s.followRepo.CheckFollows(ctx, viewerID, userIDs)
	if err != nil {
		return users
	}

	for i := range users {
		users[i].IsFollowing = followMap[users[i].ID]
	}

	return users
}

func followListResponse(users []model.UserSummary, nextCursor *time.Time) *model.FollowListResponse {
	var nextCursorStr *string
	if nextCursor != nil {
		str := nextCursor.Format(time.RFC3339)
		nextCursorStr = &str
	}
	return &model.FollowListResponse{
		Users:      users,
		NextCursor: nextCursorStr,
		HasMore:    nextCursor != nil,
	}
}

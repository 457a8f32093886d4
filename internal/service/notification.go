package service

import (
	"context"
	"log"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

// NotificationService reads and mutates the append-only notification
// ledger, and relays new records to the user's devices via Expo Push.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	tokenRepo repository.DeviceTokenRepository
	userRepo  repository.UserRepository
	expoPush  *ExpoPushClient // nil disables push
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	userRepo repository.UserRepository,
	expoPush *ExpoPushClient,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
		expoPush:  expoPush,
	}
}

// GetNotifications returns the viewer's notification screen: follow and
// follow-request records individually, likes and comments grouped by post
// ("user1 and 5 others liked your post").
func (s *NotificationService) GetNotifications(ctx context.Context, userID int64, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	follows, err, unread := s.notifRepo.GetFollowNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	aggregated, err, _ := s.notifRepo.GetAggregatedNotifications(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	return &model.NotificationListResponse{
		Follows:     follows,
		Aggregated:  aggregated,
		UnreadCount: unread,
	}, nil
}

// MarkAsRead flags specific notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID int64, notificationIDs []int64) error {
	return s.notifRepo.MarkAsRead(ctx, userID, notificationIDs)
}

// MarkAllAsRead flags everything as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.notifRepo.MarkAllAsRead(ctx, userID)
}

// Remove deletes one notification by id. Only the recipient can remove it;
// used when a follow request is resolved or a user dismisses a record.
func (s *NotificationService) Remove(ctx context.Context, userID, notificationID int64) error {
	return s.notifRepo.Remove(ctx, userID, notificationID)
}

// GetUnreadCount returns the badge count.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.notifRepo.GetUnreadCount(ctx, userID)
}

// RegisterDeviceToken stores or reassigns a device's Expo push token.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID int64, token, platform string) error {
	if platform == "" {
		platform = "expo"
	}
	return s.tokenRepo.Upsert(ctx, userID, token, platform)
}

// RemoveDeviceToken drops a device token (logout).
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, token string) error {
	return s.tokenRepo.Delete(ctx, token)
}

// CreateNotification appends a ledger record and pushes it to the
// recipient's devices. Called by services and by the stream worker; the
// self-notification guard lives here so every caller gets it.
func (s *NotificationService) CreateNotification(
	ctx context.Context,
	userID, actorID int64,
	notifType string,
	postID, commentID *int64,
) error {
	if userID == actorID {
		return nil
	}

	if err := s.notifRepo.Create(ctx, userID, actorID, notifType, postID, commentID); err != nil {
		return err
	}

	if s.expoPush != nil {
		// Push must not block or fail the triggering request.
		go s.sendPushNotification(context.Background(), userID, actorID, notifType, postID)
	}

	return nil
}

func (s *NotificationService) sendPushNotification(ctx context.Context, userID, actorID int64, notifType string, postID *int64) {
	tokens, err := s.tokenRepo.GetByUserID(ctx, userID)
	if err != nil {
		log.Printf("[NotificationService] Failed to get device tokens for user %d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		log.Printf("[NotificationService] Failed to get actor %d: %v", actorID, err)
		return
	}

	title, body := buildPushMessage(actor.Username, notifType)

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	data := map[string]interface{}{
		"type":     notifType,
		"actor_id": actorID,
	}
	if postID != nil {
		data["post_id"] = *postID
	}

	if err := s.expoPush.SendToTokens(ctx, tokenStrings, title, body, data); err != nil {
		log.Printf("[NotificationService] Failed to send push to user %d: %v", userID, err)
	}
}

func buildPushMessage(actorUsername, notifType string) (title, body string) {
	switch notifType {
	case model.NotificationTypeFollow:
		title = "New Follower"
		body = actorUsername + " started following you"
	case model.NotificationTypeFollowRequest:
		title = "Follow Request"
		body = actorUsername + " wants to follow you"
	case model.NotificationTypeLike:
		title = "New Like"
		body = actorUsername + " liked your post"
	case model.NotificationTypeComment:
		title = "New Comment"
		body = actorUsername + " commented on your post"
	default:
		title = "Fitness App"
		body = "You have a new notification"
	}
	return
}

package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hairkim/Fitness-App-sub000/internal/cache"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/queue"
)

// FollowerProvider abstracts follower lookups so the handler does not
// depend on the repository package directly.
type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

// RecentPostsProvider fetches a user's recent posts as (id, timestamp)
// pairs for backfill and purge.
type RecentPostsProvider interface {
	GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error)
}

// NotificationCreator records a notification and optionally sends push.
type NotificationCreator interface {
	CreateNotification(ctx context.Context, userID, actorID int64, notifType string, postID, commentID *int64) error
}

// Handler processes events from the feed stream: fan-out, cache
// maintenance, and notification recording.
type Handler struct {
	feedCache        cache.FeedCache
	followerProvider FollowerProvider
	postsProvider    RecentPostsProvider
	notifCreator     NotificationCreator // nil disables notification events
}

// NewHandler creates an event handler.
func NewHandler(
	feedCache cache.FeedCache,
	followerProvider FollowerProvider,
	postsProvider RecentPostsProvider,
) *Handler {
	return &Handler{
		feedCache:        feedCache,
		followerProvider: followerProvider,
		postsProvider:    postsProvider,
	}
}

// SetNotificationCreator wires the notification sink. Optional; without it
// interaction events are dropped.
func (h *Handler) SetNotificationCreator(nc NotificationCreator) {
	h.notifCreator = nc
}

// HandleEvent routes an event by type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.FeedEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostCreated:
		err = h.handlePostCreated(ctx, event)
	case queue.EventPostDeleted:
		err = h.handlePostDeleted(ctx, event)
	case queue.EventUserFollowed:
		err = h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed:
		err = h.handleUserUnfollowed(ctx, event)
	case queue.EventPostLiked:
		err = h.handlePostLiked(ctx, event)
	case queue.EventPostCommented:
		err = h.handlePostCommented(ctx, event)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s duration=%v", event.Type, time.Since(startTime))
	return nil
}

// handlePostCreated fans the new post out to every follower's feed plus the
// author's own. One slow or failed follower does not abort the rest.
func (h *Handler) handlePostCreated(ctx context.Context, event queue.FeedEvent) error {
	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	var failCount int
	for _, followerID := range followers {
		if err := h.feedCache.AddPost(ctx, followerID, event.PostID, event.Timestamp); err != nil {
			log.Printf("[Worker] PostCreated: failed to add to user=%d err=%v", followerID, err)
			failCount++
		}
	}

	// Authors see their own posts in their home feed.
	if err := h.feedCache.AddPost(ctx, event.AuthorID, event.PostID, event.Timestamp); err != nil {
		log.Printf("[Worker] PostCreated: failed to add to author's own feed err=%v", err)
	}

	log.Printf("[Worker] PostCreated DONE: post=%d fanout=%d failed=%d",
		event.PostID, len(followers)+1, failCount)

	return nil
}

// handlePostDeleted purges the post from every follower's feed.
func (h *Handler) handlePostDeleted(ctx context.Context, event queue.FeedEvent) error {
	followers, err := h.followerProvider.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	var failCount int
	for _, followerID := range followers {
		if err := h.feedCache.RemovePost(ctx, followerID, event.PostID); err != nil {
			log.Printf("[Worker] PostDeleted: failed to remove from user=%d err=%v", followerID, err)
			failCount++
		}
	}

	if err := h.feedCache.RemovePost(ctx, event.AuthorID, event.PostID); err != nil {
		log.Printf("[Worker] PostDeleted: failed to remove from author's own feed err=%v", err)
	}

	log.Printf("[Worker] PostDeleted DONE: post=%d fanout=%d failed=%d",
		event.PostID, len(followers)+1, failCount)

	return nil
}

// handleUserFollowed backfills the followee's recent posts into the
// follower's feed and records the follow notification.
func (h *Handler) handleUserFollowed(ctx context.Context, event queue.FeedEvent) error {
	const backfillLimit = 20
	posts, err := h.postsProvider.GetRecentPostsByUser(ctx, event.FolloweeID, backfillLimit)
	if err != nil {
		return fmt.Errorf("get recent posts: %w", err)
	}

	var failCount int
	for _, p := range posts {
		if err := h.feedCache.AddPost(ctx, event.FollowerID, p.PostID, p.Timestamp); err != nil {
			log.Printf("[Worker] UserFollowed: failed to add post=%d err=%v", p.PostID, err)
			failCount++
		}
	}

	log.Printf("[Worker] UserFollowed DONE: follower=%d backfilled=%d failed=%d",
		event.FollowerID, len(posts), failCount)

	if h.notifCreator != nil {
		err := h.notifCreator.CreateNotification(ctx, event.FolloweeID, event.FollowerID, model.NotificationTypeFollow, nil, nil)
		if err != nil {
			log.Printf("[Worker] UserFollowed: failed to create notification: %v", err)
		}
	}

	return nil
}

// handleUserUnfollowed removes the former followee's posts from the
// follower's feed in one batched ZREM.
func (h *Handler) handleUserUnfollowed(ctx context.Context, event queue.FeedEvent) error {
	const removeLimit = 100
	posts, err := h.postsProvider.GetRecentPostsByUser(ctx, event.FolloweeID, removeLimit)
	if err != nil {
		return fmt.Errorf("get posts to remove: %w", err)
	}

	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]int64, len(posts))
	for i, p := range posts {
		postIDs[i] = p.PostID
	}

	if err := h.feedCache.RemovePosts(ctx, event.FollowerID, postIDs); err != nil {
		return fmt.Errorf("remove posts: %w", err)
	}

	log.Printf("[Worker] UserUnfollowed DONE: follower=%d removed=%d", event.FollowerID, len(posts))
	return nil
}

// handlePostLiked records a like notification for the post author.
func (h *Handler) handlePostLiked(ctx context.Context, event queue.FeedEvent) error {
	if h.notifCreator == nil {
		return nil
	}

	// No self-notifications.
	if event.ActorID == event.RecipientID {
		return nil
	}

	postID := event.PostID
	err := h.notifCreator.CreateNotification(ctx, event.RecipientID, event.ActorID, model.NotificationTypeLike, &postID, nil)
	if err != nil {
		return fmt.Errorf("create like notification: %w", err)
	}

	return nil
}

// handlePostCommented records a comment notification for the post author.
func (h *Handler) handlePostCommented(ctx context.Context, event queue.FeedEvent) error {
	if h.notifCreator == nil {
		return nil
	}

	if event.ActorID == event.RecipientID {
		return nil
	}

	postID := event.PostID
	commentID := event.CommentID
	err := h.notifCreator.CreateNotification(ctx, event.RecipientID, event.ActorID, model.NotificationTypeComment, &postID, &commentID)
	if err != nil {
		return fmt.Errorf("create comment notification: %w", err)
	}

	return nil
}

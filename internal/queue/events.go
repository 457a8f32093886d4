package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published to the feed stream
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
	EventPostLiked      = "post_liked"
	EventPostCommented  = "post_commented"
)

// Stream names
const (
	StreamFeed = "stream:feed"
)

// Consumer group name for feed workers
const (
	ConsumerGroupFeed = "feed_workers"
)

// FeedEvent is the single envelope for everything on the feed stream:
// fan-out triggers, cache invalidation, and notification sources.
type FeedEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when the event occurred

	// Post events (PostCreated, PostDeleted, PostLiked, PostCommented)
	PostID   int64 `json:"post_id,omitempty"`
	AuthorID int64 `json:"author_id,omitempty"`

	// Follow events (UserFollowed, UserUnfollowed)
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`

	// Interaction events: who acted and who should be notified
	ActorID     int64 `json:"actor_id,omitempty"`
	RecipientID int64 `json:"recipient_id,omitempty"`
	CommentID   int64 `json:"comment_id,omitempty"`
}

// NewPostCreatedEvent: worker fans the post out to all followers' feeds.
func NewPostCreatedEvent(postID, authorID int64) FeedEvent {
	return FeedEvent{
		Type:      EventPostCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewPostDeletedEvent: worker purges the post from followers' feeds.
func NewPostDeletedEvent(postID, authorID int64) FeedEvent {
	return FeedEvent{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewUserFollowedEvent: worker backfills the followee's recent posts into
// the follower's feed and records a follow notification.
func NewUserFollowedEvent(followerID, followeeID int64) FeedEvent {
	return FeedEvent{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewUserUnfollowedEvent: worker removes the followee's posts from the
// follower's feed.
func NewUserUnfollowedEvent(followerID, followeeID int64) FeedEvent {
	return FeedEvent{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewPostLikedEvent: worker records a like notification for the post author
// and pushes it to their devices.
func NewPostLikedEvent(postID, actorID, recipientID int64) FeedEvent {
	return FeedEvent{
		Type:        EventPostLiked,
		Timestamp:   time.Now().Unix(),
		PostID:      postID,
		ActorID:     actorID,
		RecipientID: recipientID,
	}
}

// NewPostCommentedEvent: worker records a comment notification for the post
// author.
func NewPostCommentedEvent(postID, commentID, actorID, recipientID int64) FeedEvent {
	return FeedEvent{
		Type:        EventPostCommented,
		Timestamp:   time.Now().Unix(),
		PostID:      postID,
		CommentID:   commentID,
		ActorID:     actorID,
		RecipientID: recipientID,
	}
}

// ToMap serializes the event for XADD. Streams store field-value pairs, so
// the full payload travels as JSON in a "data" field with the type exposed
// alongside for quick filtering.
func (e FeedEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseFeedEvent decodes a FeedEvent from stream message values.
func ParseFeedEvent(values map[string]interface{}) (FeedEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return FeedEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event FeedEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return FeedEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}

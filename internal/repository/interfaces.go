package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/cache"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	UpdateProfile(ctx context.Context, userID int64, bio *string, isPrivate *bool) error
	UpdateAvatar(ctx context.Context, userID int64, avatarURL, avatarKey string) (oldKey *string, err error)
	Delete(ctx context.Context, userID int64) error
	IncrementFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	IncrementFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	// RecordGymVisit bumps sesh_count at most once per UTC day and stamps
	// last_gym_visit. Returns counted=false when the streak was already
	// bumped today.
	RecordGymVisit(ctx context.Context, userID int64, now time.Time) (seshCount int, lastVisit time.Time, counted bool, err error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type FollowRepository interface {
	// Create inserts a follow edge. Set semantics: a duplicate insert is a
	// no-op and returns inserted=false.
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)

	// Follow request staging for private accounts.
	CreateRequest(ctx context.Context, requesterID, receiverID int64) (bool, error)
	DeleteRequest(ctx context.Context, tx *sqlx.Tx, requesterID, receiverID int64) (bool, error)
	RequestExists(ctx context.Context, requesterID, receiverID int64) (bool, error)
	GetRequesters(ctx context.Context, receiverID int64) ([]model.UserSummary, error)
}

type PostRepository interface {
	Create(ctx context.Context, userID int64, caption, split *string, media []model.MediaItem) (*model.Post, error)
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error)
	Delete(ctx context.Context, postID, userID int64) error
	GetUserThumbnails(ctx context.Context, userID int64, cursor *string, limit int) ([]model.PostThumbnail, *string, error)
	GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error)
	GetFeedPostIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.PostScore, error)
	// GetExplorePosts returns posts authored by users NOT in excludeAuthorIDs,
	// newest first with cursor pagination. Used by the explore feed.
	GetExplorePosts(ctx context.Context, excludeAuthorIDs []int64, cursor *string, limit int) ([]model.Post, *string, error)
	GetAuthorID(ctx context.Context, postID int64) (int64, error)
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	// Like methods: row insert/delete plus transactional counter updates.
	Like(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error
	Unlike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error
	GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.UserSummary, *string, error)
	IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error
	IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error
	Exists(ctx context.Context, postID int64) (bool, error)
}

type CommentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, postID, userID int64, content string, parentID *int64) (*model.Comment, error)
	Delete(ctx context.Context, tx *sqlx.Tx, commentID, userID int64) (postID int64, err error)
	GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error)
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
}

type ForumRepository interface {
	CreatePost(ctx context.Context, userID int64, title, body string, media []model.MediaItem) (*model.ForumPost, error)
	GetPost(ctx context.Context, postID int64) (*model.ForumPost, error)
	// ListPosts returns non-deleted forum posts created since the given time
	// (zero time = all), with like counts derived from the membership set.
	// Most-liked posts come first so the limit never drops the top of the
	// board.
	ListPosts(ctx context.Context, since time.Time, limit int) ([]model.ForumPost, error)
	DeletePost(ctx context.Context, postID, userID int64) error
	PostExists(ctx context.Context, postID int64) (bool, error)

	// ToggleLike flips set membership for (postID, userID) and returns the
	// resulting state plus the new set size. No counter transaction: the
	// like set is rows, concurrent togglers touch independent rows.
	ToggleLike(ctx context.Context, postID, userID int64) (liked bool, likeCount int, err error)
	ToggleReplyLike(ctx context.Context, replyID, userID int64) (liked bool, likeCount int, err error)
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)

	// Reply arena: flat rows with parent links, never nested documents.
	CreateReply(ctx context.Context, postID, userID int64, parentReplyID *int64, content string) (*model.ForumReply, error)
	GetReply(ctx context.Context, replyID int64) (*model.ForumReply, error)
	GetReplies(ctx context.Context, postID int64) ([]model.ForumReply, error)
	DeleteReply(ctx context.Context, replyID, userID int64) error
}

type NotificationRepository interface {
	// Create appends one ledger record per triggering event.
	Create(ctx context.Context, userID, actorID int64, notifType string, postID, commentID *int64) error
	// GetFollowNotifications returns non-aggregated follow and
	// follow-request notifications + unread count
	GetFollowNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error, int)
	// GetAggregatedNotifications returns likes/comments grouped by post + unread count
	GetAggregatedNotifications(ctx context.Context, userID int64, limit int) ([]model.AggregatedNotification, error, int)
	MarkAsRead(ctx context.Context, userID int64, notificationIDs []int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	// Remove deletes a notification by id, scoped to its recipient.
	Remove(ctx context.Context, userID, notificationID int64) error
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
}

type ChatRepository interface {
	// GetOrCreate returns the chat for the normalized user pair, creating it
	// if absent. Safe under concurrent first messages.
	GetOrCreate(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*model.Chat, error)
	GetByID(ctx context.Context, chatID int64) (*model.Chat, error)
	GetByPair(ctx context.Context, userA, userB int64) (*model.Chat, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Chat, error)
	// InsertMessage appends a message and refreshes the chat's last-message
	// snapshot plus the recipient's unread counter, all inside tx.
	InsertMessage(ctx context.Context, tx *sqlx.Tx, chat *model.Chat, msg *model.Message) error
	GetMessages(ctx context.Context, chatID int64, cursor *string, limit int) ([]model.Message, *string, error)
	// MarkRead zeroes the reader's unread counter and flags the peer's
	// messages as read.
	MarkRead(ctx context.Context, chatID, readerID int64) error
}

type HealthRepository interface {
	// UpsertDailySample overwrites the (user, day) row with device-reported
	// totals; re-syncs are idempotent.
	UpsertDailySample(ctx context.Context, userID int64, day time.Time, steps int64, activeEnergy float64) (*model.HealthSample, error)
	GetSamples(ctx context.Context, userID int64, from, to time.Time) ([]model.HealthSample, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or updates a device token for a user
	Upsert(ctx context.Context, userID int64, token, platform string) error
	// GetByUserID returns all device tokens for a user
	GetByUserID(ctx context.Context, userID int64) ([]model.DeviceToken, error)
	// Delete removes a device token
	Delete(ctx context.Context, token string) error
}

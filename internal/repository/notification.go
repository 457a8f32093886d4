package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create appends one ledger record. The ledger is append-only: a repeat of
// the same event (same recipient, actor, type, post) is absorbed by the
// conflict clause instead of duplicating the row.
func (r *notificationRepository) Create(ctx context.Context, userID, actorID int64, notifType string, postID, commentID *int64) error {
	query := `
		INSERT INTO notifications (user_id, actor_id, type, post_id, comment_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, actor_id, type, post_id) WHERE post_id IS NOT NULL DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, userID, actorID, notifType, postID, commentID)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// GetFollowNotifications returns follow and follow-request notifications for
// a user, newest first, with actor details joined.
func (r *notificationRepository) GetFollowNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error, int) {
	query := `
		SELECT n.id, n.user_id, n.actor_id, n.type, n.post_id, n.comment_id, n.is_read, n.created_at,
		       u.id as "actor.id", u.username as "actor.username", u.avatar_url as "actor.avatar_url"
		FROM notifications n
		JOIN users u ON u.id = n.actor_id
		WHERE n.user_id = $1 AND n.type IN ($2, $3)
		ORDER BY n.created_at DESC
		LIMIT $4
	`

	rows, err := r.db.QueryxContext(ctx, query, userID,
		model.NotificationTypeFollow, model.NotificationTypeFollowRequest, limit)
	if err != nil {
		return nil, fmt.Errorf("get follow notifications: %w", err), 0
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var actor model.UserSummary
		err := rows.Scan(&n.ID, &n.UserID, &n.ActorID, &n.Type, &n.PostID, &n.CommentID, &n.IsRead, &n.CreatedAt,
			&actor.ID, &actor.Username, &actor.AvatarURL)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err), 0
		}
		n.Actor = &actor
		notifications = append(notifications, n)
	}

	unread, err := r.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err, 0
	}

	return notifications, nil, unread
}

// GetAggregatedNotifications groups like/comment notifications by (type,
// post), most recent group first. Each group carries up to three actors and
// the total actor count.
func (r *notificationRepository) GetAggregatedNotifications(ctx context.Context, userID int64, limit int) ([]model.AggregatedNotification, error, int) {
	query := `
		SELECT n.type, n.post_id,
		       MAX(n.created_at) as latest_at,
		       COUNT(DISTINCT n.actor_id) as total_count,
		       BOOL_AND(n.is_read) as is_read,
		       (ARRAY_AGG(n.actor_id ORDER BY n.created_at DESC))[1:3] as actor_ids
		FROM notifications n
		WHERE n.user_id = $1 AND n.type IN ($2, $3)
		GROUP BY n.type, n.post_id
		ORDER BY latest_at DESC
		LIMIT $4
	`

	rows, err := r.db.QueryxContext(ctx, query, userID,
		model.NotificationTypeLike, model.NotificationTypeComment, limit)
	if err != nil {
		return nil, fmt.Errorf("get aggregated notifications: %w", err), 0
	}
	defer rows.Close()

	var aggregated []model.AggregatedNotification
	allActorIDs := make(map[int64]bool)
	actorsByGroup := make([][]int64, 0)

	for rows.Next() {
		var agg model.AggregatedNotification
		var actorIDs pq.Int64Array
		err := rows.Scan(&agg.Type, &agg.PostID, &agg.LatestAt, &agg.TotalCount, &agg.IsRead, &actorIDs)
		if err != nil {
			return nil, fmt.Errorf("scan aggregated notification: %w", err), 0
		}
		for _, id := range actorIDs {
			allActorIDs[id] = true
		}
		actorsByGroup = append(actorsByGroup, []int64(actorIDs))
		aggregated = append(aggregated, agg)
	}

	// Hydrate the leading actors for every group in one query.
	if len(allActorIDs) > 0 {
		ids := make([]int64, 0, len(allActorIDs))
		for id := range allActorIDs {
			ids = append(ids, id)
		}
		var users []model.UserSummary
		err := r.db.SelectContext(ctx, &users, `SELECT id, username, avatar_url FROM users WHERE id = ANY($1)`, pq.Array(ids))
		if err != nil {
			return nil, fmt.Errorf("get notification actors: %w", err), 0
		}
		byID := make(map[int64]model.UserSummary, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}
		for i := range aggregated {
			for _, actorID := range actorsByGroup[i] {
				if u, ok := byID[actorID]; ok {
					aggregated[i].Actors = append(aggregated[i].Actors, u)
				}
			}
		}
	}

	unread, err := r.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err, 0
	}

	return aggregated, nil, unread
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, userID int64, notificationIDs []int64) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND id = ANY($2)`
	_, err := r.db.ExecContext(ctx, query, userID, pq.Array(notificationIDs))
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// Remove deletes a notification by id, scoped to its recipient so one user
// cannot delete another's records.
func (r *notificationRepository) Remove(ctx context.Context, userID, notificationID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("remove notification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("get unread count: %w", err)
	}
	return count, nil
}

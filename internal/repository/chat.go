package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

type chatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) ChatRepository {
	return &chatRepository{db: db}
}

const chatColumns = `id, user_a_id, user_b_id, last_message, last_sender_id, last_message_at, unread_a, unread_b, created_at`

// normalizePair orders the two participant ids so (a, b) and (b, a) resolve
// to the same chat row.
func normalizePair(userA, userB int64) (int64, int64) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

// GetOrCreate returns the chat for the normalized pair, inserting it if
// absent. ON CONFLICT plus the re-read makes concurrent first messages from
// both sides converge on a single row.
func (r *chatRepository) GetOrCreate(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*model.Chat, error) {
	a, b := normalizePair(userA, userB)

	insert := `
		INSERT INTO chats (user_a_id, user_b_id)
		VALUES ($1, $2)
		ON CONFLICT (user_a_id, user_b_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, a, b); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	var chat model.Chat
	query := `SELECT ` + chatColumns + ` FROM chats WHERE user_a_id = $1 AND user_b_id = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &chat, query, a, b); err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}

	return &chat, nil
}

func (r *chatRepository) GetByID(ctx context.Context, chatID int64) (*model.Chat, error) {
	var chat model.Chat
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	err := r.db.GetContext(ctx, &chat, query, chatID)
	if err == sql.ErrNoRows {
		return nil, model.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat by id: %w", err)
	}
	return &chat, nil
}

func (r *chatRepository) GetByPair(ctx context.Context, userA, userB int64) (*model.Chat, error) {
	a, b := normalizePair(userA, userB)

	var chat model.Chat
	query := `SELECT ` + chatColumns + ` FROM chats WHERE user_a_id = $1 AND user_b_id = $2`
	err := r.db.GetContext(ctx, &chat, query, a, b)
	if err == sql.ErrNoRows {
		return nil, model.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat by pair: %w", err)
	}
	return &chat, nil
}

// ListForUser returns the viewer's inbox ordered by most recent activity,
// peers joined in and the viewer's unread counter resolved.
func (r *chatRepository) ListForUser(ctx context.Context, userID int64) ([]model.Chat, error) {
	query := `
		SELECT c.id, c.user_a_id, c.user_b_id, c.last_message, c.last_sender_id, c.last_message_at,
		       c.unread_a, c.unread_b, c.created_at,
		       u.id as "peer.id", u.username as "peer.username", u.avatar_url as "peer.avatar_url"
		FROM chats c
		JOIN users u ON u.id = CASE WHEN c.user_a_id = $1 THEN c.user_b_id ELSE c.user_a_id END
		WHERE c.user_a_id = $1 OR c.user_b_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
	`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		var c model.Chat
		var peer model.UserSummary
		err := rows.Scan(&c.ID, &c.UserAID, &c.UserBID, &c.LastMessage, &c.LastSenderID, &c.LastMessageAt,
			&c.UnreadA, &c.UnreadB, &c.CreatedAt,
			&peer.ID, &peer.Username, &peer.AvatarURL)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c.Peer = &peer
		c.UnreadCount = c.UnreadFor(userID)
		chats = append(chats, c)
	}

	return chats, nil
}

// InsertMessage appends the message and refreshes the chat's denormalized
// state in the same transaction: last-message snapshot plus the recipient's
// unread counter. msg.ChatID and msg.SenderID must be set by the caller.
func (r *chatRepository) InsertMessage(ctx context.Context, tx *sqlx.Tx, chat *model.Chat, msg *model.Message) error {
	insert := `
		INSERT INTO messages (chat_id, sender_id, text, media_url, media_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at
	`
	err := tx.QueryRowxContext(ctx, insert, msg.ChatID, msg.SenderID, msg.Text, msg.MediaURL, msg.MediaType).
		Scan(&msg.ID, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	snapshot := msg.Text
	if snapshot == nil {
		attachment := "[media]"
		snapshot = &attachment
	}

	var unreadColumn string
	if chat.PeerID(msg.SenderID) == chat.UserAID {
		unreadColumn = "unread_a"
	} else {
		unreadColumn = "unread_b"
	}

	update := fmt.Sprintf(`
		UPDATE chats
		SET last_message = $2, last_sender_id = $3, last_message_at = $4, %s = %s + 1
		WHERE id = $1
	`, unreadColumn, unreadColumn)
	_, err = tx.ExecContext(ctx, update, chat.ID, snapshot, msg.SenderID, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("update chat snapshot: %w", err)
	}

	return nil
}

// GetMessages returns one chat's history newest first with cursor pagination.
func (r *chatRepository) GetMessages(ctx context.Context, chatID int64, cursor *string, limit int) ([]model.Message, *string, error) {
	var query string
	var args []interface{}

	if cursor == nil {
		query = `
			SELECT id, chat_id, sender_id, text, media_url, media_type, is_read, created_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`
		args = []interface{}{chatID, limit + 1}
	} else {
		ts, id, err := parseCursor(*cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query = `
			SELECT id, chat_id, sender_id, text, media_url, media_type, is_read, created_at
			FROM messages
			WHERE chat_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`
		args = []interface{}{chatID, ts, id, limit + 1}
	}

	var messages []model.Message
	err := r.db.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("get messages: %w", err)
	}

	var nextCursor *string
	if len(messages) > limit {
		messages = messages[:limit]
		last := messages[len(messages)-1]
		c := formatCursor(last.CreatedAt, last.ID)
		nextCursor = &c
	}

	return messages, nextCursor, nil
}

// MarkRead zeroes the reader's unread counter and flags the peer's messages
// as read in one transaction.
func (r *chatRepository) MarkRead(ctx context.Context, chatID, readerID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var chat model.Chat
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1 FOR UPDATE`
	err = tx.GetContext(ctx, &chat, query, chatID)
	if err == sql.ErrNoRows {
		return model.ErrChatNotFound
	}
	if err != nil {
		return fmt.Errorf("get chat: %w", err)
	}

	if readerID != chat.UserAID && readerID != chat.UserBID {
		return model.ErrNotChatParticipant
	}

	unreadColumn := "unread_b"
	if readerID == chat.UserAID {
		unreadColumn = "unread_a"
	}

	update := fmt.Sprintf(`UPDATE chats SET %s = 0 WHERE id = $1`, unreadColumn)
	if _, err := tx.ExecContext(ctx, update, chatID); err != nil {
		return fmt.Errorf("reset unread counter: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE chat_id = $1 AND sender_id != $2 AND is_read = FALSE
	`, chatID, readerID)
	if err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}

	return tx.Commit()
}

package model

import (
	"errors"
	"time"
)

// Chat is a direct-message room between exactly two users. The pair is
// normalized so user_a_id < user_b_id and unique, making get-or-create safe
// under concurrent first messages. The last-message snapshot and the two
// unread counters are denormalized for the inbox list.
type Chat struct {
	ID            int64      `db:"id" json:"id"`
	UserAID       int64      `db:"user_a_id" json:"user_a_id"`
	UserBID       int64      `db:"user_b_id" json:"user_b_id"`
	LastMessage   *string    `db:"last_message" json:"last_message,omitempty"`
	LastSenderID  *int64     `db:"last_sender_id" json:"last_sender_id,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	UnreadA       int        `db:"unread_a" json:"-"`
	UnreadB       int        `db:"unread_b" json:"-"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`

	// Joined fields, resolved for the viewer
	Peer        *UserSummary `json:"peer,omitempty"`
	UnreadCount int          `json:"unread_count"`
}

// UnreadFor returns the unread counter belonging to the given participant.
func (c *Chat) UnreadFor(userID int64) int {
	if userID == c.UserAID {
		return c.UnreadA
	}
	return c.UnreadB
}

// PeerID returns the other participant's id.
func (c *Chat) PeerID(userID int64) int64 {
	if userID == c.UserAID {
		return c.UserBID
	}
	return c.UserAID
}

// Message is a single chat message: either text or a media reference, never
// both absent.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	ChatID    int64     `db:"chat_id" json:"chat_id"`
	SenderID  int64     `db:"sender_id" json:"sender_id"`
	Text      *string   `db:"text" json:"text,omitempty"`
	MediaURL  *string   `db:"media_url" json:"media_url,omitempty"`
	MediaType *string   `db:"media_type" json:"media_type,omitempty"` // MediaTypeImage or MediaTypeVideo
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SendMessageRequest is the request body for POST /chats/{userID}/messages.
type SendMessageRequest struct {
	Text  *string    `json:"text,omitempty"`
	Media *MediaItem `json:"media,omitempty"`
}

// ChatListResponse is the viewer's inbox.
type ChatListResponse struct {
	Chats []Chat `json:"chats"`
}

// MessageListResponse is the paginated message history of one chat.
type MessageListResponse struct {
	Messages   []Message `json:"messages"`
	NextCursor *string   `json:"next_cursor,omitempty"`
	HasMore    bool      `json:"has_more"`
}

// Message constraints
const (
	MaxMessageLength = 4000
)

// Chat errors
var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrNotChatParticipant = errors.New("not a participant of this chat")
	ErrEmptyMessage       = errors.New("message must contain text or media")
	ErrMessageTooLong     = errors.New("message text too long")
	ErrCannotMessageSelf  = errors.New("cannot message yourself")
)

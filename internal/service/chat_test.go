package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

// ===== MOCK REPOSITORY =====

type mockChatRepository struct {
	getOrCreateFn   func(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*model.Chat, error)
	getByIDFn       func(ctx context.Context, chatID int64) (*model.Chat, error)
	getByPairFn     func(ctx context.Context, userA, userB int64) (*model.Chat, error)
	listForUserFn   func(ctx context.Context, userID int64) ([]model.Chat, error)
	insertMessageFn func(ctx context.Context, tx *sqlx.Tx, chat *model.Chat, msg *model.Message) error
	getMessagesFn   func(ctx context.Context, chatID int64, cursor *string, limit int) ([]model.Message, *string, error)
	markReadFn      func(ctx context.Context, chatID, readerID int64) error

	markReadCalls []int64
}

func (m *mockChatRepository) GetOrCreate(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*model.Chat, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, tx, userA, userB)
	}
	return nil, model.ErrChatNotFound
}

func (m *mockChatRepository) GetByID(ctx context.Context, chatID int64) (*model.Chat, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, chatID)
	}
	return nil, model.ErrChatNotFound
}

func (m *mockChatRepository) GetByPair(ctx context.Context, userA, userB int64) (*model.Chat, error) {
	if m.getByPairFn != nil {
		return m.getByPairFn(ctx, userA, userB)
	}
	return nil, model.ErrChatNotFound
}

func (m *mockChatRepository) ListForUser(ctx context.Context, userID int64) ([]model.Chat, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockChatRepository) InsertMessage(ctx context.Context, tx *sqlx.Tx, chat *model.Chat, msg *model.Message) error {
	if m.insertMessageFn != nil {
		return m.insertMessageFn(ctx, tx, chat, msg)
	}
	return nil
}

func (m *mockChatRepository) GetMessages(ctx context.Context, chatID int64, cursor *string, limit int) ([]model.Message, *string, error) {
	if m.getMessagesFn != nil {
		return m.getMessagesFn(ctx, chatID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockChatRepository) MarkRead(ctx context.Context, chatID, readerID int64) error {
	m.markReadCalls = append(m.markReadCalls, chatID)
	if m.markReadFn != nil {
		return m.markReadFn(ctx, chatID, readerID)
	}
	return nil
}

// ===== SEND MESSAGE VALIDATION =====

func TestChatService_SendMessage_Validation(t *testing.T) {
	text := "hey"
	longText := strings.Repeat("x", model.MaxMessageLength+1)
	empty := ""

	tests := []struct {
		name    string
		peerID  int64
		req     model.SendMessageRequest
		wantErr error
	}{
		{
			name:    "self message",
			peerID:  1,
			req:     model.SendMessageRequest{Text: &text},
			wantErr: model.ErrCannotMessageSelf,
		},
		{
			name:    "no text or media",
			peerID:  2,
			req:     model.SendMessageRequest{},
			wantErr: model.ErrEmptyMessage,
		},
		{
			name:    "empty text string",
			peerID:  2,
			req:     model.SendMessageRequest{Text: &empty},
			wantErr: model.ErrEmptyMessage,
		},
		{
			name:    "text too long",
			peerID:  2,
			req:     model.SendMessageRequest{Text: &longText},
			wantErr: model.ErrMessageTooLong,
		},
		{
			name:    "media with no url",
			peerID:  2,
			req:     model.SendMessageRequest{Media: &model.MediaItem{Type: model.MediaTypeImage}},
			wantErr: model.ErrInvalidMedia,
		},
		{
			name:    "media with bad type",
			peerID:  2,
			req:     model.SendMessageRequest{Media: &model.MediaItem{URL: "https://cdn/x", Type: "gif"}},
			wantErr: model.ErrInvalidMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewChatService(&mockChatRepository{}, &mockUserRepository{}, nil)
			_, err := svc.SendMessage(context.Background(), 1, tt.peerID, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SendMessage error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatService_SendMessage_UnknownPeer(t *testing.T) {
	text := "hello?"
	svc := NewChatService(&mockChatRepository{}, &mockUserRepository{}, nil)

	_, err := svc.SendMessage(context.Background(), 1, 404, model.SendMessageRequest{Text: &text})
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("SendMessage error = %v, want ErrUserNotFound", err)
	}
}

// ===== MESSAGE HISTORY =====

func TestChatService_GetMessages_ParticipantsOnly(t *testing.T) {
	chat := &model.Chat{ID: 10, UserAID: 1, UserBID: 2}
	chatRepo := &mockChatRepository{
		getByIDFn: func(ctx context.Context, chatID int64) (*model.Chat, error) {
			return chat, nil
		},
		getMessagesFn: func(ctx context.Context, chatID int64, cursor *string, limit int) ([]model.Message, *string, error) {
			return []model.Message{{ID: 1, ChatID: chatID, SenderID: 2}}, nil, nil
		},
	}
	svc := NewChatService(chatRepo, &mockUserRepository{}, nil)

	// A participant can read.
	resp, err := svc.GetMessages(context.Background(), 10, 1, nil, 30)
	if err != nil {
		t.Fatalf("GetMessages returned error: %v", err)
	}
	if len(resp.Messages) != 1 {
		t.Errorf("got %d messages, want 1", len(resp.Messages))
	}
	if resp.HasMore {
		t.Error("single page should not report has_more")
	}

	// An outsider cannot.
	_, err = svc.GetMessages(context.Background(), 10, 99, nil, 30)
	if !errors.Is(err, model.ErrNotChatParticipant) {
		t.Errorf("outsider error = %v, want ErrNotChatParticipant", err)
	}
}

func TestChatService_GetMessages_ClampsLimit(t *testing.T) {
	var gotLimit int
	chatRepo := &mockChatRepository{
		getByIDFn: func(ctx context.Context, chatID int64) (*model.Chat, error) {
			return &model.Chat{ID: chatID, UserAID: 1, UserBID: 2}, nil
		},
		getMessagesFn: func(ctx context.Context, chatID int64, cursor *string, limit int) ([]model.Message, *string, error) {
			gotLimit = limit
			return nil, nil, nil
		},
	}
	svc := NewChatService(chatRepo, &mockUserRepository{}, nil)

	tests := []struct {
		in, want int
	}{
		{in: 0, want: 30},
		{in: -1, want: 30},
		{in: 50, want: 50},
		{in: 500, want: 100},
	}
	for _, tt := range tests {
		if _, err := svc.GetMessages(context.Background(), 10, 1, nil, tt.in); err != nil {
			t.Fatalf("GetMessages(%d): %v", tt.in, err)
		}
		if gotLimit != tt.want {
			t.Errorf("limit %d clamped to %d, want %d", tt.in, gotLimit, tt.want)
		}
	}
}

// ===== INBOX =====

func TestChatService_ListChats(t *testing.T) {
	last := "see you at the gym"
	chatRepo := &mockChatRepository{
		listForUserFn: func(ctx context.Context, userID int64) ([]model.Chat, error) {
			return []model.Chat{{ID: 1, UserAID: userID, UserBID: 2, LastMessage: &last, UnreadCount: 3}}, nil
		},
	}
	svc := NewChatService(chatRepo, &mockUserRepository{}, nil)

	resp, err := svc.ListChats(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListChats returned error: %v", err)
	}
	if len(resp.Chats) != 1 || resp.Chats[0].UnreadCount != 3 {
		t.Errorf("inbox = %+v, want one chat with 3 unread", resp.Chats)
	}
}

func TestChatService_MarkRead_Delegates(t *testing.T) {
	chatRepo := &mockChatRepository{}
	svc := NewChatService(chatRepo, &mockUserRepository{}, nil)

	if err := svc.MarkRead(context.Background(), 10, 1); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	if len(chatRepo.markReadCalls) != 1 || chatRepo.markReadCalls[0] != 10 {
		t.Errorf("MarkRead calls = %v, want [10]", chatRepo.markReadCalls)
	}
}

// ===== PAIR HELPERS =====

func TestChatUnreadForAndPeerID(t *testing.T) {
	chat := &model.Chat{ID: 1, UserAID: 3, UserBID: 8, UnreadA: 2, UnreadB: 5}

	if got := chat.UnreadFor(3); got != 2 {
		t.Errorf("UnreadFor(3) = %d, want 2", got)
	}
	if got := chat.UnreadFor(8); got != 5 {
		t.Errorf("UnreadFor(8) = %d, want 5", got)
	}
	if got := chat.PeerID(3); got != 8 {
		t.Errorf("PeerID(3) = %d, want 8", got)
	}
	if got := chat.PeerID(8); got != 3 {
		t.Errorf("PeerID(8) = %d, want 3", got)
	}
}

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

// ChatService handles direct messages. Conversations are normalized user
// pairs; the inbox runs off denormalized last-message snapshots and unread
// counters maintained transactionally on every send.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	db       *sqlx.DB
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, db *sqlx.DB) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		db:       db,
	}
}

// SendMessage delivers a message from sender to peer, creating the chat on
// first contact. The message insert, the last-message snapshot, and the
// recipient's unread bump all commit together.
func (s *ChatService) SendMessage(ctx context.Context, senderID, peerID int64, req model.SendMessageRequest) (*model.Message, error) {
	if senderID == peerID {
		return nil, model.ErrCannotMessageSelf
	}

	hasText := req.Text != nil && *req.Text != ""
	hasMedia := req.Media != nil
	if !hasText && !hasMedia {
		return nil, model.ErrEmptyMessage
	}
	if hasText && len(*req.Text) > model.MaxMessageLength {
		return nil, model.ErrMessageTooLong
	}
	if hasMedia && (req.Media.URL == "" || !model.IsValidMediaType(req.Media.Type)) {
		return nil, model.ErrInvalidMedia
	}

	if _, err := s.userRepo.GetByID(ctx, peerID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	chat, err := s.chatRepo.GetOrCreate(ctx, tx, senderID, peerID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{
		ChatID:   chat.ID,
		SenderID: senderID,
	}
	if hasText {
		msg.Text = req.Text
	}
	if hasMedia {
		msg.MediaURL = &req.Media.URL
		msg.MediaType = &req.Media.Type
	}

	if err := s.chatRepo.InsertMessage(ctx, tx, chat, msg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	log.Printf("[ChatService] SendMessage OK: chat=%d sender=%d peer=%d", chat.ID, senderID, peerID)
	return msg, nil
}

// ListChats returns the viewer's inbox, most recent activity first.
func (s *ChatService) ListChats(ctx context.Context, userID int64) (*model.ChatListResponse, error) {
	chats, err := s.chatRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.ChatListResponse{Chats: chats}, nil
}

// GetMessages pages through one chat's history, newest first. Only
// participants can read.
func (s *ChatService) GetMessages(ctx context.Context, chatID, viewerID int64, cursor *string, limit int) (*model.MessageListResponse, error) {
	if limit <= 0 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if viewerID != chat.UserAID && viewerID != chat.UserBID {
		return nil, model.ErrNotChatParticipant
	}

	messages, nextCursor, err := s.chatRepo.GetMessages(ctx, chatID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &model.MessageListResponse{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}

// MarkRead zeroes the viewer's unread counter for one chat.
func (s *ChatService) MarkRead(ctx context.Context, chatID, viewerID int64) error {
	return s.chatRepo.MarkRead(ctx, chatID, viewerID)
}

package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/hairkim/Fitness-App-sub000/internal/httputil"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/service"
	"github.com/hairkim/Fitness-App-sub000/internal/transport/http/middleware"
)

type ChatHandler struct {
	chatService  *service.ChatService
	mediaService *service.MediaService
}

func NewChatHandler(chatService *service.ChatService, mediaService *service.MediaService) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		mediaService: mediaService,
	}
}

// List handles GET /chats (the viewer's inbox).
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	result, err := h.chatService.ListChats(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] ListChats handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to list chats")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SendMessage handles POST /chats/{userID}/messages
// The path parameter is the PEER's user id; the chat is created on first
// contact.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	peerID, err := parseIDParam(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), senderID, peerID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotMessageSelf),
			errors.Is(err, model.ErrEmptyMessage),
			errors.Is(err, model.ErrMessageTooLong),
			errors.Is(err, model.ErrInvalidMedia):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			log.Printf("[ERROR] SendMessage handler: sender=%d err=%v", senderID, err)
			httputil.WriteInternalError(w, "Failed to send message")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// GetMessages handles GET /chats/{id}/messages (newest first, cursor paginated).
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	chatID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid chat ID")
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	result, err := h.chatService.GetMessages(r.Context(), chatID, viewerID, cursor, limit)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrChatNotFound):
			httputil.WriteNotFound(w, "Chat not found")
		case errors.Is(err, model.ErrNotChatParticipant):
			httputil.WriteForbidden(w, "Not a participant of this chat")
		default:
			log.Printf("[ERROR] GetMessages handler: chat=%d err=%v", chatID, err)
			httputil.WriteInternalError(w, "Failed to get messages")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// MarkRead handles POST /chats/{id}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	chatID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid chat ID")
		return
	}

	if err := h.chatService.MarkRead(r.Context(), chatID, viewerID); err != nil {
		switch {
		case errors.Is(err, model.ErrChatNotFound):
			httputil.WriteNotFound(w, "Chat not found")
		case errors.Is(err, model.ErrNotChatParticipant):
			httputil.WriteForbidden(w, "Not a participant of this chat")
		default:
			log.Printf("[ERROR] MarkRead handler: chat=%d err=%v", chatID, err)
			httputil.WriteInternalError(w, "Failed to mark chat read")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Chat marked read",
	})
}

// UploadMedia handles POST /chats/media: a multipart upload whose result is
// referenced from a subsequent SendMessage call.
func (h *ChatHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	maxFormSize := int64(model.MaxMediaSizeBytes) + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "File is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadMedia(r.Context(), model.ChatMediaFolder, file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "File exceeds upload limit")
		case errors.Is(err, model.ErrInvalidMediaType):
			httputil.WriteBadRequest(w, "Unsupported media type")
		default:
			log.Printf("[ERROR] ChatUploadMedia handler: %v", err)
			httputil.WriteInternalError(w, "Failed to upload media")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, upload)
}

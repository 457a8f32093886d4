package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hairkim/Fitness-App-sub000/internal/httputil"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/service"
	"github.com/hairkim/Fitness-App-sub000/internal/transport/http/middleware"
)

type ForumHandler struct {
	forumService *service.ForumService
}

func NewForumHandler(forumService *service.ForumService) *ForumHandler {
	return &ForumHandler{
		forumService: forumService,
	}
}

// GetFeed handles GET /forum?sort=top_week&search=bench
// sort defaults to hot; search is a case-insensitive substring match over
// title and body applied after sorting.
func (h *ForumHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	sortOpt, err := model.ParseSortOption(r.URL.Query().Get("sort"))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid sort option")
		return
	}

	search := r.URL.Query().Get("search")

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	feed, err := h.forumService.GetFeed(r.Context(), sortOpt, search, viewerID)
	if err != nil {
		log.Printf("[ERROR] ForumFeed handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get forum feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}

// CreatePost handles POST /forum
func (h *ForumHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.CreateForumPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.forumService.CreatePost(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTitleRequired),
			errors.Is(err, model.ErrTitleTooLong),
			errors.Is(err, model.ErrBodyTooLong),
			errors.Is(err, model.ErrInvalidMedia):
			httputil.WriteBadRequest(w, err.Error())
		default:
			log.Printf("[ERROR] CreateForumPost handler: %v", err)
			httputil.WriteInternalError(w, "Failed to create forum post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// GetPost handles GET /forum/{id}
func (h *ForumHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	post, err := h.forumService.GetPost(r.Context(), postID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrForumPostNotFound) {
			httputil.WriteNotFound(w, "Forum post not found")
			return
		}
		log.Printf("[ERROR] GetForumPost handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get forum post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /forum/{id}
func (h *ForumHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if err := h.forumService.DeletePost(r.Context(), postID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrForumPostNotFound):
			httputil.WriteNotFound(w, "Forum post not found")
		case errors.Is(err, model.ErrNotForumPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			log.Printf("[ERROR] DeleteForumPost handler: %v", err)
			httputil.WriteInternalError(w, "Failed to delete forum post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Forum post deleted",
	})
}

// ToggleLike handles POST /forum/{id}/like
// Idempotent toggle: the response carries the resulting state.
func (h *ForumHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	result, err := h.forumService.ToggleLike(r.Context(), postID, userID)
	if err != nil {
		if errors.Is(err, model.ErrForumPostNotFound) {
			httputil.WriteNotFound(w, "Forum post not found")
			return
		}
		log.Printf("[ERROR] ToggleForumLike handler: %v", err)
		httputil.WriteInternalError(w, "Failed to toggle like")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// CreateReply handles POST /forum/{id}/replies
func (h *ForumHandler) CreateReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	var req model.CreateForumReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	reply, err := h.forumService.CreateReply(r.Context(), postID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrReplyRequired), errors.Is(err, model.ErrReplyTooLong):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrForumPostNotFound):
			httputil.WriteNotFound(w, "Forum post not found")
		case errors.Is(err, model.ErrForumReplyNotFound):
			httputil.WriteBadRequest(w, "Parent reply not found on this post")
		default:
			log.Printf("[ERROR] CreateForumReply handler: %v", err)
			httputil.WriteInternalError(w, "Failed to create reply")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, reply)
}

// GetReplies handles GET /forum/{id}/replies
// Returns the whole flat arena; the client rebuilds the tree from parent links.
func (h *ForumHandler) GetReplies(w http.ResponseWriter, r *http.Request) {
	postID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	result, err := h.forumService.GetReplies(r.Context(), postID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrForumPostNotFound) {
			httputil.WriteNotFound(w, "Forum post not found")
			return
		}
		log.Printf("[ERROR] GetForumReplies handler: %v", err)
		httputil.WriteInternalError(w, "Failed to get replies")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// ToggleReplyLike handles POST /forum/replies/{id}/like
func (h *ForumHandler) ToggleReplyLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	replyID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid reply ID")
		return
	}

	result, err := h.forumService.ToggleReplyLike(r.Context(), replyID, userID)
	if err != nil {
		if errors.Is(err, model.ErrForumReplyNotFound) {
			httputil.WriteNotFound(w, "Forum reply not found")
			return
		}
		log.Printf("[ERROR] ToggleReplyLike handler: %v", err)
		httputil.WriteInternalError(w, "Failed to toggle reply like")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// DeleteReply handles DELETE /forum/replies/{id}
func (h *ForumHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	replyID, err := parseIDParam(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid reply ID")
		return
	}

	if err := h.forumService.DeleteReply(r.Context(), replyID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrForumReplyNotFound):
			httputil.WriteNotFound(w, "Forum reply not found")
		default:
			log.Printf("[ERROR] DeleteForumReply handler: %v", err)
			httputil.WriteInternalError(w, "Failed to delete reply")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Reply deleted",
	})
}

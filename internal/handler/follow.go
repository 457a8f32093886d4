package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hairkim/Fitness-App-sub000/internal/httputil"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/service"
	"github.com/hairkim/Fitness-App-sub000/internal/transport/http/middleware"
)

type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
	}
}

// Follow handles POST /users/{id}/follow. The response status tells the
// client whether it became "following" immediately or "requested" because
// the target account is private.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followeeIDStr := chi.URLParam(r, "id")
	followeeID, err := strconv.ParseInt(followeeIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	status, err := h.followService.Follow(r.Context(), followerID, followeeID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Follow handler: %v", err)
			httputil.WriteInternalError(w, "Failed to follow user")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.FollowResponse{Status: status})
}

// Unfollow handles DELETE /users/{id}/follow. Also withdraws a pending
// request against a private account.
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followeeIDStr := chi.URLParam(r, "id")
	followeeID, err := strconv.ParseInt(followeeIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Unfollow(r.Context(), followerID, followeeID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] Unfollow handler: %v", err)
			httputil.WriteInternalError(w, "Failed to unfollow user")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully unfollowed user",
	})
}

// RemoveFollower handles DELETE /me/followers/{id}, expelling an existing
// follower from the caller's follower list.
func (h *FollowHandler) RemoveFollower(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followerIDStr := chi.URLParam(r, "id")
	followerID, err := strconv.ParseInt(followerIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.RemoveFollower(r.Context(), userID, followerID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteNotFound(w, "User is not a follower")
		default:
			log.Printf("[ERROR] RemoveFollower handler: %v", err)
			httputil.WriteInternalError(w, "Failed to remove follower")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follower removed",
	})
}

// GetRequests handles GET /me/follow-requests
func (h *FollowHandler) GetRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	result, err := h.followService.GetRequests(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] GetRequests handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch follow requests")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// AcceptRequest handles POST /me/follow-requests/{id}/accept
func (h *FollowHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	requesterIDStr := chi.URLParam(r, "id")
	requesterID, err := strconv.ParseInt(requesterIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.AcceptRequest(r.Context(), receiverID, requesterID); err != nil {
		switch {
		case errors.Is(err, model.ErrNoFollowRequest):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] AcceptRequest handler: %v", err)
			httputil.WriteInternalError(w, "Failed to accept follow request")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request accepted",
	})
}

// DeclineRequest handles POST /me/follow-requests/{id}/decline
func (h *FollowHandler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	receiverID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	requesterIDStr := chi.URLParam(r, "id")
	requesterID, err := strconv.ParseInt(requesterIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.DeclineRequest(r.Context(), receiverID, requesterID); err != nil {
		switch {
		case errors.Is(err, model.ErrNoFollowRequest):
			httputil.WriteNotFound(w, err.Error())
		default:
			log.Printf("[ERROR] DeclineRequest handler: %v", err)
			httputil.WriteInternalError(w, "Failed to decline follow request")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request declined",
	})
}

func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	userIDStr := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, limit, ok := parseTimeCursorParams(w, r)
	if !ok {
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	result, err := h.followService.GetFollowers(r.Context(), userID, cursor, limit, viewerID)
	if err != nil {
		log.Printf("[ERROR] GetFollowers handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch followers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	userIDStr := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	cursor, limit, ok := parseTimeCursorParams(w, r)
	if !ok {
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	result, err := h.followService.GetFollowing(r.Context(), userID, cursor, limit, viewerID)
	if err != nil {
		log.Printf("[ERROR] GetFollowing handler: %v", err)
		httputil.WriteInternalError(w, "Failed to fetch following")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// parseTimeCursorParams reads the shared cursor/limit query params for
// follower/following lists. Writes the error response itself on failure.
func parseTimeCursorParams(w http.ResponseWriter, r *http.Request) (*time.Time, int, bool) {
	var cursor *time.Time
	if cursorStr := r.URL.Query().Get("cursor"); cursorStr != "" {
		parsed, err := time.Parse(time.RFC3339, cursorStr)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid cursor format")
			return nil, 0, false
		}
		cursor = &parsed
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit < 1 || parsedLimit > 100 {
			httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
			return nil, 0, false
		}
		limit = parsedLimit
	}

	return cursor, limit, true
}

package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/hairkim/Fitness-App-sub000/internal/httputil"
	"github.com/hairkim/Fitness-App-sub000/internal/service"
	"github.com/hairkim/Fitness-App-sub000/internal/transport/http/middleware"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns the paginated home feed (posts from followed users plus the
// viewer's own) for the authenticated user.
//
// Query params:
//   - cursor: optional, compound cursor for pagination (format: "id:timestamp")
//   - limit: optional, number of posts per page (default 10, max 50)
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	cursor, limit, ok := parseFeedParams(w, r)
	if !ok {
		return
	}

	feed, err := h.feedService.GetFeed(r.Context(), userID, cursor, limit)
	if err != nil {
		log.Printf("[ERROR] GetFeed handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}

// GetExploreFeed handles GET /feed/explore
// Returns recent posts from accounts the viewer does NOT follow.
func (h *FeedHandler) GetExploreFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	cursor, limit, ok := parseFeedParams(w, r)
	if !ok {
		return
	}

	feed, err := h.feedService.GetExploreFeed(r.Context(), userID, cursor, limit)
	if err != nil {
		log.Printf("[ERROR] GetExploreFeed handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get explore feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}

func parseFeedParams(w http.ResponseWriter, r *http.Request) (*string, int, bool) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return nil, 0, false
		}
		limit = parsed
	}

	return cursor, limit, true
}

package handler

import (
	"log"
	"net/http"

	"artgram/internal/httputil"
)

type FeedHandler struct {
	feedService FeedService
}

func NewFeedHandler(feedService FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns every user's posts, newest first. Anonymous callers are allowed;
// an authenticated viewer also gets is_liked per post.
//
// Query params:
//   - cursor: optional, next_cursor of the previous page (format: "id:unix_micro")
//   - limit: optional, number of posts per page (default 20, max 50)
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		httputil.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	viewerID := viewerFromContext(r)
	feed, err := h.feedService.GetFeed(r.Context(), viewerID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		log.Printf("[ERROR] GetFeed handler: viewer=%v err=%v", viewerID != nil, err)
		httputil.WriteInternalError(w, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}

package handler

import (
	"errors"
	"log"
	"net/http"

	"artgram/internal/httputil"
	"artgram/internal/model"
	"artgram/internal/transport/http/middleware"
)

// toggleResponse is the like endpoint's payload. Failures keep the same
// shape so clients can branch on success alone.
type toggleResponse struct {
	Success    bool   `json:"success"`
	Liked      *bool  `json:"liked,omitempty"`
	LikesCount *int   `json:"likes_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

type LikeHandler struct {
	likeService LikeService
}

func NewLikeHandler(likeService LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// Toggle handles /posts/{id}/like for every method. Only an authenticated
// POST toggles; everything else is rejected in the toggle payload.
// Likes the post if the caller has not, otherwise removes the like.
func (h *LikeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, toggleResponse{Error: "Like toggle requires POST"})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, toggleResponse{Error: "Authentication required"})
		return
	}

	postID, ok := idParam(r, "id")
	if !ok {
		httputil.WriteJSON(w, http.StatusBadRequest, toggleResponse{Error: "Invalid post ID"})
		return
	}

	result, err := h.likeService.Toggle(r.Context(), userID, postID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteJSON(w, http.StatusNotFound, toggleResponse{Error: "Post not found"})
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteJSON(w, http.StatusNotFound, toggleResponse{Error: "User not found"})
		default:
			log.Printf("[ERROR] Toggle like handler: user=%d post=%d err=%v", userID, postID, err)
			httputil.WriteJSON(w, http.StatusInternalServerError, toggleResponse{Error: "Failed to toggle like"})
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toggleResponse{
		Success:    true,
		Liked:      &result.Liked,
		LikesCount: &result.LikesCount,
	})
}

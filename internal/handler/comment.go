package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"artgram/internal/httputil"
	"artgram/internal/model"
	"artgram/internal/transport/http/middleware"
)

type CommentHandler struct {
	commentService CommentService
}

func NewCommentHandler(commentService CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// Create handles POST /posts/{id}/comments
// Creates a comment on a post for the authenticated user.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, ok := idParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, formOverhead)
	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), postID, userID, req)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteUnauthorized(w, "User no longer exists")
		default:
			log.Printf("[ERROR] Create comment handler: user=%d post=%d err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /comments/{id}
// Deletes a comment (only owner can delete).
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	commentID, ok := idParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	err := h.commentService.Delete(r.Context(), userID, commentID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You can only delete your own comments")
		default:
			log.Printf("[ERROR] Delete comment handler: user=%d comment=%d err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to delete comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Comment deleted successfully",
	})
}

package handler

import (
	"errors"
	"log"
	"net/http"

	"artgram/internal/httputil"
	"artgram/internal/model"
	"artgram/internal/transport/http/middleware"
)

type PostHandler struct {
	postService PostService
}

func NewPostHandler(postService PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// Create handles POST /posts
// Multipart form: title, content, image (optional).
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if !parseMultipart(w, r, model.MaxPostImageSize) {
		return
	}
	image, closeImage, err := formImage(r, "image")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid image upload")
		return
	}
	defer closeImage()

	req := model.CreatePostRequest{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
		Image:   image,
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteUnauthorized(w, "User no longer exists")
			return
		}
		log.Printf("[ERROR] Create post handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to create post")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// GetByID handles GET /posts/{id}
// Returns the post with its comments, oldest first.
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, ok := idParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	post, err := h.postService.GetDetail(r.Context(), postID, viewerFromContext(r))
	if err != nil {
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		log.Printf("[ERROR] GetByID post handler: post=%d err=%v", postID, err)
		httputil.WriteInternalError(w, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Update handles PATCH /posts/{id}
// Multipart form: title, content, image, remove_image. Omitted fields are left unchanged.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	if !parseMultipart(w, r, model.MaxPostImageSize) {
		return
	}
	image, closeImage, err := formImage(r, "image")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid image upload")
		return
	}
	defer closeImage()

	req := model.UpdatePostRequest{
		Title:       optionalField(r, "title"),
		Content:     optionalField(r, "content"),
		Image:       image,
		RemoveImage: formBool(r, "remove_image"),
	}

	post, err := h.postService.Update(r.Context(), userID, postID, req)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only edit your own posts")
		default:
			log.Printf("[ERROR] Update post handler: user=%d post=%d err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to update post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}
// Deletes a post with its comments and likes (only owner can delete).
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	err := h.postService.Delete(r.Context(), userID, postID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			log.Printf("[ERROR] Delete post handler: user=%d post=%d err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to delete post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted successfully",
	})
}

// GetLikers handles GET /posts/{id}/likes?cursor=&limit=
func (h *PostHandler) GetLikers(w http.ResponseWriter, r *http.Request) {
	postID, ok := idParam(r, "id")
	if !ok {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}
	limit, ok := limitParam(r)
	if !ok {
		httputil.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	result, err := h.postService.ListLikers(r.Context(), postID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		if errors.Is(err, model.ErrPostNotFound) {
			httputil.WriteNotFound(w, "Post not found")
			return
		}
		log.Printf("[ERROR] GetLikers handler: post=%d err=%v", postID, err)
		httputil.WriteInternalError(w, "Failed to get likers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"artgram/internal/httputil"
	"artgram/internal/model"
	"artgram/internal/transport/http/middleware"
)

type UserHandler struct {
	userService UserService
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile handles GET /users/{username}
// Query params cursor and limit page through the user's posts like /feed.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	limit, ok := limitParam(r)
	if !ok {
		httputil.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), username, viewerFromContext(r), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] GetProfile handler: username=%s err=%v", username, err)
		httputil.WriteInternalError(w, "Failed to get profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /me/profile (multipart: bio, website, instagram,
// location, avatar, remove_avatar). Omitted fields are left unchanged.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if !parseMultipart(w, r, model.MaxAvatarSizeBytes) {
		return
	}
	avatar, closeAvatar, err := formImage(r, "avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid avatar upload")
		return
	}
	defer closeAvatar()

	req := model.UpdateProfileRequest{
		Bio:          optionalField(r, "bio"),
		Website:      optionalField(r, "website"),
		Instagram:    optionalField(r, "instagram"),
		Location:     optionalField(r, "location"),
		Avatar:       avatar,
		RemoveAvatar: formBool(r, "remove_avatar"),
	}

	profile, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] UpdateProfile handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to update profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// DeleteMe handles DELETE /me
// Removes the account with everything it owns.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.userService.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] DeleteMe handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to delete account")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: middleware.AccessTokenCookie, Value: "", Path: "/", MaxAge: -1})
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Account deleted successfully",
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"artgram/internal/config"
	"artgram/internal/httputil"
	"artgram/internal/model"
	"artgram/internal/transport/http/middleware"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService UserService
	authService TokenIssuer
	config      *config.Config
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(userService UserService, authService TokenIssuer, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		config:      cfg,
	}
}

// Register handles user sign-up. The profile is created with the account.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, formOverhead)
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		if errors.Is(err, model.ErrUsernameExists) {
			httputil.WriteConflict(w, "Username already exists")
			return
		}
		log.Printf("[ERROR] Register handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to register")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Username == "" {
		httputil.WriteBadRequest(w, "Username is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "Password is required")
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Invalid username or password")
			return
		}
		httputil.WriteInternalError(w, "Failed to login")
		return
	}

	accessToken, expiresIn, err := h.authService.GenerateAccessToken(user.ID)
	if err != nil {
		log.Printf("[ERROR] Login handler: user=%d err=%v", user.ID, err)
		httputil.WriteInternalError(w, "Failed to generate token")
		return
	}

	// Browsers authenticate with the cookie, other clients with the bearer token.
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   expiresIn,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	httputil.WriteJSON(w, http.StatusOK, model.LoginResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   expiresIn,
	})
}

// Me returns the currently authenticated user with their profile
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.userService.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] Me handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

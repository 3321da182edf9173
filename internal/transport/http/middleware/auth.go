package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"artgram/internal/httputil"
	"artgram/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"

	// AccessTokenCookie carries the access token for browser clients.
	AccessTokenCookie = "access_token"
)

var errMissingToken = errors.New("missing token")

// AuthMiddleware creates a middleware that validates JWT tokens
// Checks Authorization header first, then falls back to cookie (for web)
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r, jwtSecret)
			if err != nil {
				switch {
				case errors.Is(err, errMissingToken):
					httputil.WriteUnauthorized(w, "Missing authentication token")
				case errors.Is(err, jwt.ErrTokenExpired):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Access token has expired")
				default:
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				}
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the user id when a valid token is present.
// Anonymous requests and bad tokens pass through unauthenticated.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticate(r, jwtSecret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, jwtSecret string) (int64, error) {
	tokenString := extractToken(r)
	if tokenString == "" {
		return 0, errMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}

	// JSON numbers decode as float64
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return int64(userIDFloat), nil
}

// extractToken reads "Authorization: Bearer <token>", then the access_token cookie.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or 0 and false if not found
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// WithUserID returns a copy of ctx carrying an authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"artgram/internal/config"
)

// AuthService issues access tokens. Tokens are verified by the HTTP auth middleware.
type AuthService struct {
	config *config.Config
	now    func() time.Time
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{config: cfg, now: time.Now}
}

// GenerateAccessToken signs an HS256 token carrying the user id. It returns
// the token and its lifetime in seconds.
func (s *AuthService) GenerateAccessToken(userID int64) (string, int, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, s.config.AccessTokenMaxAge, nil
}

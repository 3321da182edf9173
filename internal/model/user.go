package model

import (
	"errors"
	"time"
)

// User represents a user in the system
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email,omitempty"`
	PasswordHashed string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Profile *Profile `db:"-" json:"profile,omitempty"`
}

// Profile holds the public, editable part of an account. Exactly one exists per user.
type Profile struct {
	ID        int64     `db:"id" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Bio       string    `db:"bio" json:"bio"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url"`
	AvatarKey *string   `db:"avatar_key" json:"-"`
	Website   string    `db:"website" json:"website"`
	Instagram string    `db:"instagram" json:"instagram"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) OwnerID() int64 { return p.UserID }

// UserSummary is the author/liker card embedded in other responses.
type UserSummary struct {
	ID        int64   `db:"id" json:"id"`
	Username  string  `db:"username" json:"username"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url"`
}

// ProfileResponse is one page of the public profile: the user, their profile,
// their posts newest first and the total post count.
type ProfileResponse struct {
	User       *User   `json:"user"`
	Posts      []Post  `json:"posts"`
	PostCount  int     `json:"post_count"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=150,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents the data needed to log in
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// UpdateProfileRequest is a partial profile edit; nil fields are left unchanged.
type UpdateProfileRequest struct {
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Website   *string `json:"website" validate:"omitempty,url,max=200"`
	Instagram *string `json:"instagram" validate:"omitempty,max=100"`
	Location  *string `json:"location" validate:"omitempty,max=100"`

	Avatar       *ImageUpload `json:"-" validate:"-"`
	RemoveAvatar bool         `json:"-"`
}

// ProfileUpdate is what the repository applies inside the locked transaction.
type ProfileUpdate struct {
	Bio          *string
	Website      *string
	Instagram    *string
	Location     *string
	Avatar       *UploadResult
	RemoveAvatar bool
}

// DeletedUser lists what a user deletion cascaded over, for cache and blob cleanup.
type DeletedUser struct {
	UserID   int64
	PostIDs  []int64
	BlobKeys []string
}

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = errors.New("username already exists")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Token API error codes (used in HTTP responses)
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)

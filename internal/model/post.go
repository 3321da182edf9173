package model

import (
	"errors"
	"time"
)

// Post represents a user's post with its metadata.
// LikeCount and CommentCount are computed from the edge tables on read.
type Post struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Title        string    `db:"title" json:"title"`
	Content      string    `db:"content" json:"content"`
	ImageURL     *string   `db:"image_url" json:"image_url"`
	ImageKey     *string   `db:"image_key" json:"-"`
	Views        int64     `db:"views" json:"views"`
	LikeCount    int       `db:"like_count" json:"like_count"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields (not in posts table)
	Author  *UserSummary `db:"-" json:"author,omitempty"`
	IsLiked bool         `db:"-" json:"is_liked"`
}

func (p *Post) OwnerID() int64 { return p.UserID }

// PostDetail is a post with its full comment thread, oldest comment first.
type PostDetail struct {
	Post
	Comments []Comment `json:"comments"`
}

// FeedResponse is the paginated feed response.
type FeedResponse struct {
	Posts      []Post  `json:"posts"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// CreatePostRequest carries a new post. Title and content are trimmed before validation.
type CreatePostRequest struct {
	Title   string       `json:"title" validate:"required,max=200"`
	Content string       `json:"content" validate:"required,max=2200"`
	Image   *ImageUpload `json:"-" validate:"-"`
}

// UpdatePostRequest is a partial edit; nil fields are left unchanged.
type UpdatePostRequest struct {
	Title       *string      `json:"title" validate:"omitempty,max=200"`
	Content     *string      `json:"content" validate:"omitempty,max=2200"`
	Image       *ImageUpload `json:"-" validate:"-"`
	RemoveImage bool         `json:"remove_image"`
}

// PostUpdate is what the repository applies inside the locked transaction.
type PostUpdate struct {
	Title       *string
	Content     *string
	Image       *UploadResult
	RemoveImage bool
}

// Post constraints
const (
	MaxPostTitleLength   = 200
	MaxPostContentLength = 2200
	PostMediaFolder      = "posts"
	MaxPostImageSize     = 10 * 1024 * 1024 // 10MB
	PostImageMaxSide     = 1080
)

// Feed pagination
const (
	FeedDefaultLimit = 20
	FeedMaxLimit     = 50
)

// Post errors
var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotPostOwner = errors.New("not the owner of this post")
)

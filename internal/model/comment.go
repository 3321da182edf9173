package model

import (
	"errors"
	"time"
)

// Comment represents a comment on a post.
type Comment struct {
	ID        int64        `db:"id" json:"id"`
	PostID    int64        `db:"post_id" json:"post_id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Content   string       `db:"content" json:"content"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	Author    *UserSummary `db:"-" json:"author,omitempty"` // Joined field
}

func (c *Comment) OwnerID() int64 { return c.UserID }

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=2200"`
}

// Comment constraints
const (
	MaxCommentLength = 2200
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("not the owner of this comment")
)

package model

import (
	"errors"
	"time"
)

// LikeResult is the outcome of a toggle: the caller's new state and the
// authoritative number of likes read in the same transaction.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// Liker is a user who liked a post.
type Liker struct {
	UserSummary
	LikedAt time.Time `db:"liked_at" json:"liked_at"`
}

// LikersListResponse is the paginated likers list response.
type LikersListResponse struct {
	Users      []Liker `json:"users"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// ErrConflictRace means a concurrent toggle on the same (user, post) edge won.
// The like service retries on it; it never reaches a caller.
var ErrConflictRace = errors.New("concurrent like toggle")

package repository

import (
	"context"

	"artgram/internal/cache"
	"artgram/internal/model"
)

type UserRepository interface {
	// Create inserts the user and its profile in one transaction.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// EnsureProfile returns the user's profile, creating it if missing. Idempotent.
	EnsureProfile(ctx context.Context, userID int64) (*model.Profile, error)
	// UpdateProfile applies the edit and returns the avatar key it replaced, if any.
	UpdateProfile(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.Profile, string, error)
	// Delete removes the user; posts, comments, likes and profile cascade.
	Delete(ctx context.Context, userID int64) (*model.DeletedUser, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error)
	// Update locks the row, checks ownership and applies the edit. It returns
	// the image key the edit released, if any.
	Update(ctx context.Context, requesterID, postID int64, upd model.PostUpdate) (*model.Post, string, error)
	// Delete locks the row, checks ownership and removes the post.
	Delete(ctx context.Context, requesterID, postID int64) (*model.Post, error)
	ListFeed(ctx context.Context, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error)
	ListByUser(ctx context.Context, userID int64, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	// GetFeedScores returns the newest posts as cache entries for warming.
	GetFeedScores(ctx context.Context, limit int) ([]cache.PostScore, error)
	Exists(ctx context.Context, postID int64) (bool, error)
}

type CommentRepository interface {
	Create(ctx context.Context, postID, userID int64, content string) (*model.Comment, error)
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	// Delete locks the row, checks ownership and removes the comment.
	Delete(ctx context.Context, requesterID, commentID int64) (*model.Comment, error)
	// ListByPost returns every comment of the post, oldest first.
	ListByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}

type LikeRepository interface {
	// Toggle flips the (user, post) edge in one transaction and returns the new
	// state with the count read in that transaction. It returns
	// model.ErrConflictRace when a concurrent toggle on the same edge won.
	Toggle(ctx context.Context, userID, postID int64) (liked bool, likesCount int, err error)
	// CheckLikes checks which posts the user has liked
	CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	ListLikers(ctx context.Context, postID int64, cursor *model.Cursor, limit int) ([]model.Liker, *model.Cursor, error)
}

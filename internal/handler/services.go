package handler

import (
	"context"

	"artgram/internal/model"
)

// The handlers depend on these use-case interfaces; the service package
// provides the implementations.

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	Me(ctx context.Context, id int64) (*model.User, error)
	GetProfile(ctx context.Context, username string, viewerID *int64, rawCursor string, limit int) (*model.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (*model.Profile, error)
	Delete(ctx context.Context, userID int64) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID int64) (string, int, error)
}

type PostService interface {
	Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error)
	Update(ctx context.Context, requesterID, postID int64, req model.UpdatePostRequest) (*model.Post, error)
	Delete(ctx context.Context, requesterID, postID int64) error
	GetDetail(ctx context.Context, postID int64, viewerID *int64) (*model.PostDetail, error)
	ListLikers(ctx context.Context, postID int64, cursor string, limit int) (*model.LikersListResponse, error)
}

type CommentService interface {
	Create(ctx context.Context, postID, userID int64, req model.CreateCommentRequest) (*model.Comment, error)
	Delete(ctx context.Context, requesterID, commentID int64) error
}

type LikeService interface {
	Toggle(ctx context.Context, userID, postID int64) (*model.LikeResult, error)
}

type FeedService interface {
	GetFeed(ctx context.Context, viewerID *int64, cursor string, limit int) (*model.FeedResponse, error)
}

package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"artgram/internal/cache"
	"artgram/internal/model"
	"artgram/internal/policy"
	"artgram/internal/queue"
	"artgram/internal/repository"
)

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository
	media       MediaUploader
	feedCache   cache.FeedCache
	activity    *Activity
}

// NewPostService wires the post use cases. feedCache may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	likeRepo repository.LikeRepository,
	media MediaUploader,
	feedCache cache.FeedCache,
	activity *Activity,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		media:       media,
		feedCache:   feedCache,
		activity:    activity,
	}
}

// Create stores the image (if any) first, then inserts the post. If the
// insert fails the stored image is deleted again.
func (s *PostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
	}

	var upload *model.UploadResult
	if req.Image != nil {
		var err error
		upload, err = s.media.UploadPostImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
		post.ImageURL = &upload.URL
		post.ImageKey = &upload.Key
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if upload != nil {
			s.discardUpload(ctx, upload.Key)
		}
		return nil, err
	}
	log.Printf("[PostService] Created post=%d user=%d image=%t", post.ID, userID, upload != nil)

	if s.feedCache != nil {
		if err := s.feedCache.AddPost(ctx, cache.NewPostScore(post.ID, post.CreatedAt)); err != nil {
			log.Printf("[PostService] Failed to add post to feed cache: post=%d err=%v", post.ID, err)
		}
	}

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("reload post: %w", err)
	}
	return created, nil
}

// Update applies a partial edit. Only the author may edit; a non-owner gets
// model.ErrNotPostOwner and nothing is written.
func (s *PostService) Update(ctx context.Context, requesterID, postID int64, req model.UpdatePostRequest) (*model.Post, error) {
	req.Title = trimPtr(req.Title)
	req.Content = trimPtr(req.Content)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}
	if req.Title != nil && *req.Title == "" {
		return nil, &model.ValidationError{Field: "title", Message: "title is required"}
	}
	if req.Content != nil && *req.Content == "" {
		return nil, &model.ValidationError{Field: "content", Message: "content is required"}
	}

	// Checked again under the row lock; this only avoids uploading for non-owners.
	current, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !policy.IsOwner(requesterID, current) {
		return nil, model.ErrNotPostOwner
	}

	upd := model.PostUpdate{
		Title:       req.Title,
		Content:     req.Content,
		RemoveImage: req.RemoveImage,
	}
	if req.Image != nil {
		upd.Image, err = s.media.UploadPostImage(ctx, req.Image)
		if err != nil {
			return nil, err
		}
	}

	post, released, err := s.postRepo.Update(ctx, requesterID, postID, upd)
	if err != nil {
		if upd.Image != nil {
			s.discardUpload(ctx, upd.Image.Key)
		}
		return nil, err
	}

	if released != "" {
		s.activity.Emit(ctx, queue.NewMediaReleasedEvent(requesterID, released))
	}
	return post, nil
}

// Delete removes a post with its comments and likes. Only the author may delete.
func (s *PostService) Delete(ctx context.Context, requesterID, postID int64) error {
	post, err := s.postRepo.Delete(ctx, requesterID, postID)
	if err != nil {
		return err
	}
	log.Printf("[PostService] Deleted post=%d user=%d", postID, requesterID)

	if s.feedCache != nil {
		if err := s.feedCache.RemovePosts(ctx, postID); err != nil {
			log.Printf("[PostService] Failed to remove post from feed cache: post=%d err=%v", postID, err)
		}
	}

	var imageKey string
	if post.ImageKey != nil {
		imageKey = *post.ImageKey
	}
	s.activity.Emit(ctx, queue.NewPostDeletedEvent(postID, requesterID, imageKey))
	return nil
}

// GetDetail returns the post with its comments, oldest first, and whether the
// viewer liked it.
func (s *PostService) GetDetail(ctx context.Context, postID int64, viewerID *int64) (*model.PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	if viewerID != nil {
		likeStatus, err := s.likeRepo.CheckLikes(ctx, *viewerID, []int64{postID})
		if err != nil {
			log.Printf("[PostService] Failed to check like status: %v", err)
		} else {
			post.IsLiked = likeStatus[postID]
		}
	}

	return &model.PostDetail{Post: *post, Comments: comments}, nil
}

// ListLikers returns a page of users who liked the post, newest first.
func (s *PostService) ListLikers(ctx context.Context, postID int64, rawCursor string, limit int) (*model.LikersListResponse, error) {
	cursor, err := model.ParseCursor(rawCursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	likers, next, err := s.likeRepo.ListLikers(ctx, postID, cursor, limit)
	if err != nil {
		return nil, err
	}
	if likers == nil {
		likers = []model.Liker{}
	}

	resp := &model.LikersListResponse{Users: likers}
	if next != nil {
		c := next.String()
		resp.NextCursor = &c
		resp.HasMore = true
	}
	return resp, nil
}

// discardUpload deletes an object whose owning row was never written.
func (s *PostService) discardUpload(ctx context.Context, key string) {
	if err := s.media.Delete(ctx, key); err != nil {
		log.Printf("[PostService] Failed to delete orphaned upload: key=%s err=%v", key, err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"artgram/internal/cache"
	"artgram/internal/model"
	"artgram/internal/queue"
	"artgram/internal/repository"
)

// UserService handles business logic for user operations
type UserService struct {
	repo      repository.UserRepository
	postRepo  repository.PostRepository
	likeRepo  repository.LikeRepository
	media     MediaUploader
	feedCache cache.FeedCache
	activity  *Activity
}

// NewUserService wires the user use cases. feedCache may be nil.
func NewUserService(
	repo repository.UserRepository,
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	media MediaUploader,
	feedCache cache.FeedCache,
	activity *Activity,
) *UserService {
	return &UserService{
		repo:      repo,
		postRepo:  postRepo,
		likeRepo:  likeRepo,
		media:     media,
		feedCache: feedCache,
		activity:  activity,
	}
}

// Register creates a new user account together with its empty profile.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHashed: string(hashedPassword),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrUsernameExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[UserService] Registered user=%d username=%s", user.ID, user.Username)
	return user, nil
}

// Login authenticates a user with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		// Don't reveal whether username exists or not
		return nil, model.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password))
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// Me returns the user with their profile.
func (s *UserService) Me(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.EnsureProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Profile = profile
	return user, nil
}

// GetProfile returns one page of username's profile: the user, the profile,
// their posts newest first and the total post count. rawCursor is the
// next_cursor of the previous page.
func (s *UserService) GetProfile(ctx context.Context, username string, viewerID *int64, rawCursor string, limit int) (*model.ProfileResponse, error) {
	cursor, err := model.ParseCursor(rawCursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.EnsureProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Profile = profile
	// Email is private to its owner.
	if viewerID == nil || *viewerID != user.ID {
		user.Email = ""
	}

	posts, next, err := s.postRepo.ListByUser(ctx, user.ID, cursor, limit)
	if err != nil {
		return nil, err
	}
	count, err := s.postRepo.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if viewerID != nil && len(posts) > 0 {
		markLiked(ctx, s.likeRepo, *viewerID, posts)
	}
	if posts == nil {
		posts = []model.Post{}
	}

	resp := &model.ProfileResponse{User: user, Posts: posts, PostCount: count}
	if next != nil {
		c := next.String()
		resp.NextCursor = &c
		resp.HasMore = true
	}
	return resp, nil
}

// UpdateProfile applies a partial profile edit. A new avatar is stored before
// the row is updated and deleted again if the update fails.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (*model.Profile, error) {
	req.Bio = trimPtr(req.Bio)
	req.Website = trimPtr(req.Website)
	req.Instagram = trimPtr(req.Instagram)
	req.Location = trimPtr(req.Location)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	upd := model.ProfileUpdate{
		Bio:          req.Bio,
		Website:      req.Website,
		Instagram:    req.Instagram,
		Location:     req.Location,
		RemoveAvatar: req.RemoveAvatar,
	}
	if req.Avatar != nil {
		var err error
		upd.Avatar, err = s.media.UploadAvatar(ctx, req.Avatar)
		if err != nil {
			return nil, err
		}
	}

	profile, released, err := s.repo.UpdateProfile(ctx, userID, upd)
	if err != nil {
		if upd.Avatar != nil {
			if delErr := s.media.Delete(ctx, upd.Avatar.Key); delErr != nil {
				log.Printf("[UserService] Failed to delete orphaned avatar: key=%s err=%v", upd.Avatar.Key, delErr)
			}
		}
		return nil, err
	}

	if released != "" {
		s.activity.Emit(ctx, queue.NewMediaReleasedEvent(userID, released))
	}
	return profile, nil
}

// Delete removes the account. Posts, comments, likes and the profile go with
// it; their images and feed entries are cleaned up afterwards.
func (s *UserService) Delete(ctx context.Context, userID int64) error {
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	log.Printf("[UserService] Deleted user=%d posts=%d blobs=%d", userID, len(deleted.PostIDs), len(deleted.BlobKeys))

	if s.feedCache != nil && len(deleted.PostIDs) > 0 {
		if err := s.feedCache.RemovePosts(ctx, deleted.PostIDs...); err != nil {
			log.Printf("[UserService] Failed to remove posts from feed cache: user=%d err=%v", userID, err)
		}
	}

	s.activity.Emit(ctx, queue.NewUserDeletedEvent(userID, deleted.PostIDs, deleted.BlobKeys))
	return nil
}

// markLiked sets IsLiked on posts the viewer has liked. Failures leave the
// flags false.
func markLiked(ctx context.Context, likeRepo repository.LikeRepository, viewerID int64, posts []model.Post) {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	liked, err := likeRepo.CheckLikes(ctx, viewerID, ids)
	if err != nil {
		log.Printf("[LikeCheck] Failed to check like status: viewer=%d err=%v", viewerID, err)
		return
	}
	for i := range posts {
		posts[i].IsLiked = liked[posts[i].ID]
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"artgram/internal/model"
	"artgram/internal/queue"
)

func newTestUserService(repo *mockUserRepository) *UserService {
	return NewUserService(repo, &mockPostRepository{}, &mockLikeRepository{}, &mockMedia{}, nil, nil)
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestUserService_Register_Success(t *testing.T) {
	mockRepo := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			// Simulate database setting ID and timestamps
			user.ID = 1
			user.CreatedAt = time.Now()
			user.UpdatedAt = time.Now()
			return nil
		},
	}
	svc := newTestUserService(mockRepo)

	req := &model.RegisterRequest{
		Username: "  painter  ",
		Email:    "painter@example.com",
		Password: "securepassword123",
	}

	user, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Username != "painter" {
		t.Errorf("username = %q, want trimmed %q", user.Username, "painter")
	}

	// Verify password was hashed (not stored in plain text!)
	if user.PasswordHashed == req.Password {
		t.Error("password should be hashed, not stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		t.Error("password hash should be valid bcrypt hash")
	}

	if len(mockRepo.createCalls) != 1 {
		t.Errorf("Create called %d times, want 1", len(mockRepo.createCalls))
	}
}

func TestUserService_Register_UsernameExists(t *testing.T) {
	mockRepo := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			return model.ErrUsernameExists
		},
	}
	svc := newTestUserService(mockRepo)

	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Username: "existinguser",
		Email:    "e@example.com",
		Password: "password123",
	})

	if !errors.Is(err, model.ErrUsernameExists) {
		t.Errorf("error = %v, want %v", err, model.ErrUsernameExists)
	}
	if user != nil {
		t.Error("user should be nil when registration fails")
	}
}

func TestUserService_Register_CreateError(t *testing.T) {
	dbError := errors.New("insert failed")
	mockRepo := &mockUserRepository{
		createFn: func(ctx context.Context, user *model.User) error {
			return dbError
		},
	}
	svc := newTestUserService(mockRepo)

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Username: "testuser",
		Email:    "t@example.com",
		Password: "password123",
	})

	if !errors.Is(err, dbError) {
		t.Errorf("error should wrap create error, got %v", err)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	tests := []struct {
		name      string
		req       model.RegisterRequest
		wantField string
	}{
		{"blank username", model.RegisterRequest{Username: "   ", Email: "a@b.co", Password: "password123"}, "username"},
		{"username with spaces", model.RegisterRequest{Username: "two words", Email: "a@b.co", Password: "password123"}, "username"},
		{"bad email", model.RegisterRequest{Username: "alice", Email: "nope", Password: "password123"}, "email"},
		{"short password", model.RegisterRequest{Username: "alice", Email: "a@b.co", Password: "short"}, "password"},
		{"long username", model.RegisterRequest{Username: strings.Repeat("a", 151), Email: "a@b.co", Password: "password123"}, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mockUserRepository{}
			svc := newTestUserService(mockRepo)

			req := tt.req
			_, err := svc.Register(context.Background(), &req)

			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *model.ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
			}
			if !errors.Is(err, model.ErrValidation) {
				t.Error("validation error should match model.ErrValidation")
			}
			if len(mockRepo.createCalls) != 0 {
				t.Error("Create should not be called for an invalid request")
			}
		})
	}
}

// =============================================================================
// LOGIN TESTS - Table-Driven
// =============================================================================

func TestUserService_Login(t *testing.T) {
	validPassword := "correctpassword"
	validHash, _ := bcrypt.GenerateFromPassword([]byte(validPassword), bcrypt.MinCost)

	testUser := &model.User{
		ID:             1,
		Username:       "testuser",
		PasswordHashed: string(validHash),
	}

	tests := []struct {
		name          string
		username      string
		password      string
		mockGetByUser func(ctx context.Context, username string) (*model.User, error)
		wantErr       error
		wantUser      bool
	}{
		{
			name:     "successful login",
			username: "testuser",
			password: validPassword,
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return testUser, nil
			},
			wantUser: true,
		},
		{
			name:     "user not found",
			username: "nonexistent",
			password: "anypassword",
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return nil, model.ErrUserNotFound
			},
			wantErr: model.ErrInvalidCredentials, // Don't reveal user doesn't exist
		},
		{
			name:     "wrong password",
			username: "testuser",
			password: "wrongpassword",
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return testUser, nil
			},
			wantErr: model.ErrInvalidCredentials,
		},
		{
			name:     "database error",
			username: "testuser",
			password: validPassword,
			mockGetByUser: func(ctx context.Context, username string) (*model.User, error) {
				return nil, errors.New("database error")
			},
			wantErr: model.ErrInvalidCredentials, // Don't reveal internal errors
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestUserService(&mockUserRepository{getByUsernameFn: tt.mockGetByUser})

			user, err := svc.Login(context.Background(), &model.LoginRequest{
				Username: tt.username,
				Password: tt.password,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if tt.wantUser && user == nil {
				t.Error("expected user, got nil")
			}
			if !tt.wantUser && user != nil {
				t.Error("expected nil user")
			}
		})
	}
}

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestUserService_GetProfile(t *testing.T) {
	owner := &model.User{ID: 7, Username: "painter", Email: "p@example.com"}
	userRepo := &mockUserRepository{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username != "painter" {
				return nil, model.ErrUserNotFound
			}
			u := *owner
			return &u, nil
		},
	}
	postRepo := &mockPostRepository{
		listByUserFn: func(ctx context.Context, userID int64, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error) {
			if cursor != nil {
				t.Errorf("cursor = %+v, want nil on the first page", cursor)
			}
			if limit != model.FeedDefaultLimit {
				t.Errorf("limit = %d, want default %d", limit, model.FeedDefaultLimit)
			}
			return []model.Post{{ID: 3, UserID: userID}, {ID: 2, UserID: userID}}, nil, nil
		},
		countByUserFn: func(ctx context.Context, userID int64) (int, error) { return 2, nil },
	}
	likeRepo := &mockLikeRepository{
		checkLikesFn: func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{3: true}, nil
		},
	}
	svc := NewUserService(userRepo, postRepo, likeRepo, &mockMedia{}, nil, nil)

	resp, err := svc.GetProfile(context.Background(), "painter", int64Ptr(9), "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.PostCount != 2 || len(resp.Posts) != 2 {
		t.Errorf("posts = %d (count %d), want 2", len(resp.Posts), resp.PostCount)
	}
	if !resp.Posts[0].IsLiked || resp.Posts[1].IsLiked {
		t.Errorf("is_liked = [%v %v], want [true false]", resp.Posts[0].IsLiked, resp.Posts[1].IsLiked)
	}
	if resp.User.Profile == nil {
		t.Error("expected profile to be attached")
	}
	if resp.User.Email != "" {
		t.Error("email should be hidden from other viewers")
	}
	if resp.HasMore || resp.NextCursor != nil {
		t.Errorf("has_more = %v next = %v, want a single page", resp.HasMore, resp.NextCursor)
	}

	if _, err := svc.GetProfile(context.Background(), "ghost", nil, "", 0); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("unknown username error = %v, want %v", err, model.ErrUserNotFound)
	}
	if _, err := svc.GetProfile(context.Background(), "painter", nil, "garbage", 0); !errors.Is(err, model.ErrInvalidCursor) {
		t.Errorf("bad cursor error = %v, want %v", err, model.ErrInvalidCursor)
	}
}

func TestUserService_GetProfile_Paginates(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	userRepo := &mockUserRepository{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 7, Username: username}, nil
		},
	}
	var gotCursor *model.Cursor
	postRepo := &mockPostRepository{
		listByUserFn: func(ctx context.Context, userID int64, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error) {
			gotCursor = cursor
			if limit != model.FeedMaxLimit {
				t.Errorf("limit = %d, want clamped to %d", limit, model.FeedMaxLimit)
			}
			next := model.NewCursor(40, at)
			return []model.Post{{ID: 41, UserID: userID}}, &next, nil
		},
		countByUserFn: func(ctx context.Context, userID int64) (int, error) { return 55, nil },
	}
	svc := NewUserService(userRepo, postRepo, &mockLikeRepository{}, &mockMedia{}, nil, nil)

	resp, err := svc.GetProfile(context.Background(), "painter", nil, "42:1700000000000000", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCursor == nil || gotCursor.ID != 42 {
		t.Errorf("cursor = %+v, want id 42", gotCursor)
	}
	if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor != model.NewCursor(40, at).String() {
		t.Errorf("has_more = %v next = %v, want the repository cursor", resp.HasMore, resp.NextCursor)
	}
	if resp.PostCount != 55 {
		t.Errorf("post_count = %d, want 55", resp.PostCount)
	}
}

func TestUserService_UpdateProfile_ReleasesOldAvatar(t *testing.T) {
	media := &mockMedia{}
	publisher := &mockPublisher{}
	userRepo := &mockUserRepository{
		updateProfileFn: func(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.Profile, string, error) {
			if upd.Avatar == nil || upd.Avatar.Key != "avatars/new.jpg" {
				t.Errorf("avatar = %+v, want the uploaded object", upd.Avatar)
			}
			if upd.Bio == nil || *upd.Bio != "hello" {
				t.Errorf("bio = %v, want trimmed %q", upd.Bio, "hello")
			}
			return &model.Profile{UserID: userID}, "avatars/old.jpg", nil
		},
	}
	svc := NewUserService(userRepo, &mockPostRepository{}, &mockLikeRepository{}, media, nil, NewActivity(publisher, media))

	_, err := svc.UpdateProfile(context.Background(), 5, model.UpdateProfileRequest{
		Bio:    strPtr("  hello "),
		Avatar: &model.ImageUpload{Reader: strings.NewReader("x"), Size: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.events) != 1 || publisher.events[0].Type != queue.EventMediaReleased {
		t.Fatalf("events = %+v, want one media_released", publisher.events)
	}
	if got := publisher.events[0].BlobKeys; len(got) != 1 || got[0] != "avatars/old.jpg" {
		t.Errorf("released keys = %v, want [avatars/old.jpg]", got)
	}
	if len(media.deleted) != 0 {
		t.Errorf("nothing should be deleted inline, got %v", media.deleted)
	}
}

func TestUserService_UpdateProfile_FailureDeletesNewAvatar(t *testing.T) {
	media := &mockMedia{}
	userRepo := &mockUserRepository{
		updateProfileFn: func(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.Profile, string, error) {
			return nil, "", model.ErrUserNotFound
		},
	}
	svc := NewUserService(userRepo, &mockPostRepository{}, &mockLikeRepository{}, media, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), 5, model.UpdateProfileRequest{
		Avatar: &model.ImageUpload{Reader: strings.NewReader("x"), Size: 1},
	})
	if !errors.Is(err, model.ErrUserNotFound) {
		t.Fatalf("error = %v, want %v", err, model.ErrUserNotFound)
	}
	if len(media.deleted) != 1 || media.deleted[0] != "avatars/new.jpg" {
		t.Errorf("deleted = %v, want the orphaned upload", media.deleted)
	}
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestUserService_Delete_CleansCacheAndBlobs(t *testing.T) {
	feedCache := &mockFeedCache{}
	media := &mockMedia{}
	userRepo := &mockUserRepository{
		deleteFn: func(ctx context.Context, userID int64) (*model.DeletedUser, error) {
			return &model.DeletedUser{
				UserID:   userID,
				PostIDs:  []int64{10, 11},
				BlobKeys: []string{"posts/a.jpg", "avatars/b.jpg"},
			}, nil
		},
	}
	// No publisher: blobs are deleted inline.
	svc := NewUserService(userRepo, &mockPostRepository{}, &mockLikeRepository{}, media, feedCache, NewActivity(nil, media))

	if err := svc.Delete(context.Background(), 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feedCache.removed) != 2 {
		t.Errorf("removed from cache = %v, want [10 11]", feedCache.removed)
	}
	if len(media.deleted) != 2 {
		t.Errorf("deleted blobs = %v, want 2", media.deleted)
	}
}

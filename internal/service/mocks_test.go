package service

import (
	"context"
	"sync"

	"artgram/internal/cache"
	"artgram/internal/model"
	"artgram/internal/queue"
)

// =============================================================================
// MOCK REPOSITORIES
// =============================================================================
//
// Each mock implements a repository interface with optional function fields.
// A nil field falls back to a neutral default so tests only stub what they use.

type mockUserRepository struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByIDFn       func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	ensureProfileFn func(ctx context.Context, userID int64) (*model.Profile, error)
	updateProfileFn func(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.Profile, string, error)
	deleteFn        func(ctx context.Context, userID int64) (*model.DeletedUser, error)

	createCalls []*model.User
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	m.createCalls = append(m.createCalls, user)
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) EnsureProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	if m.ensureProfileFn != nil {
		return m.ensureProfileFn(ctx, userID)
	}
	return &model.Profile{UserID: userID}, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.Profile, string, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, upd)
	}
	return &model.Profile{UserID: userID}, "", nil
}

func (m *mockUserRepository) Delete(ctx context.Context, userID int64) (*model.DeletedUser, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return &model.DeletedUser{UserID: userID}, nil
}

type mockPostRepository struct {
	createFn        func(ctx context.Context, post *model.Post) error
	getByIDFn       func(ctx context.Context, postID int64) (*model.Post, error)
	getByIDsFn      func(ctx context.Context, postIDs []int64) ([]model.Post, error)
	updateFn        func(ctx context.Context, requesterID, postID int64, upd model.PostUpdate) (*model.Post, string, error)
	deleteFn        func(ctx context.Context, requesterID, postID int64) (*model.Post, error)
	listFeedFn      func(ctx context.Context, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error)
	listByUserFn    func(ctx context.Context, userID int64, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error)
	countByUserFn   func(ctx context.Context, userID int64) (int, error)
	getFeedScoresFn func(ctx context.Context, limit int) ([]cache.PostScore, error)
	existsFn        func(ctx context.Context, postID int64) (bool, error)

	mu            sync.Mutex
	updateCalls   int
	listFeedCalls int
	scoreCalls    int
}

func (m *mockPostRepository) Create(ctx context.Context, post *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	post.ID = 1
	return nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, postIDs)
	}
	posts := make([]model.Post, len(postIDs))
	for i, id := range postIDs {
		posts[i] = model.Post{ID: id}
	}
	return posts, nil
}

func (m *mockPostRepository) Update(ctx context.Context, requesterID, postID int64, upd model.PostUpdate) (*model.Post, string, error) {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, requesterID, postID, upd)
	}
	return &model.Post{ID: postID, UserID: requesterID}, "", nil
}

func (m *mockPostRepository) Delete(ctx context.Context, requesterID, postID int64) (*model.Post, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, requesterID, postID)
	}
	return &model.Post{ID: postID, UserID: requesterID}, nil
}

func (m *mockPostRepository) ListFeed(ctx context.Context, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error) {
	m.listFeedCalls++
	if m.listFeedFn != nil {
		return m.listFeedFn(ctx, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepository) ListByUser(ctx context.Context, userID int64, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	if m.countByUserFn != nil {
		return m.countByUserFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockPostRepository) GetFeedScores(ctx context.Context, limit int) ([]cache.PostScore, error) {
	m.mu.Lock()
	m.scoreCalls++
	m.mu.Unlock()
	if m.getFeedScoresFn != nil {
		return m.getFeedScoresFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockPostRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, postID)
	}
	return true, nil
}

type mockCommentRepository struct {
	createFn     func(ctx context.Context, postID, userID int64, content string) (*model.Comment, error)
	deleteFn     func(ctx context.Context, requesterID, commentID int64) (*model.Comment, error)
	listByPostFn func(ctx context.Context, postID int64) ([]model.Comment, error)

	createCalls int
}

func (m *mockCommentRepository) Create(ctx context.Context, postID, userID int64, content string) (*model.Comment, error) {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, postID, userID, content)
	}
	return &model.Comment{ID: 1, PostID: postID, UserID: userID, Content: content}, nil
}

func (m *mockCommentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	return nil, model.ErrCommentNotFound
}

func (m *mockCommentRepository) Delete(ctx context.Context, requesterID, commentID int64) (*model.Comment, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, requesterID, commentID)
	}
	return &model.Comment{ID: commentID, UserID: requesterID}, nil
}

func (m *mockCommentRepository) ListByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	if m.listByPostFn != nil {
		return m.listByPostFn(ctx, postID)
	}
	return nil, nil
}

type mockLikeRepository struct {
	toggleFn     func(ctx context.Context, userID, postID int64) (bool, int, error)
	checkLikesFn func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	listLikersFn func(ctx context.Context, postID int64, cursor *model.Cursor, limit int) ([]model.Liker, *model.Cursor, error)

	toggleCalls int
}

func (m *mockLikeRepository) Toggle(ctx context.Context, userID, postID int64) (bool, int, error) {
	m.toggleCalls++
	if m.toggleFn != nil {
		return m.toggleFn(ctx, userID, postID)
	}
	return true, 1, nil
}

func (m *mockLikeRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockLikeRepository) ListLikers(ctx context.Context, postID int64, cursor *model.Cursor, limit int) ([]model.Liker, *model.Cursor, error) {
	if m.listLikersFn != nil {
		return m.listLikersFn(ctx, postID, cursor, limit)
	}
	return nil, nil, nil
}

// =============================================================================
// MOCK COLLABORATORS
// =============================================================================

type mockMedia struct {
	uploadPostImageFn func(ctx context.Context, img *model.ImageUpload) (*model.UploadResult, error)
	uploadAvatarFn    func(ctx context.Context, img *model.ImageUpload) (*model.UploadResult, error)

	uploads []string
	deleted []string
}

func (m *mockMedia) UploadPostImage(ctx context.Context, img *model.ImageUpload) (*model.UploadResult, error) {
	if m.uploadPostImageFn != nil {
		return m.uploadPostImageFn(ctx, img)
	}
	m.uploads = append(m.uploads, "posts/new.jpg")
	return &model.UploadResult{URL: "https://cdn.test/posts/new.jpg", Key: "posts/new.jpg"}, nil
}

func (m *mockMedia) UploadAvatar(ctx context.Context, img *model.ImageUpload) (*model.UploadResult, error) {
	if m.uploadAvatarFn != nil {
		return m.uploadAvatarFn(ctx, img)
	}
	m.uploads = append(m.uploads, "avatars/new.jpg")
	return &model.UploadResult{URL: "https://cdn.test/avatars/new.jpg", Key: "avatars/new.jpg"}, nil
}

func (m *mockMedia) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

type mockPublisher struct {
	publishFn func(ctx context.Context, stream string, event queue.ActivityEvent) (string, error)
	events    []queue.ActivityEvent
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.ActivityEvent) (string, error) {
	m.events = append(m.events, event)
	if m.publishFn != nil {
		return m.publishFn(ctx, stream, event)
	}
	return "1-0", nil
}

type mockFeedCache struct {
	mu sync.Mutex

	exists   bool
	entries  []cache.PostScore // newest first
	complete bool
	getErr   error

	added   []cache.PostScore
	removed []int64
	warmed  int
}

func (m *mockFeedCache) AddPost(ctx context.Context, entry cache.PostScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, entry)
	return nil
}

func (m *mockFeedCache) RemovePosts(ctx context.Context, postIDs ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, postIDs...)
	return nil
}

func (m *mockFeedCache) GetPage(ctx context.Context, cursor *model.Cursor, limit int) ([]cache.PostScore, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	start := 0
	if cursor != nil {
		start = -1
		for i, e := range m.entries {
			if e.PostID == cursor.ID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, false, nil
		}
	}
	end := start + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	return m.entries[start:end], m.complete, nil
}

func (m *mockFeedCache) WarmCache(ctx context.Context, entries []cache.PostScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warmed++
	m.exists = true
	m.entries = entries
	return nil
}

func (m *mockFeedCache) Exists(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists, nil
}

func (m *mockFeedCache) Size(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

func (m *mockFeedCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = false
	m.entries = nil
	return nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"artgram/internal/cache"
	"artgram/internal/model"
)

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	// Use DB 2 for testing to avoid conflicts with dev data and the worker tests
	opts.DB = 2

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func ids(entries []cache.PostScore) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.PostID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFeedCache_AddPostBeforeWarmSurvives(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	fc := cache.NewFeedCache(client)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// Post 3 commits after the warming snapshot was read but is added first.
	if err := fc.AddPost(ctx, cache.NewPostScore(3, base.Add(time.Second))); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}
	exists, err := fc.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("AddPost must not mark the window warm")
	}
	if _, complete, err := fc.GetPage(ctx, nil, 10); err != nil || complete {
		t.Fatalf("cold window: complete=%t err=%v, want incomplete", complete, err)
	}

	if err := fc.WarmCache(ctx, []cache.PostScore{
		cache.NewPostScore(2, base),
		cache.NewPostScore(1, base.Add(-time.Second)),
	}); err != nil {
		t.Fatalf("WarmCache failed: %v", err)
	}

	page, complete, err := fc.GetPage(ctx, nil, 10)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if want := []int64{3, 2, 1}; !equalIDs(ids(page), want) || !complete {
		t.Fatalf("page = %v complete=%t, want %v complete", ids(page), complete, want)
	}
}

func TestFeedCache_WarmEmptyFeed(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	fc := cache.NewFeedCache(client)

	if err := fc.WarmCache(ctx, nil); err != nil {
		t.Fatalf("WarmCache failed: %v", err)
	}
	if exists, _ := fc.Exists(ctx); !exists {
		t.Fatal("an empty warm must still mark the window warm")
	}
	page, complete, err := fc.GetPage(ctx, nil, 5)
	if err != nil || !complete || len(page) != 0 {
		t.Fatalf("empty feed: page=%v complete=%t err=%v, want empty complete", ids(page), complete, err)
	}
}

func TestFeedCache_PageOrderAndCursor(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	fc := cache.NewFeedCache(client)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	// 9 and 10 share a timestamp: the higher id comes first.
	if err := fc.WarmCache(ctx, []cache.PostScore{
		cache.NewPostScore(9, base),
		cache.NewPostScore(10, base),
		cache.NewPostScore(8, base.Add(-time.Second)),
		cache.NewPostScore(7, base.Add(-2*time.Second)),
	}); err != nil {
		t.Fatalf("WarmCache failed: %v", err)
	}
	if err := fc.AddPost(ctx, cache.NewPostScore(11, base.Add(time.Second))); err != nil {
		t.Fatalf("AddPost failed: %v", err)
	}

	page, complete, err := fc.GetPage(ctx, nil, 3)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if want := []int64{11, 10, 9}; !equalIDs(ids(page), want) || !complete {
		t.Fatalf("first page = %v complete=%t, want %v complete", ids(page), complete, want)
	}

	cursor := model.NewCursor(9, base)
	page, complete, err = fc.GetPage(ctx, &cursor, 3)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if want := []int64{8, 7}; !equalIDs(ids(page), want) || !complete {
		t.Fatalf("second page = %v complete=%t, want %v complete", ids(page), complete, want)
	}

	// A cursor outside the window cannot be answered from the cache.
	gone := model.NewCursor(3, base.Add(-time.Hour))
	if _, complete, err := fc.GetPage(ctx, &gone, 3); err != nil || complete {
		t.Fatalf("unknown cursor: complete=%t err=%v, want incomplete", complete, err)
	}

	if err := fc.RemovePosts(ctx, 10, 8); err != nil {
		t.Fatalf("RemovePosts failed: %v", err)
	}
	page, _, err = fc.GetPage(ctx, nil, 10)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if want := []int64{11, 9, 7}; !equalIDs(ids(page), want) {
		t.Fatalf("after remove = %v, want %v", ids(page), want)
	}

	if err := fc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if size, _ := fc.Size(ctx); size != 0 {
		t.Errorf("size after invalidate = %d, want 0", size)
	}
	if exists, _ := fc.Exists(ctx); exists {
		t.Error("window still warm after invalidate")
	}
}

func TestFeedCache_CappedWindowIsIncompleteAtTheEnd(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	fc := cache.NewFeedCache(client)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := make([]cache.PostScore, 0, cache.FeedCacheCap+10)
	for i := 1; i <= cache.FeedCacheCap+10; i++ {
		entries = append(entries, cache.NewPostScore(int64(i), base.Add(time.Duration(i)*time.Second)))
	}
	if err := fc.WarmCache(ctx, entries); err != nil {
		t.Fatalf("WarmCache failed: %v", err)
	}

	size, err := fc.Size(ctx)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != cache.FeedCacheCap {
		t.Fatalf("size = %d, want cap %d", size, cache.FeedCacheCap)
	}

	// The oldest kept entry is id 11; a page past it must go to the database.
	last := model.NewCursor(12, base.Add(12*time.Second))
	page, complete, err := fc.GetPage(ctx, &last, 5)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if complete || len(page) != 1 {
		t.Fatalf("tail page = %v complete=%t, want [11] incomplete", ids(page), complete)
	}
}

func TestFeedCache_CappedWindowStaysIncompleteAfterRemoval(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	fc := cache.NewFeedCache(client)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := make([]cache.PostScore, 0, cache.FeedCacheCap)
	for i := 1; i <= cache.FeedCacheCap; i++ {
		entries = append(entries, cache.NewPostScore(int64(i), base.Add(time.Duration(i)*time.Second)))
	}
	if err := fc.WarmCache(ctx, entries); err != nil {
		t.Fatalf("WarmCache failed: %v", err)
	}
	// Older posts may exist in the database: a full batch is capped even
	// after entries are removed.
	if err := fc.RemovePosts(ctx, 1, 2); err != nil {
		t.Fatalf("RemovePosts failed: %v", err)
	}

	last := model.NewCursor(4, base.Add(4*time.Second))
	page, complete, err := fc.GetPage(ctx, &last, 5)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if complete || len(page) != 1 {
		t.Fatalf("tail page = %v complete=%t, want [3] incomplete", ids(page), complete)
	}
}

func TestFeedCache_AddPostTrimsWarmWindowToCapped(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	fc := cache.NewFeedCache(client)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := make([]cache.PostScore, 0, cache.FeedCacheCap-1)
	for i := 1; i < cache.FeedCacheCap; i++ {
		entries = append(entries, cache.NewPostScore(int64(i), base.Add(time.Duration(i)*time.Second)))
	}
	if err := fc.WarmCache(ctx, entries); err != nil {
		t.Fatalf("WarmCache failed: %v", err)
	}
	for id := int64(cache.FeedCacheCap); id <= cache.FeedCacheCap+1; id++ {
		if err := fc.AddPost(ctx, cache.NewPostScore(id, base.Add(time.Duration(id)*time.Second))); err != nil {
			t.Fatalf("AddPost failed: %v", err)
		}
	}

	if size, _ := fc.Size(ctx); size != cache.FeedCacheCap {
		t.Fatalf("size = %d, want cap %d", size, cache.FeedCacheCap)
	}
	// id 1 was trimmed; a page past id 2 must go to the database.
	last := model.NewCursor(3, base.Add(3*time.Second))
	page, complete, err := fc.GetPage(ctx, &last, 5)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if complete || len(page) != 1 {
		t.Fatalf("tail page = %v complete=%t, want [2] incomplete", ids(page), complete)
	}
}

package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"artgram/internal/cache"
	"artgram/internal/metrics"
	"artgram/internal/model"
	"artgram/internal/repository"
)

// CacheWarmLimit is max posts to fetch when warming cache
const CacheWarmLimit = cache.FeedCacheCap

type FeedService struct {
	feedCache cache.FeedCache
	postRepo  repository.PostRepository
	likeRepo  repository.LikeRepository

	warmGroup singleflight.Group
}

// NewFeedService wires the global feed. feedCache may be nil, in which case
// every page is read from the database.
func NewFeedService(
	feedCache cache.FeedCache,
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
) *FeedService {
	return &FeedService{
		feedCache: feedCache,
		postRepo:  postRepo,
		likeRepo:  likeRepo,
	}
}

// GetFeed returns one page of all users' posts, newest first.
//
// Flow:
// 1. Parse the cursor and clamp the limit
// 2. Read limit+1 ids from the cache window (warming it on a miss)
// 3. Hydrate the ids from the DB; fall back to a DB page when the window
//    cannot answer (no cache, cursor outside the window, window exhausted)
// 4. Mark posts the viewer liked
func (s *FeedService) GetFeed(ctx context.Context, viewerID *int64, rawCursor string, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()

	cursor, err := model.ParseCursor(rawCursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	posts, next, source, err := s.fromCache(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts, next, err = s.postRepo.ListFeed(ctx, cursor, limit)
		if err != nil {
			return nil, fmt.Errorf("list feed: %w", err)
		}
	}
	metrics.RecordFeedLookup(source)

	if viewerID != nil && len(posts) > 0 {
		markLiked(ctx, s.likeRepo, *viewerID, posts)
	}
	if posts == nil {
		posts = []model.Post{}
	}

	resp := &model.FeedResponse{Posts: posts}
	if next != nil {
		c := next.String()
		resp.NextCursor = &c
		resp.HasMore = true
	}

	log.Printf("[FeedService] GetFeed OK: posts=%d hasMore=%v source=%s duration=%v",
		len(posts), resp.HasMore, source, time.Since(startTime))
	return resp, nil
}

// fromCache serves the page from the cache window. A nil slice means the
// caller must read the page from the DB; source names the outcome.
func (s *FeedService) fromCache(ctx context.Context, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, string, error) {
	if s.feedCache == nil {
		return nil, nil, "disabled", nil
	}

	source := "hit"
	exists, err := s.feedCache.Exists(ctx)
	if err != nil {
		log.Printf("[FeedService] Cache check failed: %v", err)
		return nil, nil, "fallback", nil
	}
	if !exists {
		source = "miss"
		if err := s.warmCache(ctx); err != nil {
			log.Printf("[FeedService] Cache warm failed: %v", err)
			return nil, nil, "fallback", nil
		}
	}

	entries, complete, err := s.feedCache.GetPage(ctx, cursor, limit+1)
	if err != nil {
		log.Printf("[FeedService] GetPage cache error: %v", err)
		return nil, nil, "fallback", nil
	}
	if !complete {
		return nil, nil, "fallback", nil
	}

	var next *model.Cursor
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		c := model.NewCursor(last.PostID, time.UnixMicro(last.Timestamp))
		next = &c
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.PostID
	}
	posts, err := s.postRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, "", fmt.Errorf("hydrate posts: %w", err)
	}
	if len(posts) != len(ids) {
		// A post was deleted but its entry not yet evicted.
		log.Printf("[FeedService] Cache window stale: want=%d got=%d", len(ids), len(posts))
		return nil, nil, "fallback", nil
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, next, source, nil
}

// warmCache loads the newest posts into the window. Concurrent misses share
// one load.
func (s *FeedService) warmCache(ctx context.Context) error {
	_, err, shared := s.warmGroup.Do(cache.FeedCacheKey, func() (interface{}, error) {
		startTime := time.Now()

		entries, err := s.postRepo.GetFeedScores(ctx, CacheWarmLimit)
		if err != nil {
			return nil, fmt.Errorf("get feed scores: %w", err)
		}
		// An empty batch still marks the window warm.
		if err := s.feedCache.WarmCache(ctx, entries); err != nil {
			return nil, fmt.Errorf("warm cache: %w", err)
		}

		if size, err := s.feedCache.Size(ctx); err == nil {
			metrics.SetFeedWindowSize(size)
		}
		log.Printf("[FeedService] Cache warmed: posts=%d duration=%v", len(entries), time.Since(startTime))
		return nil, nil
	})
	if shared {
		log.Printf("[FeedService] Cache warm shared with a concurrent request")
	}
	return err
}

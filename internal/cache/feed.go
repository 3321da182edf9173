package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"artgram/internal/model"
)

const (
	// FeedCacheKey is the sorted set holding the global feed window.
	FeedCacheKey = "feed:global"

	// FeedWarmKey marks the window as loaded from the database. Its value is
	// windowAll while the window holds every post, windowCapped once older
	// posts were trimmed off.
	FeedWarmKey = "feed:global:warm"

	// FeedCacheCap is the maximum number of posts kept in the window.
	FeedCacheCap = 500

	// FeedCacheTTL bounds how long a stale window can survive a missed update.
	FeedCacheTTL = 24 * time.Hour
)

const (
	windowAll    = "all"
	windowCapped = "capped"
)

// PostScore is a feed entry: the post id and its created_at in unix microseconds.
type PostScore struct {
	PostID    int64
	Timestamp int64
}

func NewPostScore(postID int64, createdAt time.Time) PostScore {
	return PostScore{PostID: postID, Timestamp: createdAt.UnixMicro()}
}

// FeedCache holds the newest posts of the global feed in (created_at, id) DESC order.
type FeedCache interface {
	// AddPost inserts a post into the window, warm or not. A later WarmCache
	// merges into what is already there.
	AddPost(ctx context.Context, entry PostScore) error

	// RemovePosts drops posts from the window.
	RemovePosts(ctx context.Context, postIDs ...int64) error

	// GetPage returns up to limit entries strictly after cursor (or from the top).
	// complete is false when the window cannot answer the page on its own:
	// the window is not warm, the cursor entry is not in the window, or the
	// page runs past the end of a capped window.
	GetPage(ctx context.Context, cursor *model.Cursor, limit int) (entries []PostScore, complete bool, err error)

	// WarmCache merges the newest posts from the database into the window and
	// marks it warm. A full batch of FeedCacheCap entries means older posts
	// exist, so the window is marked capped.
	WarmCache(ctx context.Context, entries []PostScore) error

	// Exists reports whether the window is warm.
	Exists(ctx context.Context) (bool, error)
	Size(ctx context.Context) (int64, error)
	Invalidate(ctx context.Context) error
}

// RedisFeedCache implements FeedCache using a Redis sorted set. Scores are
// created_at in microseconds; members are zero-padded ids so that equal
// scores order by id.
type RedisFeedCache struct {
	client  *redis.Client
	key     string
	warmKey string
}

// NewFeedCache creates a new FeedCache backed by Redis.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client, key: FeedCacheKey, warmKey: FeedWarmKey}
}

// addEntry adds a member, trims to the cap and refreshes the TTL. Trimming a
// warm window downgrades it to capped.
var addEntry = redis.NewScript(`
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
local trimmed = redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -tonumber(ARGV[3]) - 1)
if trimmed > 0 and redis.call('EXISTS', KEYS[2]) == 1 then
	redis.call('SET', KEYS[2], 'capped', 'KEEPTTL')
end
redis.call('EXPIRE', KEYS[1], ARGV[4])
return trimmed
`)

// warmWindow merges score/member pairs from ARGV[4:], trims, then sets the
// warm marker last.
var warmWindow = redis.NewScript(`
local cap = tonumber(ARGV[1])
local state = ARGV[3]
for i = 4, #ARGV, 2 do
	redis.call('ZADD', KEYS[1], ARGV[i], ARGV[i + 1])
end
if redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -cap - 1) > 0 then
	state = 'capped'
end
redis.call('EXPIRE', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], state, 'EX', ARGV[2])
return redis.call('ZCARD', KEYS[1])
`)

func member(postID int64) string {
	return fmt.Sprintf("%020d", postID)
}

func parseMember(m interface{}) (int64, error) {
	s, ok := m.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected member type %T", m)
	}
	return strconv.ParseInt(s, 10, 64)
}

func (c *RedisFeedCache) AddPost(ctx context.Context, entry PostScore) error {
	startTime := time.Now()

	trimmed, err := addEntry.Run(ctx, c.client, []string{c.key, c.warmKey},
		entry.Timestamp, member(entry.PostID), FeedCacheCap, int(FeedCacheTTL.Seconds())).Int()
	if err != nil {
		log.Printf("[FeedCache] AddPost FAILED: post=%d err=%v", entry.PostID, err)
		return fmt.Errorf("add post to feed: %w", err)
	}

	log.Printf("[FeedCache] AddPost OK: post=%d trimmed=%d duration=%v", entry.PostID, trimmed, time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) RemovePosts(ctx context.Context, postIDs ...int64) error {
	if len(postIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		members[i] = member(id)
	}

	removed, err := c.client.ZRem(ctx, c.key, members...).Result()
	if err != nil {
		log.Printf("[FeedCache] RemovePosts FAILED: posts=%v err=%v", postIDs, err)
		return fmt.Errorf("remove posts from feed: %w", err)
	}

	log.Printf("[FeedCache] RemovePosts OK: requested=%d removed=%d", len(postIDs), removed)
	return nil
}

func (c *RedisFeedCache) GetPage(ctx context.Context, cursor *model.Cursor, limit int) ([]PostScore, bool, error) {
	startTime := time.Now()

	var start int64
	if cursor != nil {
		rank, err := c.client.ZRevRank(ctx, c.key, member(cursor.ID)).Result()
		if err == redis.Nil {
			log.Printf("[FeedCache] GetPage: cursor post=%d not in window", cursor.ID)
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("get cursor rank: %w", err)
		}
		start = rank + 1
	}

	pipe := c.client.Pipeline()
	rangeCmd := pipe.ZRevRangeWithScores(ctx, c.key, start, start+int64(limit)-1)
	stateCmd := pipe.Get(ctx, c.warmKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		log.Printf("[FeedCache] GetPage FAILED: err=%v", err)
		return nil, false, fmt.Errorf("get feed page: %w", err)
	}
	state := stateCmd.Val()
	if state == "" {
		log.Printf("[FeedCache] GetPage: window not warm")
		return nil, false, nil
	}

	results := rangeCmd.Val()
	entries := make([]PostScore, 0, len(results))
	for _, z := range results {
		id, err := parseMember(z.Member)
		if err != nil {
			return nil, false, fmt.Errorf("parse post id: %w", err)
		}
		entries = append(entries, PostScore{PostID: id, Timestamp: int64(z.Score)})
	}

	// A short page is only the true end of the feed if nothing was trimmed off.
	complete := len(entries) == limit || state == windowAll

	log.Printf("[FeedCache] GetPage OK: start=%d returned=%d complete=%t duration=%v",
		start, len(entries), complete, time.Since(startTime))
	return entries, complete, nil
}

// WarmCache merges entries and sets the warm marker in one script.
func (c *RedisFeedCache) WarmCache(ctx context.Context, entries []PostScore) error {
	startTime := time.Now()

	state := windowAll
	if len(entries) >= FeedCacheCap {
		state = windowCapped
	}
	args := make([]interface{}, 0, 3+2*len(entries))
	args = append(args, FeedCacheCap, int(FeedCacheTTL.Seconds()), state)
	for _, e := range entries {
		args = append(args, e.Timestamp, member(e.PostID))
	}

	size, err := warmWindow.Run(ctx, c.client, []string{c.key, c.warmKey}, args...).Int64()
	if err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: posts=%d err=%v", len(entries), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: posts=%d size=%d state=%s duration=%v",
		len(entries), size, state, time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) Exists(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, c.warmKey).Result()
	if err != nil {
		log.Printf("[FeedCache] Exists FAILED: err=%v", err)
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return n > 0, nil
}

func (c *RedisFeedCache) Size(ctx context.Context) (int64, error) {
	size, err := c.client.ZCard(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("get cache size: %w", err)
	}
	return size, nil
}

func (c *RedisFeedCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.warmKey, c.key).Err(); err != nil {
		log.Printf("[FeedCache] Invalidate FAILED: err=%v", err)
		return fmt.Errorf("invalidate feed cache: %w", err)
	}
	log.Printf("[FeedCache] Invalidate OK")
	return nil
}

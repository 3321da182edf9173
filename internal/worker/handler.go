package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"artgram/internal/cache"
	"artgram/internal/metrics"
	"artgram/internal/queue"
)

// BlobDeleter removes stored objects. Deleting a missing key must succeed so
// redelivered events are harmless.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Handler processes activity events from the queue.
type Handler struct {
	blobs     BlobDeleter
	feedCache cache.FeedCache // Can be nil if Redis caching not wired
}

// NewHandler creates a new event handler.
func NewHandler(blobs BlobDeleter, feedCache cache.FeedCache) *Handler {
	return &Handler{
		blobs:     blobs,
		feedCache: feedCache,
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.ActivityEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventPostDeleted, queue.EventUserDeleted:
		err = h.handleContentDeleted(ctx, event)
	case queue.EventMediaReleased:
		err = h.deleteBlobs(ctx, event.BlobKeys)
	default:
		log.Printf("[Worker] Unknown event type: %q", event.Type)
		metrics.RecordWorkerEvent("unknown", "error")
		return fmt.Errorf("unknown event type: %q", event.Type)
	}

	if err != nil {
		metrics.RecordWorkerEvent(event.Type, "error")
		log.Printf("[Worker] HandleEvent FAILED: type=%s duration=%v err=%v",
			event.Type, time.Since(startTime), err)
		return err
	}

	metrics.RecordWorkerEvent(event.Type, "ok")
	log.Printf("[Worker] HandleEvent OK: type=%s user=%d posts=%d keys=%d duration=%v",
		event.Type, event.UserID, len(event.PostIDs), len(event.BlobKeys), time.Since(startTime))
	return nil
}

// handleContentDeleted evicts deleted posts from the feed window and deletes
// the images nothing references anymore.
func (h *Handler) handleContentDeleted(ctx context.Context, event queue.ActivityEvent) error {
	if h.feedCache != nil && len(event.PostIDs) > 0 {
		if err := h.feedCache.RemovePosts(ctx, event.PostIDs...); err != nil {
			return fmt.Errorf("evict posts: %w", err)
		}
	}
	return h.deleteBlobs(ctx, event.BlobKeys)
}

// deleteBlobs tries every key and reports the first failure.
func (h *Handler) deleteBlobs(ctx context.Context, keys []string) error {
	var firstErr error
	var failCount int
	for _, key := range keys {
		if err := h.blobs.Delete(ctx, key); err != nil {
			log.Printf("[Worker] Failed to delete blob: key=%s err=%v", key, err)
			failCount++
			if firstErr == nil {
				firstErr = fmt.Errorf("delete blob %s: %w", key, err)
			}
		}
	}
	if failCount > 0 {
		log.Printf("[Worker] Blob cleanup: total=%d failed=%d", len(keys), failCount)
	}
	return firstErr
}

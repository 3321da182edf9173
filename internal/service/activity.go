package service

import (
	"context"
	"log"

	"artgram/internal/queue"
)

// BlobDeleter deletes stored objects by key.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Activity publishes post-commit cleanup events to the activity stream.
// Without a publisher, or when publishing fails, the blobs are deleted inline.
type Activity struct {
	publisher queue.Publisher
	blobs     BlobDeleter
}

// NewActivity builds an emitter. publisher may be nil.
func NewActivity(publisher queue.Publisher, blobs BlobDeleter) *Activity {
	return &Activity{publisher: publisher, blobs: blobs}
}

// Emit never fails the caller: the mutation it reports has already committed.
func (a *Activity) Emit(ctx context.Context, event queue.ActivityEvent) {
	if a == nil {
		return
	}
	if a.publisher != nil {
		msgID, err := a.publisher.Publish(ctx, queue.StreamActivity, event)
		if err == nil {
			log.Printf("[Activity] Published %s: user=%d msgID=%s", event.Type, event.UserID, msgID)
			return
		}
		log.Printf("[Activity] Failed to publish %s, cleaning up inline: user=%d err=%v", event.Type, event.UserID, err)
	}
	a.deleteBlobs(ctx, event.BlobKeys)
}

func (a *Activity) deleteBlobs(ctx context.Context, keys []string) {
	if a.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := a.blobs.Delete(ctx, key); err != nil {
			log.Printf("[Activity] Failed to delete blob: key=%s err=%v", key, err)
		}
	}
}

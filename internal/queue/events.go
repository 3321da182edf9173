package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the activity stream
const (
	EventPostDeleted   = "post_deleted"
	EventMediaReleased = "media_released"
	EventUserDeleted   = "user_deleted"
)

// Stream names
const (
	StreamActivity = "stream:activity"
)

// Consumer group name for cleanup workers
const (
	ConsumerGroupCleanup = "cleanup_workers"
)

// ActivityEvent is published after a committed mutation whose side effects
// (blob deletion, feed cache eviction) run asynchronously.
type ActivityEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	UserID  int64   `json:"user_id,omitempty"`
	PostIDs []int64 `json:"post_ids,omitempty"`

	// BlobKeys are objects no row references anymore.
	BlobKeys []string `json:"blob_keys,omitempty"`
}

// NewPostDeletedEvent is published after a post is deleted.
func NewPostDeletedEvent(postID, authorID int64, imageKey string) ActivityEvent {
	return ActivityEvent{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		UserID:    authorID,
		PostIDs:   []int64{postID},
		BlobKeys:  nonEmpty(imageKey),
	}
}

// NewMediaReleasedEvent is published when an edit replaces or removes an image.
func NewMediaReleasedEvent(userID int64, keys ...string) ActivityEvent {
	return ActivityEvent{
		Type:      EventMediaReleased,
		Timestamp: time.Now().Unix(),
		UserID:    userID,
		BlobKeys:  nonEmpty(keys...),
	}
}

// NewUserDeletedEvent is published after an account and everything it owned is deleted.
func NewUserDeletedEvent(userID int64, postIDs []int64, keys []string) ActivityEvent {
	return ActivityEvent{
		Type:      EventUserDeleted,
		Timestamp: time.Now().Unix(),
		UserID:    userID,
		PostIDs:   postIDs,
		BlobKeys:  nonEmpty(keys...),
	}
}

func nonEmpty(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e ActivityEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseActivityEvent parses an ActivityEvent from Redis stream message values.
func ParseActivityEvent(values map[string]interface{}) (ActivityEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return ActivityEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event ActivityEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return ActivityEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}

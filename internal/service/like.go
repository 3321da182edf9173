package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"artgram/internal/metrics"
	"artgram/internal/model"
	"artgram/internal/repository"
)

const (
	// LikeMaxAttempts bounds how often a toggle is retried after losing a race.
	LikeMaxAttempts = 5

	likeRetryBackoff = 5 * time.Millisecond
)

type LikeService struct {
	likeRepo repository.LikeRepository
	backoff  time.Duration
}

func NewLikeService(likeRepo repository.LikeRepository) *LikeService {
	return &LikeService{likeRepo: likeRepo, backoff: likeRetryBackoff}
}

// Toggle flips the user's like on a post and returns the new state with the
// post's like count. Concurrent toggles on the same (user, post) pair are
// serialized by the store; a toggle that loses the race is retried.
func (s *LikeService) Toggle(ctx context.Context, userID, postID int64) (*model.LikeResult, error) {
	for attempt := 1; attempt <= LikeMaxAttempts; attempt++ {
		liked, count, err := s.likeRepo.Toggle(ctx, userID, postID)
		if err == nil {
			if liked {
				metrics.RecordLikeToggle("liked")
			} else {
				metrics.RecordLikeToggle("unliked")
			}
			return &model.LikeResult{Liked: liked, LikesCount: count}, nil
		}
		if !errors.Is(err, model.ErrConflictRace) {
			metrics.RecordLikeToggle("error")
			return nil, err
		}

		metrics.RecordLikeRetry()
		log.Printf("[LikeService] Toggle lost race: user=%d post=%d attempt=%d", userID, postID, attempt)

		if attempt == LikeMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			metrics.RecordLikeToggle("error")
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}

	metrics.RecordLikeToggle("error")
	return nil, fmt.Errorf("toggle like: gave up after %d attempts", LikeMaxAttempts)
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return model.FeedDefaultLimit
	}
	if limit > model.FeedMaxLimit {
		return model.FeedMaxLimit
	}
	return limit
}

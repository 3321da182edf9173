package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"artgram/internal/model"
)

type likeRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db, now: utcNow}
}

// Toggle removes the edge if present, otherwise inserts it. The insert does
// nothing on conflict: zero inserted rows means another toggle created the edge
// after our delete saw nothing, and the whole flip is reported as a race.
func (r *likeRepository) Toggle(ctx context.Context, userID, postID int64) (bool, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sharePost(ctx, tx, postID); err != nil {
		return false, 0, err
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`), postID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("delete like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("get rows affected: %w", err)
	}

	liked := false
	if removed == 0 {
		result, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO post_likes (post_id, user_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT (post_id, user_id) DO NOTHING
		`), postID, userID, r.now())
		if err != nil {
			if isForeignKeyViolation(err) {
				tx.Rollback()
				return false, 0, r.missingReference(ctx, postID)
			}
			return false, 0, fmt.Errorf("insert like: %w", err)
		}
		inserted, err := result.RowsAffected()
		if err != nil {
			return false, 0, fmt.Errorf("get rows affected: %w", err)
		}
		if inserted == 0 {
			return false, 0, model.ErrConflictRace
		}
		liked = true
	}

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM post_likes WHERE post_id = ?`), postID); err != nil {
		return false, 0, fmt.Errorf("count likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit transaction: %w", err)
	}
	return liked, count, nil
}

// missingReference decides which side of the edge vanished. Must be called
// after the toggle transaction is closed.
func (r *likeRepository) missingReference(ctx context.Context, postID int64) error {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM posts WHERE id = ?`), postID); err != nil {
		return fmt.Errorf("check post exists: %w", err)
	}
	if n == 0 {
		return model.ErrPostNotFound
	}
	return model.ErrUserNotFound
}

// CheckLikes returns a map of post_id -> liked for the given posts.
func (r *likeRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT post_id FROM post_likes WHERE user_id = ? AND post_id IN (?)`, userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("build check likes query: %w", err)
	}
	var likedIDs []int64
	if err := r.db.SelectContext(ctx, &likedIDs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("check likes: %w", err)
	}

	for _, id := range postIDs {
		result[id] = false
	}
	for _, id := range likedIDs {
		result[id] = true
	}
	return result, nil
}

// ListLikers returns users who liked a post, most recent like first. The
// cursor id is the liker's user id.
func (r *likeRepository) ListLikers(ctx context.Context, postID int64, cursor *model.Cursor, limit int) ([]model.Liker, *model.Cursor, error) {
	query := `
		SELECT u.id, u.username, pr.avatar_url, l.created_at AS liked_at
		FROM post_likes l
		JOIN users u ON u.id = l.user_id
		LEFT JOIN profiles pr ON pr.user_id = l.user_id
		WHERE l.post_id = ?`
	args := []interface{}{postID}
	if cursor != nil {
		query += ` AND (l.created_at < ? OR (l.created_at = ? AND l.user_id < ?))`
		args = append(args, cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY l.created_at DESC, l.user_id DESC LIMIT ?`
	args = append(args, limit+1)

	var likers []model.Liker
	if err := r.db.SelectContext(ctx, &likers, r.db.Rebind(query), args...); err != nil {
		return nil, nil, fmt.Errorf("get post likers: %w", err)
	}

	var next *model.Cursor
	if len(likers) > limit {
		likers = likers[:limit]
		last := likers[len(likers)-1]
		c := model.NewCursor(last.ID, last.LikedAt)
		next = &c
	}
	return likers, next, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"artgram/internal/cache"
	"artgram/internal/model"
	"artgram/internal/policy"
)

// postSelect reads posts with computed counts and the author card.
const postSelect = `
	SELECT p.id, p.user_id, p.title, p.content, p.image_url, p.image_key, p.views,
	       p.created_at, p.updated_at,
	       (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) AS like_count,
	       (SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id) AS comment_count,
	       u.username AS author_username, pr.avatar_url AS author_avatar_url
	FROM posts p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN profiles pr ON pr.user_id = p.user_id
`

const postRowColumns = `id, user_id, title, content, image_url, image_key, views, created_at, updated_at`

type postRow struct {
	model.Post
	AuthorUsername  string  `db:"author_username"`
	AuthorAvatarURL *string `db:"author_avatar_url"`
}

func (row postRow) toPost() model.Post {
	p := row.Post
	p.Author = &model.UserSummary{
		ID:        p.UserID,
		Username:  row.AuthorUsername,
		AvatarURL: row.AuthorAvatarURL,
	}
	return p
}

type postRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db, now: utcNow}
}

// Create inserts a new post. The image, if any, is already in the blob store.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	now := r.now()
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
		INSERT INTO posts (user_id, title, content, image_url, image_key, views, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		RETURNING id
	`), post.UserID, post.Title, post.Content, post.ImageURL, post.ImageKey, now, now).Scan(&post.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert post: %w", err)
	}

	post.Views = 0
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

// GetByID retrieves a single post with counts and author.
func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	var row postRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(postSelect+` WHERE p.id = ?`), postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	post := row.toPost()
	return &post, nil
}

// GetByIDs retrieves multiple posts by their IDs.
// Used for hydrating feed from cache; input order is preserved and missing ids are dropped.
func (r *postRepository) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	if len(postIDs) == 0 {
		return []model.Post{}, nil
	}

	query, args, err := sqlx.In(postSelect+` WHERE p.id IN (?)`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("build posts query: %w", err)
	}
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get posts by ids: %w", err)
	}

	byID := make(map[int64]model.Post, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toPost()
	}
	ordered := make([]model.Post, 0, len(postIDs))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (r *postRepository) Update(ctx context.Context, requesterID, postID int64, upd model.PostUpdate) (*model.Post, string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, "", err
	}
	if !policy.IsOwner(requesterID, post) {
		return nil, "", model.ErrNotPostOwner
	}

	if upd.Title != nil {
		post.Title = *upd.Title
	}
	if upd.Content != nil {
		post.Content = *upd.Content
	}

	var released string
	if (upd.Image != nil || upd.RemoveImage) && post.ImageKey != nil {
		released = *post.ImageKey
	}
	switch {
	case upd.Image != nil:
		post.ImageURL = &upd.Image.URL
		post.ImageKey = &upd.Image.Key
	case upd.RemoveImage:
		post.ImageURL = nil
		post.ImageKey = nil
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE posts SET title = ?, content = ?, image_url = ?, image_key = ?, updated_at = ?
		WHERE id = ?
	`), post.Title, post.Content, post.ImageURL, post.ImageKey, r.now(), postID)
	if err != nil {
		return nil, "", fmt.Errorf("update post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit transaction: %w", err)
	}

	updated, err := r.GetByID(ctx, postID)
	if err != nil {
		return nil, "", err
	}
	return updated, released, nil
}

// Delete removes a post. Comments and likes go with it through ON DELETE CASCADE.
func (r *postRepository) Delete(ctx context.Context, requesterID, postID int64) (*model.Post, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	post, err := lockPost(ctx, tx, postID)
	if err != nil {
		return nil, err
	}
	if !policy.IsOwner(requesterID, post) {
		return nil, model.ErrNotPostOwner
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM posts WHERE id = ?`), postID); err != nil {
		return nil, fmt.Errorf("delete post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return post, nil
}

// ListFeed returns every user's posts, newest first, ties broken by id.
func (r *postRepository) ListFeed(ctx context.Context, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error) {
	query := postSelect
	var args []interface{}
	if cursor != nil {
		query += ` WHERE (p.created_at < ? OR (p.created_at = ? AND p.id < ?))`
		args = append(args, cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`
	args = append(args, limit+1)

	return r.listPage(ctx, query, args, limit)
}

// ListByUser returns one user's posts, newest first.
func (r *postRepository) ListByUser(ctx context.Context, userID int64, cursor *model.Cursor, limit int) ([]model.Post, *model.Cursor, error) {
	query := postSelect + ` WHERE p.user_id = ?`
	args := []interface{}{userID}
	if cursor != nil {
		query += ` AND (p.created_at < ? OR (p.created_at = ? AND p.id < ?))`
		args = append(args, cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`
	args = append(args, limit+1)

	return r.listPage(ctx, query, args, limit)
}

// listPage runs a query fetching limit+1 rows and turns the extra row into a cursor.
func (r *postRepository) listPage(ctx context.Context, query string, args []interface{}, limit int) ([]model.Post, *model.Cursor, error) {
	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, nil, fmt.Errorf("list posts: %w", err)
	}

	var next *model.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		c := model.NewCursor(last.ID, last.CreatedAt)
		next = &c
	}

	posts := make([]model.Post, len(rows))
	for i, row := range rows {
		posts[i] = row.toPost()
	}
	return posts, next, nil
}

func (r *postRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM posts WHERE user_id = ?`), userID); err != nil {
		return 0, fmt.Errorf("count user posts: %w", err)
	}
	return n, nil
}

// GetFeedScores returns (id, created_at) of the newest posts for cache warming.
func (r *postRepository) GetFeedScores(ctx context.Context, limit int) ([]cache.PostScore, error) {
	var rows []struct {
		ID        int64     `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, created_at FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("get feed scores: %w", err)
	}

	scores := make([]cache.PostScore, len(rows))
	for i, row := range rows {
		scores[i] = cache.NewPostScore(row.ID, row.CreatedAt)
	}
	return scores, nil
}

func (r *postRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM posts WHERE id = ?`), postID); err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return n > 0, nil
}

// lockPost reads the post row inside tx, locking it against concurrent edits.
func lockPost(ctx context.Context, tx *sqlx.Tx, postID int64) (*model.Post, error) {
	var post model.Post
	err := tx.GetContext(ctx, &post, tx.Rebind(`SELECT `+postRowColumns+` FROM posts WHERE id = ?`+lockClause(tx, "FOR UPDATE")), postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock post: %w", err)
	}
	return &post, nil
}

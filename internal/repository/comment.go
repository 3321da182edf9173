package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"artgram/internal/model"
	"artgram/internal/policy"
)

const commentSelect = `
	SELECT c.id, c.post_id, c.user_id, c.content, c.created_at,
	       u.username AS author_username, pr.avatar_url AS author_avatar_url
	FROM post_comments c
	JOIN users u ON u.id = c.user_id
	LEFT JOIN profiles pr ON pr.user_id = c.user_id
`

type commentRow struct {
	model.Comment
	AuthorUsername  string  `db:"author_username"`
	AuthorAvatarURL *string `db:"author_avatar_url"`
}

func (row commentRow) toComment() model.Comment {
	c := row.Comment
	c.Author = &model.UserSummary{
		ID:        c.UserID,
		Username:  row.AuthorUsername,
		AvatarURL: row.AuthorAvatarURL,
	}
	return c
}

type commentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db, now: utcNow}
}

// Create inserts a comment after checking, in the same transaction, that the post exists.
func (r *commentRepository) Create(ctx context.Context, postID, userID int64, content string) (*model.Comment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sharePost(ctx, tx, postID); err != nil {
		return nil, err
	}

	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO post_comments (post_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), postID, userID, content, r.now()).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a single comment with its author.
func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(commentSelect+` WHERE c.id = ?`), commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	c := row.toComment()
	return &c, nil
}

// Delete removes a comment. Only the comment author may delete it.
func (r *commentRepository) Delete(ctx context.Context, requesterID, commentID int64) (*model.Comment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var comment model.Comment
	err = tx.GetContext(ctx, &comment, tx.Rebind(`
		SELECT id, post_id, user_id, content, created_at FROM post_comments WHERE id = ?`+lockClause(tx, "FOR UPDATE")), commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock comment: %w", err)
	}

	if !policy.IsOwner(requesterID, &comment) {
		return nil, model.ErrNotCommentOwner
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM post_comments WHERE id = ?`), commentID); err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &comment, nil
}

// ListByPost returns the post's comments in the order they were written.
func (r *commentRepository) ListByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(commentSelect+`
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.id ASC
	`), postID)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}

	comments := make([]model.Comment, len(rows))
	for i, row := range rows {
		comments[i] = row.toComment()
	}
	return comments, nil
}

// sharePost checks the post exists and, on Postgres, holds a share lock so it
// cannot be deleted before tx commits.
func sharePost(ctx context.Context, tx *sqlx.Tx, postID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM posts WHERE id = ?`+lockClause(tx, "FOR SHARE")), postID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("check post: %w", err)
	}
	return nil
}

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

const userColumns = `id, username, email, password_hashed, created_at, updated_at`

const profileColumns = `id, user_id, bio, avatar_url, avatar_key, website, instagram, location, created_at, updated_at`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db, now: utcNow}
}

// Create inserts the user and its profile. Both rows commit together, so no
// user is ever observable without a profile.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO users (username, email, password_hashed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), u.Username, u.Email, u.PasswordHashed, now, now).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	if err := insertProfile(ctx, tx, u.ID, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

// GetByUsername retrieves a user by their username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &u, nil
}

func (r *userRepository) EnsureProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertProfile(ctx, tx, userID, r.now()); err != nil {
		return nil, err
	}

	var p model.Profile
	err = tx.GetContext(ctx, &p, tx.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &p, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID int64, upd model.ProfileUpdate) (*model.Profile, string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	if err := insertProfile(ctx, tx, userID, now); err != nil {
		return nil, "", err
	}

	var p model.Profile
	err = tx.GetContext(ctx, &p, tx.Rebind(`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`+lockClause(tx, "FOR UPDATE")), userID)
	if err != nil {
		return nil, "", fmt.Errorf("lock profile: %w", err)
	}
	if !policy.IsOwner(userID, &p) {
		return nil, "", model.ErrUserNotFound
	}

	if upd.Bio != nil {
		p.Bio = *upd.Bio
	}
	if upd.Website != nil {
		p.Website = *upd.Website
	}
	if upd.Instagram != nil {
		p.Instagram = *upd.Instagram
	}
	if upd.Location != nil {
		p.Location = *upd.Location
	}

	var released string
	if (upd.Avatar != nil || upd.RemoveAvatar) && p.AvatarKey != nil {
		released = *p.AvatarKey
	}
	switch {
	case upd.Avatar != nil:
		p.AvatarURL = &upd.Avatar.URL
		p.AvatarKey = &upd.Avatar.Key
	case upd.RemoveAvatar:
		p.AvatarURL = nil
		p.AvatarKey = nil
	}
	p.UpdatedAt = now

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE profiles
		SET bio = ?, website = ?, instagram = ?, location = ?, avatar_url = ?, avatar_key = ?, updated_at = ?
		WHERE user_id = ?
	`), p.Bio, p.Website, p.Instagram, p.Location, p.AvatarURL, p.AvatarKey, p.UpdatedAt, userID)
	if err != nil {
		return nil, "", fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit transaction: %w", err)
	}
	return &p, released, nil
}

// Delete removes the user. Foreign keys cascade to the profile, the user's
// posts (and their comments and likes) and the user's own comments and likes.
func (r *userRepository) Delete(ctx context.Context, userID int64) (*model.DeletedUser, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Post inserts check the user row through the foreign key, so they wait
	// behind this lock and every cascaded post is listed below.
	var lockedID int64
	err = tx.GetContext(ctx, &lockedID, tx.Rebind(`SELECT id FROM users WHERE id = ?`+lockClause(tx, "FOR UPDATE")), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	deleted := &model.DeletedUser{UserID: userID}

	type postRow struct {
		ID       int64   `db:"id"`
		ImageKey *string `db:"image_key"`
	}
	var posts []postRow
	err = tx.SelectContext(ctx, &posts, tx.Rebind(`SELECT id, image_key FROM posts WHERE user_id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("list user posts: %w", err)
	}
	for _, p := range posts {
		deleted.PostIDs = append(deleted.PostIDs, p.ID)
		if p.ImageKey != nil {
			deleted.BlobKeys = append(deleted.BlobKeys, *p.ImageKey)
		}
	}

	var avatarKeys []*string
	err = tx.SelectContext(ctx, &avatarKeys, tx.Rebind(`SELECT avatar_key FROM profiles WHERE user_id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("get avatar key: %w", err)
	}
	for _, k := range avatarKeys {
		if k != nil {
			deleted.BlobKeys = append(deleted.BlobKeys, *k)
		}
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, model.ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return deleted, nil
}

// insertProfile creates the profile row unless one already exists.
func insertProfile(ctx context.Context, tx *sqlx.Tx, userID int64, now time.Time) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO profiles (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`), userID, now, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// utcNow is the repositories' clock. Microsecond precision matches Postgres
// and keeps cursor round-trips exact.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

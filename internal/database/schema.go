package database

// Timestamps are always written by the application in UTC so both drivers
// compare and order them the same way.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL,
		password_hashed TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT,
		avatar_key TEXT,
		website VARCHAR(200) NOT NULL DEFAULT '',
		instagram VARCHAR(100) NOT NULL DEFAULT '',
		location VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(200) NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT,
		image_key TEXT,
		views BIGINT NOT NULL DEFAULT 0 CHECK (views >= 0),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS post_comments (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_post_comments_post ON post_comments (post_id, created_at, id)`,
	`CREATE TABLE IF NOT EXISTS post_likes (
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (post_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_post_likes_user ON post_likes (user_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		password_hashed TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		bio TEXT NOT NULL DEFAULT '',
		avatar_url TEXT,
		avatar_key TEXT,
		website TEXT NOT NULL DEFAULT '',
		instagram TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT,
		image_key TEXT,
		views INTEGER NOT NULL DEFAULT 0 CHECK (views >= 0),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS post_comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_post_comments_post ON post_comments (post_id, created_at, id)`,
	`CREATE TABLE IF NOT EXISTS post_likes (
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (post_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_post_likes_user ON post_likes (user_id)`,
}

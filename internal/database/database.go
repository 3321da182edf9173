package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"artgram/internal/config"
)

func Connect(cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return ConnectSQLite(SQLiteDSN(cfg.SQLitePath))
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)

		db, err := sqlx.Connect(config.DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Printf("[Database] Connected to postgres host=%s db=%s", cfg.DBHost, cfg.DBName)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// SQLiteDSN enables foreign keys and takes the write lock when a transaction
// begins, so concurrent writers queue instead of failing on lock upgrade.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_txlock=immediate&_busy_timeout=5000", path)
}

// ConnectSQLite opens a SQLite database with a single connection. SQLite
// serializes writers anyway and in-memory databases live per connection.
func ConnectSQLite(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(config.DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	log.Printf("[Database] Opened sqlite database")
	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var stmts []string
	switch db.DriverName() {
	case config.DriverSQLite:
		stmts = sqliteSchema
	case config.DriverPostgres:
		stmts = postgresSchema
	default:
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

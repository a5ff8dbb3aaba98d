// Package metadata persists filesystem-adjacent object metadata for the
// local storage backend: the owner, original file name, content type, and
// size the remote backend would attach as S3 user metadata. Two backends are
// supported, SQLite and PostgreSQL.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	_ "modernc.org/sqlite" // SQLite driver
)

// Object is the metadata recorded alongside a stored blob.
type Object struct {
	Path         string
	ContentType  string
	SizeBytes    int64
	OwnerID      string
	OriginalName string
}

// Record is a persisted metadata entry.
type Record struct {
	ID           uuid.UUID `json:"id"`
	Path         string    `json:"path"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	OwnerID      string    `json:"owner_id"`
	OriginalName string    `json:"original_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repo is the interface for metadata persistence. Implementations must be
// safe for concurrent use. Paths are unique: re-saving a path updates the
// existing entry rather than accumulating rows, matching the overwrite
// semantics of the storage layer.
type Repo interface {
	// Upsert creates or updates the entry for obj.Path. The bool reports
	// whether a new entry was created.
	Upsert(ctx context.Context, obj Object) (Record, bool, error)

	// Get retrieves the entry for a path, or authd.ErrNotFound.
	Get(ctx context.Context, path string) (Record, error)

	// ListByOwner retrieves all entries owned by ownerID, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
}

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the backend: "sqlite" or "postgres"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (connection string)
	DSN string `mapstructure:"dsn" validate:"required"`
	// Table is the name of the metadata table
	Table string `mapstructure:"table" validate:"required"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks that a table name is lowercase alphanumeric with
// underscores and at most 63 characters, so it can be interpolated into SQL.
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Connect opens the configured backend, runs migrations, and returns a Repo.
// The returned cleanup function closes the connection.
func Connect(ctx context.Context, cfg Config) (Repo, func(), error) {
	if !IsValidTableName(cfg.Table) {
		return nil, nil, fmt.Errorf("connect metadata: invalid table name: %s", cfg.Table)
	}

	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN, cfg.Table)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN, cfg.Table)
	default:
		return nil, nil, fmt.Errorf("connect metadata: unsupported backend: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, dsn, table string) (Repo, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = MigrateSQLite(ctx, db, table); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	repo, err := NewSQLiteRepo(db, table)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create sqlite repo: %w", err)
	}

	return repo, func() { _ = db.Close() }, nil
}

func connectPostgres(ctx context.Context, dsn, table string) (Repo, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = MigratePostgres(ctx, pool, table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	repo, err := NewPostgresRepo(pool, table)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres repo: %w", err)
	}

	return repo, pool.Close, nil
}

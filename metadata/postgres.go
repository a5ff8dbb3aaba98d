package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cfiguera/authd"
)

// MigratePostgres creates the metadata table and its owner index if they do
// not exist.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, table string) error {
	if !IsValidTableName(table) {
		return fmt.Errorf("migrate postgres: invalid table name: %s", table)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		content_type TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		owner_id TEXT NOT NULL,
		original_name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, table)

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate postgres: create table: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s (owner_id)`, table, table)
	if _, err := pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("migrate postgres: create index: %w", err)
	}

	return nil
}

type postgresRepo struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresRepo creates a Repo backed by PostgreSQL. The table name is
// validated before being interpolated into queries.
func NewPostgresRepo(pool *pgxpool.Pool, table string) (Repo, error) {
	if !IsValidTableName(table) {
		return nil, fmt.Errorf("new postgres repo: invalid table name: %s", table)
	}
	return &postgresRepo{pool: pool, table: table}, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, obj Object) (Record, bool, error) {
	// Insert and update share the same timestamp so created_at == updated_at
	// identifies a fresh row.
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, path, content_type, size_bytes, owner_id, original_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (path) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			size_bytes = EXCLUDED.size_bytes,
			owner_id = EXCLUDED.owner_id,
			original_name = EXCLUDED.original_name,
			updated_at = EXCLUDED.updated_at
		RETURNING id, path, content_type, size_bytes, owner_id, original_name, created_at, updated_at`, r.table)

	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, query,
		uuid.NewString(), obj.Path, obj.ContentType, obj.SizeBytes, obj.OwnerID, obj.OriginalName, now,
	)

	var m Record
	err := row.Scan(&m.ID, &m.Path, &m.ContentType, &m.SizeBytes, &m.OwnerID, &m.OriginalName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Record{}, false, fmt.Errorf("upsert: %w", err)
	}

	created := m.CreatedAt.Equal(m.UpdatedAt)
	return m, created, nil
}

func (r *postgresRepo) Get(ctx context.Context, path string) (Record, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, path, content_type, size_bytes, owner_id, original_name, created_at, updated_at
		FROM %s WHERE path = $1`, r.table)

	var m Record
	err := r.pool.QueryRow(ctx, query, path).Scan(
		&m.ID, &m.Path, &m.ContentType, &m.SizeBytes, &m.OwnerID, &m.OriginalName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, authd.ErrNotFound
		}
		return Record{}, fmt.Errorf("get: %w", err)
	}

	return m, nil
}

func (r *postgresRepo) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, path, content_type, size_bytes, owner_id, original_name, created_at, updated_at
		FROM %s WHERE owner_id = $1 ORDER BY updated_at DESC`, r.table)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var m Record
		scanErr := rows.Scan(&m.ID, &m.Path, &m.ContentType, &m.SizeBytes, &m.OwnerID, &m.OriginalName, &m.CreatedAt, &m.UpdatedAt)
		if scanErr != nil {
			return nil, fmt.Errorf("list by owner: %w", scanErr)
		}
		records = append(records, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list by owner: rows: %w", err)
	}

	return records, nil
}

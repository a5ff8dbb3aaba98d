package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cfiguera/authd"
)

// MigrateSQLite creates the metadata table and its owner index if they do
// not exist.
func MigrateSQLite(ctx context.Context, db *sql.DB, table string) error {
	if !IsValidTableName(table) {
		return fmt.Errorf("migrate sqlite: invalid table name: %s", table)
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		content_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		owner_id TEXT NOT NULL,
		original_name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`, table)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate sqlite: create table: %w", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_owner ON %s (owner_id)`, table, table)
	if _, err := db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("migrate sqlite: create index: %w", err)
	}

	return nil
}

type sqliteRepo struct {
	db    *sql.DB
	table string
}

// NewSQLiteRepo creates a Repo backed by SQLite. The table name is validated
// before being interpolated into queries.
func NewSQLiteRepo(db *sql.DB, table string) (Repo, error) {
	if !IsValidTableName(table) {
		return nil, fmt.Errorf("new sqlite repo: invalid table name: %s", table)
	}
	return &sqliteRepo{db: db, table: table}, nil
}

func (r *sqliteRepo) Upsert(ctx context.Context, obj Object) (Record, bool, error) {
	var existingID string
	checkQuery := fmt.Sprintf(`SELECT id FROM %s WHERE path = ?`, r.table) //nolint:gosec // table name is validated
	err := r.db.QueryRowContext(ctx, checkQuery, obj.Path).Scan(&existingID)
	isInsert := errors.Is(err, sql.ErrNoRows)
	if err != nil && !isInsert {
		return Record{}, false, fmt.Errorf("upsert: check existing: %w", err)
	}

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	if isInsert {
		newID := uuid.New()
		insertQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
			`INSERT INTO %s (id, path, content_type, size_bytes, owner_id, original_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r.table)

		_, err = r.db.ExecContext(ctx, insertQuery,
			newID.String(), obj.Path, obj.ContentType, obj.SizeBytes, obj.OwnerID, obj.OriginalName, nowStr, nowStr,
		)
		if err != nil {
			return Record{}, false, fmt.Errorf("upsert: insert: %w", err)
		}

		return Record{
			ID:           newID,
			Path:         obj.Path,
			ContentType:  obj.ContentType,
			SizeBytes:    obj.SizeBytes,
			OwnerID:      obj.OwnerID,
			OriginalName: obj.OriginalName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, true, nil
	}

	updateQuery := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET content_type = ?, size_bytes = ?, owner_id = ?, original_name = ?, updated_at = ?
		WHERE path = ?`, r.table)

	_, err = r.db.ExecContext(ctx, updateQuery,
		obj.ContentType, obj.SizeBytes, obj.OwnerID, obj.OriginalName, nowStr, obj.Path,
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("upsert: update: %w", err)
	}

	record, err := r.Get(ctx, obj.Path)
	if err != nil {
		return Record{}, false, fmt.Errorf("upsert: reload: %w", err)
	}

	return record, false, nil
}

func (r *sqliteRepo) Get(ctx context.Context, path string) (Record, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, path, content_type, size_bytes, owner_id, original_name, created_at, updated_at
		FROM %s WHERE path = ?`, r.table)

	record, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, query, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, authd.ErrNotFound
		}
		return Record{}, fmt.Errorf("get: %w", err)
	}

	return record, nil
}

func (r *sqliteRepo) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, path, content_type, size_bytes, owner_id, original_name, created_at, updated_at
		FROM %s WHERE owner_id = ? ORDER BY updated_at DESC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []Record{}
	for rows.Next() {
		record, scanErr := scanSQLiteRecord(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("list by owner: %w", scanErr)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list by owner: rows: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (Record, error) {
	var m Record
	var idStr, createdAt, updatedAt string

	err := row.Scan(&idStr, &m.Path, &m.ContentType, &m.SizeBytes, &m.OwnerID, &m.OriginalName, &createdAt, &updatedAt)
	if err != nil {
		return Record{}, err
	}

	m.ID, err = uuid.Parse(idStr)
	if err != nil {
		return Record{}, fmt.Errorf("parse uuid: %w", err)
	}

	m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at: %w", err)
	}

	m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return m, nil
}

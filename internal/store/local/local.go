// Package local implements store.Store on a SQLite file for single-user installs.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"histreader/internal/models"
	"histreader/internal/store"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sql.DB
}

var _ store.Store = (*DB)(nil)

// NewDB opens the database at path and initializes the schema.
func NewDB(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// sqliteDSN adds a busy timeout to path unless its query string already sets one.
func sqliteDSN(path string) (string, error) {
	file, rawQuery, _ := strings.Cut(path, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("parse sqlite dsn options: %w", err)
	}
	if q.Get("_busy_timeout") == "" {
		q.Set("_busy_timeout", "5000")
	}
	return file + "?" + q.Encode(), nil
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fetch_history (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		char_count INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		used_fallback INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fetch_history_started_at ON fetch_history(started_at);

	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS background_jobs (
		job_id TEXT PRIMARY KEY,
		task_type TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		queue TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// RecordFetch stores one fetch cycle outcome.
func (db *DB) RecordFetch(ctx context.Context, rec *models.FetchRecord) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO fetch_history (id, title, category, char_count, attempts, used_fallback, status, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Title, rec.Category, rec.CharCount, rec.Attempts, rec.UsedFallback,
		string(rec.Status), rec.Error, rec.StartedAt.UTC(), rec.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record fetch %s: %w", rec.ID, err)
	}
	return nil
}

// ListFetches returns the most recent fetch records, newest first.
func (db *DB) ListFetches(ctx context.Context, limit int) ([]*models.FetchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, category, char_count, attempts, used_fallback, status, error, started_at, completed_at
		FROM fetch_history
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list fetches: %w", err)
	}
	defer rows.Close()

	var records []*models.FetchRecord
	for rows.Next() {
		var (
			r      models.FetchRecord
			id     string
			status string
		)
		if err := rows.Scan(&id, &r.Title, &r.Category, &r.CharCount, &r.Attempts, &r.UsedFallback,
			&status, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		r.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse fetch id %q: %w", id, err)
		}
		r.Status = models.FetchStatus(status)
		records = append(records, &r)
	}
	return records, rows.Err()
}

// GetPreference returns the stored value for key or store.ErrNotFound.
func (db *DB) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("preference %q: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get preference %q: %w", key, err)
	}
	return value, nil
}

// SetPreference upserts a preference value.
func (db *DB) SetPreference(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set preference %q: %w", key, err)
	}
	return nil
}

// RecordJobEnqueue records an enqueued background job. Duplicate job IDs are ignored.
func (db *DB) RecordJobEnqueue(ctx context.Context, params store.JobRecordParams) error {
	payload := "{}"
	if params.Payload != nil {
		payload = string(params.Payload)
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO background_jobs (job_id, task_type, payload, queue, status, requested_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		params.JobID.String(), params.TaskType, payload, params.Queue, params.Status, params.RequestedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record job %s: %w", params.JobID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		log.Debugf("job %s already recorded, skipping insertion", params.JobID)
	}
	return nil
}

// Package sqlite provides a SQLite-backed freshness channel. Separate OS
// processes that open the same file share one register, which makes it the
// out-of-process counterpart of freshness.MemoryChannel.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/freshness/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists freshness records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite freshness store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

func applyMigrations(db *sql.DB) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Publish overwrites the record for the session.
func (s *Store) Publish(ctx context.Context, sessionID string, epoch freshness.Epoch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("publish: %w", freshness.ErrStorageUnavailable)
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO freshness (key, session_id, sequence, item_key, published_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   session_id = excluded.session_id,
		   sequence = excluded.sequence,
		   item_key = excluded.item_key,
		   published_at = excluded.published_at`,
		freshness.Key(sessionID),
		epoch.SessionID,
		int64(epoch.Sequence), //nolint:gosec
		epoch.ItemKey,
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w: %w", freshness.Key(sessionID), freshness.ErrStorageUnavailable, err)
	}
	return nil
}

// Read returns the record for the session.
func (s *Store) Read(ctx context.Context, sessionID string) (freshness.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return freshness.Record{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return freshness.Record{}, false, fmt.Errorf("read: %w", freshness.ErrStorageUnavailable)
	}

	var (
		rec         freshness.Record
		sequence    int64
		publishedAt int64
	)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT session_id, sequence, item_key, published_at
		 FROM freshness WHERE key = ?`,
		freshness.Key(sessionID),
	)
	err := row.Scan(&rec.Epoch.SessionID, &sequence, &rec.Epoch.ItemKey, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return freshness.Record{}, false, nil
	}
	if err != nil {
		return freshness.Record{}, false, fmt.Errorf("read %s: %w: %w", freshness.Key(sessionID), freshness.ErrStorageUnavailable, err)
	}
	rec.Epoch.Sequence = uint64(sequence) //nolint:gosec
	rec.PublishedAt = fromMillis(publishedAt)
	return rec, true, nil
}

// Sessions lists the session ids that have a record, newest first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT session_id FROM freshness ORDER BY published_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ freshness.Channel = (*Store)(nil)

// Package sqlite stores timelines in a single SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/storage"
	"github.com/Tiliavir/timeline-manager/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// Store is a storage.Repository backed by SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.Repository = (*Store)(nil)

// Open opens a SQLite store at the provided path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	// Foreign keys are per connection; keep a single one so cascades always apply.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// List loads every stored timeline, ordered by id.
func (s *Store) List(ctx context.Context) ([]*model.Timeline, error) {
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT id FROM timelines ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list timelines: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan timeline id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timelines: %w", err)
	}

	timelines := make([]*model.Timeline, 0, len(ids))
	for _, id := range ids {
		tl, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, tl)
	}
	return timelines, nil
}

// Load reads a timeline and its events in their stored order.
func (s *Store) Load(ctx context.Context, id string) (*model.Timeline, error) {
	tl := &model.Timeline{ID: id, Events: []model.Event{}}
	var start, end string
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT name, start_date, end_date, next_event_id FROM timelines WHERE id = ?", id,
	).Scan(&tl.Name, &start, &end, &tl.NextEventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get timeline %q: %w", id, err)
	}
	if tl.StartDate, err = model.ParseDate(start); err != nil {
		return nil, fmt.Errorf("timeline %q start: %w", id, err)
	}
	if tl.EndDate, err = model.ParseDate(end); err != nil {
		return nil, fmt.Errorf("timeline %q end: %w", id, err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, description, type, start_date, end_date, color, external_id
FROM events WHERE timeline_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("list events of %q: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("timeline %q: %w", id, err)
		}
		tl.Events = append(tl.Events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events of %q: %w", id, err)
	}
	if err := model.ValidateTimeline(tl); err != nil {
		return nil, fmt.Errorf("timeline %q: %w", id, err)
	}
	return tl, nil
}

func scanEvent(rows *sql.Rows) (model.Event, error) {
	var (
		e          model.Event
		typ, start string
		end        sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.Name, &e.Description, &typ, &start, &end, &e.Color, &e.ExternalID); err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}
	var err error
	if e.Type, err = model.ParseEventType(typ); err != nil {
		return e, fmt.Errorf("event %d: %w", e.ID, err)
	}
	if e.StartDate, err = model.ParseDate(start); err != nil {
		return e, fmt.Errorf("event %d start: %w", e.ID, err)
	}
	if end.Valid {
		if e.EndDate, err = model.ParseDate(end.String); err != nil {
			return e, fmt.Errorf("event %d end: %w", e.ID, err)
		}
	}
	return e, nil
}

// Save replaces the stored timeline and all of its events in one transaction.
func (s *Store) Save(ctx context.Context, tl *model.Timeline) error {
	if strings.TrimSpace(tl.ID) == "" {
		return fmt.Errorf("timeline id is required")
	}
	if err := model.ValidateTimeline(tl); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	if err := saveTx(ctx, tx, tl, s.now().UTC().Format(timeFormat)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timeline %q: %w", tl.ID, err)
	}
	tl.HasUnsavedChanges = false
	return nil
}

func saveTx(ctx context.Context, tx *sql.Tx, tl *model.Timeline, updatedAt string) error {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO timelines (id, name, start_date, end_date, next_event_id, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    start_date = excluded.start_date,
    end_date = excluded.end_date,
    next_event_id = excluded.next_event_id,
    updated_at = excluded.updated_at`,
		tl.ID, tl.Name, tl.StartDate.String(), tl.EndDate.String(), tl.NextEventID, updatedAt,
	); err != nil {
		return fmt.Errorf("put timeline %q: %w", tl.ID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE timeline_id = ?", tl.ID); err != nil {
		return fmt.Errorf("clear events of %q: %w", tl.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events (timeline_id, id, position, name, description, type, start_date, end_date, color, external_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range tl.Events {
		var end sql.NullString
		if e.Type == model.Duration {
			end = sql.NullString{String: e.EndDate.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			tl.ID, e.ID, i, e.Name, e.Description, e.Type.String(), e.StartDate.String(), end, e.Color, e.ExternalID,
		); err != nil {
			return fmt.Errorf("put event %d of %q: %w", e.ID, tl.ID, err)
		}
	}
	return nil
}

// Delete removes a timeline; its events go with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM timelines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete timeline %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timeline %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", storage.ErrNotFound, id)
	}
	return nil
}

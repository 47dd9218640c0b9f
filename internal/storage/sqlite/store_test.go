package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tlm.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func sampleTimeline(id string) *model.Timeline {
	return &model.Timeline{
		ID:          id,
		Name:        "Release",
		StartDate:   model.MustDate("2024-01-01"),
		EndDate:     model.MustDate("2024-01-10"),
		NextEventID: 4,
		Events: []model.Event{
			{ID: 3, Name: "C", Type: model.Point, StartDate: model.MustDate("2024-01-06")},
			{ID: 1, Name: "A", Type: model.Duration, StartDate: model.MustDate("2024-01-02"), EndDate: model.MustDate("2024-01-04"), Description: "first", ExternalID: "ext-1"},
		},
		HasUnsavedChanges: true,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenTwiceAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tlm.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var n int
		if err := store.sqlDB.QueryRow("SELECT COUNT(*) FROM " + migrationTable).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("open #%d: %d migrations recorded, want 1", i+1, n)
		}
		_ = store.Close()
	}
}

func TestSaveAndLoadKeepsEventOrder(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	store.now = func() time.Time { return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC) }

	tl := sampleTimeline("tl-1")
	if err := store.Save(ctx, tl); err != nil {
		t.Fatalf("save: %v", err)
	}
	if tl.HasUnsavedChanges {
		t.Error("save did not clear the unsaved flag")
	}

	var updatedAt string
	if err := store.sqlDB.QueryRow("SELECT updated_at FROM timelines WHERE id = ?", "tl-1").Scan(&updatedAt); err != nil {
		t.Fatal(err)
	}
	if updatedAt != "2026-02-01T10:00:00Z" {
		t.Errorf("updated_at = %s", updatedAt)
	}

	loaded, err := store.Load(ctx, "tl-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.NextEventID != 4 || loaded.StartDate.String() != "2024-01-01" || loaded.EndDate.String() != "2024-01-10" {
		t.Errorf("loaded timeline = %+v", loaded)
	}
	if len(loaded.Events) != 2 || loaded.Events[0].ID != 3 || loaded.Events[1].ID != 1 {
		t.Fatalf("events = %+v, want ids [3 1]", loaded.Events)
	}
	a := loaded.Events[1]
	if a.Type != model.Duration || a.EndDate.String() != "2024-01-04" || a.Description != "first" || a.ExternalID != "ext-1" {
		t.Errorf("duration event = %+v", a)
	}
	if !loaded.Events[0].EndDate.IsZero() {
		t.Errorf("point event end = %s, want zero", loaded.Events[0].EndDate)
	}
}

func TestSaveReplacesEvents(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	tl := sampleTimeline("tl-1")
	if err := store.Save(ctx, tl); err != nil {
		t.Fatal(err)
	}
	tl.Name = "Renamed"
	tl.Events = tl.Events[:1]
	if err := store.Save(ctx, tl); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(ctx, "tl-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "Renamed" || len(loaded.Events) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)

	tl := sampleTimeline("tl-1")
	tl.Events[1].EndDate = model.MustDate("2024-01-01")
	if err := store.Save(ctx, tl); !errors.Is(err, model.ErrInvalidRange) {
		t.Errorf("save error = %v, want ErrInvalidRange", err)
	}
	if _, err := store.Load(ctx, "tl-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("invalid timeline was stored: %v", err)
	}
	if err := store.Save(ctx, sampleTimeline("")); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	for _, id := range []string{"b", "a"} {
		if err := store.Save(ctx, sampleTimeline(id)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || len(list[1].Events) != 2 {
		t.Fatalf("list = %+v", list)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int
	if err := store.sqlDB.QueryRow("SELECT COUNT(*) FROM events WHERE timeline_id = ?", "a").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d events left after delete", n)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestLoadRejectsInvalidStoredTimeline(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	if err := store.Save(ctx, sampleTimeline("tl-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.sqlDB.ExecContext(ctx,
		"UPDATE timelines SET start_date = '2024-02-01' WHERE id = 'tl-1'"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "tl-1"); !errors.Is(err, model.ErrInvalidRange) {
		t.Fatalf("Load error = %v, want %v", err, model.ErrInvalidRange)
	}
}

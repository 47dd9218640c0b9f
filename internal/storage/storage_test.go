package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/storage"
)

func sampleTimeline(id string) *model.Timeline {
	return &model.Timeline{
		ID:          id,
		Name:        "Release",
		StartDate:   model.MustDate("2024-01-01"),
		EndDate:     model.MustDate("2024-01-10"),
		NextEventID: 4,
		Events: []model.Event{
			{ID: 1, Name: "A", Type: model.Duration, StartDate: model.MustDate("2024-01-02"), EndDate: model.MustDate("2024-01-04")},
			{ID: 3, Name: "C", Type: model.Point, StartDate: model.MustDate("2024-01-06"), Color: "#ff8800"},
		},
		HasUnsavedChanges: true,
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want storage.Format
		err  bool
	}{
		{"a.json", storage.JSON, false},
		{"dir/a.YAML", storage.YAML, false},
		{"a.yml", storage.YAML, false},
		{"a.txt", "", true},
		{"a", "", true},
	}
	for _, tt := range tests {
		got, err := storage.FormatOf(tt.path)
		if (err != nil) != tt.err {
			t.Errorf("FormatOf(%q) error = %v, want error %v", tt.path, err, tt.err)
			continue
		}
		if err != nil && !errors.Is(err, storage.ErrUnknownFormat) {
			t.Errorf("FormatOf(%q) error = %v, want ErrUnknownFormat", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("FormatOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	for _, f := range []storage.Format{storage.JSON, storage.YAML} {
		t.Run(string(f), func(t *testing.T) {
			ctx := context.Background()
			store, err := storage.NewFileStore(t.TempDir(), f)
			if err != nil {
				t.Fatal(err)
			}
			tl := sampleTimeline("tl-1")
			if err := store.Save(ctx, tl); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if tl.HasUnsavedChanges {
				t.Error("Save did not clear the unsaved flag")
			}
			if _, err := os.Stat(filepath.Join(store.Dir, "tl-1."+string(f))); err != nil {
				t.Errorf("expected file: %v", err)
			}

			loaded, err := store.Load(ctx, "tl-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Name != "Release" || loaded.NextEventID != 4 || len(loaded.Events) != 2 {
				t.Fatalf("loaded = %+v", loaded)
			}
			if loaded.Events[0].EndDate.String() != "2024-01-04" || loaded.Events[1].Type != model.Point {
				t.Errorf("events = %+v", loaded.Events)
			}
			if !loaded.Events[1].EndDate.IsZero() || loaded.Events[1].Color != "#ff8800" {
				t.Errorf("point event = %+v", loaded.Events[1])
			}
			if loaded.HasUnsavedChanges {
				t.Error("Load returned a dirty timeline")
			}
		})
	}
}

func TestFileStoreKeepsExistingFormat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := storage.WriteFile(filepath.Join(dir, "tl-1.yaml"), sampleTimeline("tl-1")); err != nil {
		t.Fatal(err)
	}
	store, _ := storage.NewFileStore(dir, storage.JSON)
	tl, err := store.Load(ctx, "tl-1")
	if err != nil {
		t.Fatal(err)
	}
	tl.Name = "Renamed"
	if err := store.Save(ctx, tl); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tl-1.json")); !os.IsNotExist(err) {
		t.Error("Save created a second file in the default format")
	}
	again, err := store.Load(ctx, "tl-1")
	if err != nil || again.Name != "Renamed" {
		t.Errorf("Load = %+v, %v", again, err)
	}
}

func TestFileStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := storage.NewFileStore(filepath.Join(t.TempDir(), "timelines"), storage.JSON)

	list, err := store.List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("List on missing dir = %v, %v", list, err)
	}

	for _, id := range []string{"b", "a"} {
		if err := store.Save(ctx, sampleTimeline(id)); err != nil {
			t.Fatal(err)
		}
	}
	// Leftovers from interrupted writes are not timelines.
	if err := os.WriteFile(filepath.Join(store.Dir, "c.json.tmp"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	list, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("List ids = %v", list)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Load after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreCorruptFileBackedUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{bad json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store, _ := storage.NewFileStore(dir, storage.JSON)
	if _, err := store.Load(context.Background(), "bad"); err == nil {
		t.Fatal("expected error for corrupt JSON, got nil")
	}
	if _, err := os.Stat(path + ".corrupt"); os.IsNotExist(err) {
		t.Error("expected backup file to exist after corrupt JSON")
	}
}

func TestFileStoreRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store, _ := storage.NewFileStore(t.TempDir(), storage.JSON)

	tl := sampleTimeline("x")
	tl.EndDate = model.MustDate("2023-12-31")
	if err := store.Save(ctx, tl); !errors.Is(err, model.ErrInvalidRange) {
		t.Errorf("Save invalid range error = %v", err)
	}
	if !tl.HasUnsavedChanges {
		t.Error("failed Save cleared the unsaved flag")
	}
	if err := store.Save(ctx, sampleTimeline("../escape")); err == nil {
		t.Error("Save accepted a path-like id")
	}
	if _, err := storage.NewFileStore(t.TempDir(), "xml"); !errors.Is(err, storage.ErrUnknownFormat) {
		t.Errorf("NewFileStore(xml) error = %v", err)
	}
}

func TestReadFileDoesNotMoveUserFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.yaml")
	if err := os.WriteFile(path, []byte("name: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.ReadFile(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("ReadFile moved the input file: %v", err)
	}
}

func TestReadFileYAMLLiteral(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yml")
	doc := strings.Join([]string{
		"id: plan",
		"name: Plan",
		"start_date: 2024-01-01",
		"end_date: 2024-01-31",
		"events:",
		"  - id: 1",
		"    name: Kickoff",
		"    type: POINT",
		"    start_date: 2024-01-02",
		"  - id: 2",
		"    name: Build",
		"    type: duration",
		"    start_date: 2024-01-03",
		"    end_date: 2024-01-20",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	tl, err := storage.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(tl.Events) != 2 || tl.Events[1].Type != model.Duration || tl.Events[1].EndDate.String() != "2024-01-20" {
		t.Errorf("events = %+v", tl.Events)
	}
}

func TestActiveID(t *testing.T) {
	base := t.TempDir()
	id, err := storage.LoadActive(base)
	if err != nil || id != "" {
		t.Fatalf("LoadActive on empty = %q, %v", id, err)
	}
	if err := storage.SaveActive(base, "tl-7"); err != nil {
		t.Fatal(err)
	}
	if id, _ := storage.LoadActive(base); id != "tl-7" {
		t.Errorf("LoadActive = %q, want tl-7", id)
	}
	if err := storage.SaveActive(base, ""); err != nil {
		t.Fatal(err)
	}
	if id, _ := storage.LoadActive(base); id != "" {
		t.Errorf("LoadActive after clear = %q", id)
	}
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/timeline-manager/internal/model"
)

var (
	ErrNotFound      = errors.New("timeline not stored")
	ErrUnknownFormat = errors.New("unknown timeline file format")
)

// Repository persists timelines. Successful Load and Save leave the
// timeline without unsaved changes.
type Repository interface {
	List(ctx context.Context) ([]*model.Timeline, error)
	Load(ctx context.Context, id string) (*model.Timeline, error)
	Save(ctx context.Context, tl *model.Timeline) error
	Delete(ctx context.Context, id string) error
}

// BaseDir returns the root data directory (~/.tlm).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tlm"), nil
}

// Format is the encoding of a timeline file.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q (use .json, .yaml or .yml)", ErrUnknownFormat, path)
}

// Encode marshals tl in the given format.
func Encode(f Format, tl *model.Timeline) ([]byte, error) {
	switch f {
	case JSON:
		data, err := json.MarshalIndent(tl, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case YAML:
		return yaml.Marshal(tl)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode unmarshals and validates a timeline.
func Decode(f Format, data []byte) (*model.Timeline, error) {
	var tl model.Timeline
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, &tl)
	case YAML:
		err = yaml.Unmarshal(data, &tl)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, err
	}
	if tl.Events == nil {
		tl.Events = []model.Event{}
	}
	if err := model.ValidateTimeline(&tl); err != nil {
		return nil, err
	}
	return &tl, nil
}

// ReadFile loads a timeline from path, choosing the format by extension.
func ReadFile(path string) (*model.Timeline, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	tl, err := Decode(f, data)
	if err != nil {
		return nil, fmt.Errorf("invalid timeline in %s: %w", path, err)
	}
	return tl, nil
}

// WriteFile atomically writes tl to path, choosing the format by extension.
func WriteFile(path string, tl *model.Timeline) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Encode(f, tl)
	if err != nil {
		return fmt.Errorf("storage error marshalling %s: %w", f, err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}
	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// FileStore keeps one file per timeline in Dir, named <id>.json or <id>.yaml.
type FileStore struct {
	Dir string
	// Format is used for new files. Existing files keep their format.
	Format Format
}

// NewFileStore returns a store writing files of the given format into dir.
func NewFileStore(dir string, f Format) (*FileStore, error) {
	if f == "" {
		f = JSON
	}
	if f != JSON && f != YAML {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return &FileStore{Dir: dir, Format: f}, nil
}

// path returns the existing file for id, or the path a new file would get.
func (s *FileStore) path(id string) (string, bool) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		p := filepath.Join(s.Dir, id+ext)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return filepath.Join(s.Dir, id+"."+string(s.Format)), false
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid timeline id %q", id)
	}
	return nil
}

// List loads every stored timeline, ordered by id.
func (s *FileStore) List(ctx context.Context) ([]*model.Timeline, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage error listing %s: %w", s.Dir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatOf(e.Name()); err != nil {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(ids)

	timelines := make([]*model.Timeline, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tl, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, tl)
	}
	return timelines, nil
}

// Load reads the timeline with the given id. A file that cannot be parsed
// is moved aside to <file>.corrupt.
func (s *FileStore) Load(ctx context.Context, id string) (*model.Timeline, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	path, ok := s.path(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	f, _ := FormatOf(path)
	tl, err := Decode(f, data)
	if err != nil {
		// Back up corrupt file and abort.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, fmt.Errorf("corrupt timeline in %s (backed up to %s): %w", path, backupPath, err)
	}
	tl.ID = id
	tl.HasUnsavedChanges = false
	return tl, nil
}

// Save writes tl, replacing any previous version.
func (s *FileStore) Save(ctx context.Context, tl *model.Timeline) error {
	if err := validID(tl.ID); err != nil {
		return err
	}
	if err := model.ValidateTimeline(tl); err != nil {
		return err
	}
	path, _ := s.path(tl.ID)
	if err := WriteFile(path, tl); err != nil {
		return err
	}
	tl.HasUnsavedChanges = false
	return nil
}

// Delete removes the stored timeline.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	path, ok := s.path(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("storage error removing %s: %w", path, err)
	}
	return nil
}

// LoadActive returns the id of the timeline that was active when tlm last
// ran, or "" if none was recorded.
func LoadActive(base string) (string, error) {
	data, err := os.ReadFile(filepath.Join(base, "active"))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage error reading active timeline: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveActive records id as the active timeline. An empty id clears it.
func SaveActive(base, id string) error {
	path := filepath.Join(base, "active")
	if id == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("storage error clearing active timeline: %w", err)
		}
		return nil
	}
	return writeAtomic(path, []byte(id+"\n"))
}

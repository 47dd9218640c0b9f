package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Tiliavir/timeline-manager/internal/config"
	"github.com/Tiliavir/timeline-manager/internal/container"
	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/storage"
	"github.com/Tiliavir/timeline-manager/internal/storage/sqlite"
)

// session is the state one tlm invocation works on: the configuration, the
// repository and a container holding every stored timeline.
type session struct {
	cfg  config.Config
	base string
	repo storage.Repository
	c    *container.Container

	activeChanged bool
	close         func() error
}

// openRepository returns the repository selected by cfg.Storage.
func openRepository(cfg config.Config) (storage.Repository, func() error, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		st, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "file", "":
		st, err := storage.NewFileStore(cfg.Storage.Dir, storage.Format(cfg.Storage.Format))
		if err != nil {
			return nil, nil, err
		}
		return st, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q (use file or sqlite)", cfg.Storage.Backend)
}

// openSession loads the configuration and every stored timeline. The
// timeline recorded as active by the previous run becomes active again.
func openSession(ctx context.Context) (*session, error) {
	base, err := config.Dir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadDir(base)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.LayoutOptions()
	if err != nil {
		return nil, err
	}
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, base: base, repo: repo, c: container.New(opts), close: closeRepo}
	timelines, err := repo.List(ctx)
	if err != nil {
		_ = closeRepo()
		return nil, err
	}
	for _, tl := range timelines {
		if err := s.c.AddTimeline(tl); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping timeline %q: %v\n", tl.ID, err)
		}
	}

	activeID, err := storage.LoadActive(base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if activeID != "" {
		if err := s.c.SetActiveTimeline(activeID); err != nil {
			s.activeChanged = true
		}
	} else if s.c.Active() != nil {
		s.activeChanged = true
	}

	s.c.RegisterListener(container.ListenerFunc(func(_ []*model.Timeline, active *model.Timeline) {
		id := ""
		if active != nil {
			id = active.ID
		}
		if id != activeID {
			activeID = id
			s.activeChanged = true
		}
	}))
	return s, nil
}

// active returns the active timeline or fails with a hint.
func (s *session) active() (*model.Timeline, error) {
	tl := s.c.Active()
	if tl == nil {
		return nil, fmt.Errorf("%w: create one with: tlm timeline new <name> --start YYYY-MM-DD --end YYYY-MM-DD", container.ErrNoActiveTimeline)
	}
	return tl, nil
}

// save persists tl.
func (s *session) save(ctx context.Context, tl *model.Timeline) error {
	if err := s.repo.Save(ctx, tl); err != nil {
		return err
	}
	return s.c.MarkSaved(tl.ID)
}

// finish records the active timeline for the next run and releases the
// repository.
func (s *session) finish() error {
	var err error
	if s.activeChanged {
		id := ""
		if tl := s.c.Active(); tl != nil {
			id = tl.ID
		}
		err = storage.SaveActive(s.base, id)
	}
	if cerr := s.close(); err == nil {
		err = cerr
	}
	return err
}

// runSession opens a session, runs fn and finishes the session whatever fn
// returned.
func runSession(fn func(ctx context.Context, s *session) error) error {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return fail(2, err)
	}
	runErr := fn(ctx, s)
	if err := s.finish(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return runErr
}

// withSession is runSession for commands: an error returned through fail
// exits with its code once the session is finished.
func withSession(fn func(ctx context.Context, s *session) error) error {
	err := runSession(fn)
	if code := exitCode(err); code != 0 {
		die(code, err)
	}
	return err
}

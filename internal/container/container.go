// Package container owns the open timelines and is the only place where
// timelines and their events are mutated.
//
// Every mutation validates first and changes nothing on failure, marks the
// timeline as having unsaved changes, drops its cached layouts and notifies
// the registered listeners. A Container is not safe for concurrent use;
// callers that share one across goroutines must serialize access.
package container

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/timecalc"
)

var (
	ErrNoActiveTimeline  = errors.New("no active timeline")
	ErrTimelineNotFound  = errors.New("timeline not found")
	ErrDuplicateTimeline = errors.New("timeline already open")
	ErrEventNotFound     = errors.New("event not found")
)

// Listener is notified after any timeline is added, changed or removed.
type Listener interface {
	OnModelChanged(timelines []*model.Timeline, active *model.Timeline)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(timelines []*model.Timeline, active *model.Timeline)

func (f ListenerFunc) OnModelChanged(timelines []*model.Timeline, active *model.Timeline) {
	f(timelines, active)
}

type cacheKey struct {
	timelineID  string
	perspective layout.Perspective
}

// Container holds the open timelines and the active one.
type Container struct {
	timelines []*model.Timeline
	active    *model.Timeline
	listeners []Listener
	opts      layout.Options
	cache     map[cacheKey]layout.Layout

	newID func() string
}

// New returns an empty container computing layouts with opts.
func New(opts layout.Options) *Container {
	return &Container{
		opts:  opts,
		cache: make(map[cacheKey]layout.Layout),
		newID: func() string { return timecalc.GenerateID(time.Now()) },
	}
}

// Options returns the layout options the container was created with.
func (c *Container) Options() layout.Options { return c.opts }

// RegisterListener adds l to the listeners notified on every change.
func (c *Container) RegisterListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

func (c *Container) notify() {
	for _, l := range c.listeners {
		l.OnModelChanged(c.Timelines(), c.active)
	}
}

func (c *Container) invalidate(timelineID string) {
	for k := range c.cache {
		if k.timelineID == timelineID {
			delete(c.cache, k)
		}
	}
}

// touch records a mutation of tl.
func (c *Container) touch(tl *model.Timeline) {
	tl.HasUnsavedChanges = true
	c.invalidate(tl.ID)
	c.notify()
}

// Timelines returns the open timelines in the order they were added.
func (c *Container) Timelines() []*model.Timeline {
	return append([]*model.Timeline(nil), c.timelines...)
}

// Active returns the active timeline, or nil when none is open.
func (c *Container) Active() *model.Timeline { return c.active }

// Timeline returns the open timeline with the given id.
func (c *Container) Timeline(id string) (*model.Timeline, error) {
	for _, tl := range c.timelines {
		if tl.ID == id {
			return tl, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTimelineNotFound, id)
}

// AddTimeline opens tl and makes it active. A missing ID is generated.
// The unsaved flag is left as the caller set it, so timelines that were
// just loaded stay clean.
func (c *Container) AddTimeline(tl *model.Timeline) error {
	if err := model.ValidateTimeline(tl); err != nil {
		return err
	}
	if err := c.checkEventsInRange(tl, tl.StartDate, tl.EndDate); err != nil {
		return err
	}
	id := tl.ID
	if id == "" {
		id = c.newID()
	}
	if _, err := c.Timeline(id); err == nil {
		return fmt.Errorf("%w: %q", ErrDuplicateTimeline, id)
	}
	tl.ID = id
	c.timelines = append(c.timelines, tl)
	c.active = tl
	c.invalidate(tl.ID)
	c.notify()
	return nil
}

// NewTimeline creates an empty timeline, opens it and makes it active.
func (c *Container) NewTimeline(name string, start, end model.Date) (*model.Timeline, error) {
	tl := &model.Timeline{
		Name:              strings.TrimSpace(name),
		StartDate:         start,
		EndDate:           end,
		NextEventID:       1,
		Events:            []model.Event{},
		HasUnsavedChanges: true,
	}
	if err := c.AddTimeline(tl); err != nil {
		return nil, err
	}
	return tl, nil
}

// SetActiveTimeline makes the open timeline with the given id active.
func (c *Container) SetActiveTimeline(id string) error {
	tl, err := c.Timeline(id)
	if err != nil {
		return err
	}
	if c.active != tl {
		c.active = tl
		c.notify()
	}
	return nil
}

// DeleteTimeline closes the active timeline and returns it. The first
// remaining timeline, if any, becomes active.
func (c *Container) DeleteTimeline() (*model.Timeline, error) {
	if c.active == nil {
		return nil, ErrNoActiveTimeline
	}
	removed := c.active
	for i, tl := range c.timelines {
		if tl == removed {
			c.timelines = append(c.timelines[:i], c.timelines[i+1:]...)
			break
		}
	}
	c.active = nil
	if len(c.timelines) > 0 {
		c.active = c.timelines[0]
	}
	c.invalidate(removed.ID)
	c.notify()
	return removed, nil
}

// TimelineUpdate lists the timeline fields to change; nil fields are kept.
type TimelineUpdate struct {
	Name      *string     `json:"name,omitempty"`
	StartDate *model.Date `json:"start_date,omitempty"`
	EndDate   *model.Date `json:"end_date,omitempty"`
}

// UpdateTimeline renames or re-ranges the active timeline.
func (c *Container) UpdateTimeline(u TimelineUpdate) error {
	tl := c.active
	if tl == nil {
		return ErrNoActiveTimeline
	}
	next := *tl
	if u.Name != nil {
		next.Name = strings.TrimSpace(*u.Name)
	}
	if u.StartDate != nil {
		next.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		next.EndDate = *u.EndDate
	}
	if err := model.ValidateTimeline(&next); err != nil {
		return err
	}
	if err := c.checkEventsInRange(tl, next.StartDate, next.EndDate); err != nil {
		return err
	}
	tl.Name, tl.StartDate, tl.EndDate = next.Name, next.StartDate, next.EndDate
	c.touch(tl)
	return nil
}

// MarkSaved clears the unsaved flag of the timeline with the given id. It is
// called by the persistence flow after a successful save.
func (c *Container) MarkSaved(id string) error {
	tl, err := c.Timeline(id)
	if err != nil {
		return err
	}
	if tl.HasUnsavedChanges {
		tl.HasUnsavedChanges = false
		c.notify()
	}
	return nil
}

// Layout returns the layout of the active timeline under p. Layouts are
// cached until the timeline is next mutated; callers must not modify the
// returned slices.
func (c *Container) Layout(p layout.Perspective) (layout.Layout, error) {
	if c.active == nil {
		return layout.Layout{}, ErrNoActiveTimeline
	}
	return c.layoutOf(c.active, p)
}

// LayoutOf is Layout for any open timeline.
func (c *Container) LayoutOf(id string, p layout.Perspective) (layout.Layout, error) {
	tl, err := c.Timeline(id)
	if err != nil {
		return layout.Layout{}, err
	}
	return c.layoutOf(tl, p)
}

func (c *Container) layoutOf(tl *model.Timeline, p layout.Perspective) (layout.Layout, error) {
	key := cacheKey{timelineID: tl.ID, perspective: p}
	if l, ok := c.cache[key]; ok {
		return l, nil
	}
	l, err := layout.ComputeLayout(tl, p, c.opts)
	if err != nil {
		return layout.Layout{}, err
	}
	c.cache[key] = l
	return l, nil
}

func (c *Container) checkEventsInRange(tl *model.Timeline, start, end model.Date) error {
	if c.opts.OutOfRange != layout.Reject {
		return nil
	}
	bounds := &model.Timeline{StartDate: start, EndDate: end}
	for _, e := range tl.Events {
		if !model.InRange(bounds, e) {
			return fmt.Errorf("event %d %q outside %s..%s: %w", e.ID, e.Name, start, end, layout.ErrEventOutOfRange)
		}
	}
	return nil
}

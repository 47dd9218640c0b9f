package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRange reports a start date after an end date.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidEvent reports an event missing required fields.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrUnknownEventType reports an event type other than POINT or DURATION.
	ErrUnknownEventType = errors.New("unknown event type")
)

// EventType distinguishes instantaneous events from date ranges.
type EventType int

const (
	Point EventType = iota + 1
	Duration
)

// ParseEventType accepts "point" or "duration" in any case.
func ParseEventType(s string) (EventType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "POINT":
		return Point, nil
	case "DURATION":
		return Duration, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}

func (t EventType) String() string {
	switch t {
	case Point:
		return "POINT"
	case Duration:
		return "DURATION"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

func (t EventType) MarshalText() ([]byte, error) {
	if t != Point && t != Duration {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEventType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *EventType) UnmarshalText(b []byte) error {
	parsed, err := ParseEventType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Event is a single item drawn on a timeline.
type Event struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Type        EventType `json:"type" yaml:"type"`
	StartDate   Date      `json:"start_date" yaml:"start_date"`
	// EndDate is only meaningful for Duration events.
	EndDate    Date   `json:"end_date,omitzero" yaml:"end_date,omitempty"`
	Color      string `json:"color,omitempty" yaml:"color,omitempty"`
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`
}

// LastDate returns the last calendar day the event occupies.
func (e Event) LastDate() Date {
	if e.Type == Duration {
		return e.EndDate
	}
	return e.StartDate
}

// Timeline is a named date range holding an ordered list of events.
// The order of Events is insertion order and is significant for layout.
type Timeline struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	StartDate   Date    `json:"start_date" yaml:"start_date"`
	EndDate     Date    `json:"end_date" yaml:"end_date"`
	NextEventID int     `json:"next_event_id" yaml:"next_event_id"`
	Events      []Event `json:"events" yaml:"events"`

	// HasUnsavedChanges is set on every mutation and cleared by storage
	// after a successful load or save.
	HasUnsavedChanges bool `json:"-" yaml:"-"`
}

// ValidateTimeline checks the timeline's own range and every event in it.
func ValidateTimeline(tl *Timeline) error {
	if strings.TrimSpace(tl.Name) == "" {
		return fmt.Errorf("%w: timeline name is required", ErrInvalidEvent)
	}
	if tl.StartDate.IsZero() || tl.EndDate.IsZero() {
		return fmt.Errorf("%w: timeline %q needs both start and end date", ErrInvalidRange, tl.Name)
	}
	if tl.StartDate.After(tl.EndDate) {
		return fmt.Errorf("%w: timeline %q starts %s after it ends %s",
			ErrInvalidRange, tl.Name, tl.StartDate, tl.EndDate)
	}
	seen := make(map[int]bool, len(tl.Events))
	for _, e := range tl.Events {
		if err := ValidateEvent(e); err != nil {
			return err
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate event id %d", ErrInvalidEvent, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// ValidateEvent checks an event's own invariants. It does not look at the
// owning timeline's range.
func ValidateEvent(e Event) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	}
	if e.StartDate.IsZero() {
		return fmt.Errorf("%w: event %q has no start date", ErrInvalidEvent, e.Name)
	}
	switch e.Type {
	case Point:
	case Duration:
		if e.EndDate.IsZero() {
			return fmt.Errorf("%w: duration event %q has no end date", ErrInvalidRange, e.Name)
		}
		if e.EndDate.Before(e.StartDate) {
			return fmt.Errorf("%w: event %q ends %s before it starts %s",
				ErrInvalidRange, e.Name, e.EndDate, e.StartDate)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownEventType, int(e.Type))
	}
	return nil
}

// InRange reports whether every day of e lies within the timeline's range.
func InRange(tl *Timeline, e Event) bool {
	return !e.StartDate.Before(tl.StartDate) && !e.LastDate().After(tl.EndDate)
}

// FindEvent returns the index of the event with the given id, or -1.
func (tl *Timeline) FindEvent(id int) int {
	for i := range tl.Events {
		if tl.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// AllocateEventID returns the next unused event id. IDs are never reused,
// even after the event holding one is removed.
func (tl *Timeline) AllocateEventID() int {
	next := tl.NextEventID
	for _, e := range tl.Events {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	if next < 1 {
		next = 1
	}
	tl.NextEventID = next + 1
	return next
}

// Clone returns a deep copy of the timeline.
func (tl *Timeline) Clone() *Timeline {
	c := *tl
	c.Events = append([]Event(nil), tl.Events...)
	return &c
}

package container

import (
	"fmt"
	"strings"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
)

// EventUpdate lists event fields to set; nil fields are left unchanged.
type EventUpdate struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Type        *model.EventType `json:"type,omitempty"`
	StartDate   *model.Date      `json:"start_date,omitempty"`
	EndDate     *model.Date      `json:"end_date,omitempty"`
	Color       *string          `json:"color,omitempty"`
	ExternalID  *string          `json:"external_id,omitempty"`
}

func (u EventUpdate) apply(e *model.Event) {
	if u.Name != nil {
		e.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Type != nil {
		e.Type = *u.Type
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		e.EndDate = *u.EndDate
	}
	if u.Color != nil {
		e.Color = *u.Color
	}
	if u.ExternalID != nil {
		e.ExternalID = *u.ExternalID
	}
}

// Event returns the event with the given id from the active timeline.
func (c *Container) Event(id int) (model.Event, error) {
	tl := c.active
	if tl == nil {
		return model.Event{}, ErrNoActiveTimeline
	}
	i := tl.FindEvent(id)
	if i < 0 {
		return model.Event{}, fmt.Errorf("%w: %d in %q", ErrEventNotFound, id, tl.Name)
	}
	return tl.Events[i], nil
}

// AddEvent appends e to the active timeline and returns it with its newly
// allocated id. Any id set on e is ignored.
func (c *Container) AddEvent(e model.Event) (model.Event, error) {
	tl := c.active
	if tl == nil {
		return model.Event{}, ErrNoActiveTimeline
	}
	e.Name = strings.TrimSpace(e.Name)
	if err := c.validate(tl, e); err != nil {
		return model.Event{}, err
	}
	e.ID = tl.AllocateEventID()
	tl.Events = append(tl.Events, e)
	c.touch(tl)
	return e, nil
}

// UpdateEvent changes fields of an event in the active timeline. The event
// keeps its id and its position in the event order.
func (c *Container) UpdateEvent(id int, u EventUpdate) (model.Event, error) {
	tl := c.active
	if tl == nil {
		return model.Event{}, ErrNoActiveTimeline
	}
	i := tl.FindEvent(id)
	if i < 0 {
		return model.Event{}, fmt.Errorf("%w: %d in %q", ErrEventNotFound, id, tl.Name)
	}
	e := tl.Events[i]
	u.apply(&e)
	if err := c.validate(tl, e); err != nil {
		return model.Event{}, err
	}
	tl.Events[i] = e
	c.touch(tl)
	return e, nil
}

// RemoveEvent deletes an event from the active timeline and returns it.
// Its id is not handed out again.
func (c *Container) RemoveEvent(id int) (model.Event, error) {
	tl := c.active
	if tl == nil {
		return model.Event{}, ErrNoActiveTimeline
	}
	i := tl.FindEvent(id)
	if i < 0 {
		return model.Event{}, fmt.Errorf("%w: %d in %q", ErrEventNotFound, id, tl.Name)
	}
	removed := tl.Events[i]
	tl.Events = append(tl.Events[:i], tl.Events[i+1:]...)
	c.touch(tl)
	return removed, nil
}

func (c *Container) validate(tl *model.Timeline, e model.Event) error {
	if err := model.ValidateEvent(e); err != nil {
		return err
	}
	if c.opts.OutOfRange == layout.Reject && !model.InRange(tl, e) {
		return fmt.Errorf("event %q (%s..%s) outside %s..%s: %w",
			e.Name, e.StartDate, e.LastDate(), tl.StartDate, tl.EndDate, layout.ErrEventOutOfRange)
	}
	return nil
}

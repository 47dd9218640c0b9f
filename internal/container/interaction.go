package container

import (
	"errors"
	"fmt"

	"github.com/Tiliavir/timeline-manager/internal/model"
)

var (
	// ErrUnknownInteraction reports an interaction kind the container does not handle.
	ErrUnknownInteraction = errors.New("unknown interaction")
	// ErrInvalidInteraction reports an interaction missing its event id or fields.
	ErrInvalidInteraction = errors.New("invalid interaction")
)

// InteractionKind names what the user did in a presentation layer.
type InteractionKind string

const (
	Select InteractionKind = "select"
	Add    InteractionKind = "add"
	Edit   InteractionKind = "edit"
	Delete InteractionKind = "delete"
)

// Interaction is a serializable notification from a presentation layer.
// EventID is required for select, edit and delete; Fields carries the event
// data for add and the changed fields for edit.
type Interaction struct {
	Kind    InteractionKind `json:"kind"`
	EventID *int            `json:"event_id,omitempty"`
	Fields  *EventUpdate    `json:"fields,omitempty"`
}

// Result reports the outcome of an interaction.
type Result struct {
	Kind  InteractionKind `json:"kind"`
	Event model.Event     `json:"event"`
	// Changed is true when the interaction mutated the timeline and its
	// layout has to be fetched again.
	Changed bool `json:"changed"`
}

// Dispatch applies an interaction to the active timeline.
func (c *Container) Dispatch(in Interaction) (Result, error) {
	res := Result{Kind: in.Kind}
	needID := func() (int, error) {
		if in.EventID == nil {
			return 0, fmt.Errorf("%w: %s needs an event id", ErrInvalidInteraction, in.Kind)
		}
		return *in.EventID, nil
	}

	var err error
	switch in.Kind {
	case Select:
		var id int
		if id, err = needID(); err == nil {
			res.Event, err = c.Event(id)
		}
	case Add:
		if in.Fields == nil {
			return res, fmt.Errorf("%w: add needs event fields", ErrInvalidInteraction)
		}
		var e model.Event
		in.Fields.apply(&e)
		res.Event, err = c.AddEvent(e)
		res.Changed = err == nil
	case Edit:
		var id int
		if id, err = needID(); err == nil {
			var u EventUpdate
			if in.Fields != nil {
				u = *in.Fields
			}
			res.Event, err = c.UpdateEvent(id, u)
			res.Changed = err == nil
		}
	case Delete:
		var id int
		if id, err = needID(); err == nil {
			res.Event, err = c.RemoveEvent(id)
			res.Changed = err == nil
		}
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownInteraction, in.Kind)
	}
	return res, err
}

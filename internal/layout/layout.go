// Package layout places the events of a timeline on a horizontal day grid.
//
// ComputeLayout maps every event to a pixel extent for the chosen
// perspective and then packs the extents into rows so that events sharing a
// row never overlap. The result is a pure function of the timeline and the
// options; presentation code only draws it.
package layout

import (
	"fmt"

	"github.com/Tiliavir/timeline-manager/internal/model"
)

// Placement is where one event is drawn.
type Placement struct {
	EventID int `json:"event_id" yaml:"event_id"`
	Row     int `json:"row" yaml:"row"`
	Extent  `yaml:",inline"`
}

// Layout is everything a presentation layer needs to draw a timeline.
type Layout struct {
	TimelineID  string      `json:"timeline_id" yaml:"timeline_id"`
	Perspective Perspective `json:"perspective" yaml:"perspective"`
	UnitWidth   int         `json:"unit_width" yaml:"unit_width"`
	ColumnCount int         `json:"column_count" yaml:"column_count"`
	Columns     []Column    `json:"columns" yaml:"columns"`
	Bands       []Band      `json:"bands" yaml:"bands"`
	// Placements follow the timeline's event order.
	Placements []Placement `json:"placements" yaml:"placements"`
	RowCount   int         `json:"row_count" yaml:"row_count"`
}

// Width returns the total pixel width of the rendered columns.
func (l Layout) Width() int { return l.ColumnCount * l.UnitWidth }

// Placement returns the placement of the given event.
func (l Layout) Placement(eventID int) (Placement, bool) {
	for _, p := range l.Placements {
		if p.EventID == eventID {
			return p, true
		}
	}
	return Placement{}, false
}

// ComputeLayout maps and packs every event of tl under perspective p.
func ComputeLayout(tl *model.Timeline, p Perspective, opts Options) (Layout, error) {
	if tl == nil {
		return Layout{}, fmt.Errorf("compute layout: no timeline")
	}
	if tl.StartDate.IsZero() || tl.EndDate.IsZero() || tl.StartDate.After(tl.EndDate) {
		return Layout{}, fmt.Errorf("compute layout for %q: %w: %s..%s",
			tl.Name, model.ErrInvalidRange, tl.StartDate, tl.EndDate)
	}
	m, err := NewMapper(tl, p, opts)
	if err != nil {
		return Layout{}, fmt.Errorf("compute layout for %q: %w", tl.Name, err)
	}

	extents := make([]Extent, len(tl.Events))
	for i, e := range tl.Events {
		ext, err := m.Extent(e)
		if err != nil {
			return Layout{}, fmt.Errorf("compute layout for %q: %w", tl.Name, err)
		}
		extents[i] = ext
	}
	assigned := AssignRows(extents)

	placements := make([]Placement, len(tl.Events))
	for i, e := range tl.Events {
		placements[i] = Placement{EventID: e.ID, Row: assigned.Rows[i], Extent: extents[i]}
	}

	return Layout{
		TimelineID:  tl.ID,
		Perspective: p,
		UnitWidth:   m.UnitWidth(),
		ColumnCount: m.ColumnCount(),
		Columns:     m.Columns(),
		Bands:       m.Bands(),
		Placements:  placements,
		RowCount:    assigned.RowCount,
	}, nil
}

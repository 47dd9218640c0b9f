package layout

import (
	"fmt"
	"strings"

	"github.com/Tiliavir/timeline-manager/internal/model"
)

// Perspective is the zoom level: how many pixels one calendar day occupies.
type Perspective int

const (
	Day Perspective = iota + 1
	Week
	Month
	Year
)

// Perspectives lists every supported perspective, most zoomed in first.
var Perspectives = []Perspective{Day, Week, Month, Year}

// Default pixel width of one day per perspective. All widths are even so
// that the half-day offset of point events stays an integer and every
// extent scales exactly with the perspective.
var defaultUnitWidths = map[Perspective]int{
	Day:   120,
	Week:  80,
	Month: 50,
	Year:  6,
}

// ParsePerspective accepts "day", "week", "month" or "year" in any case.
func ParsePerspective(s string) (Perspective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day":
		return Day, nil
	case "week":
		return Week, nil
	case "month":
		return Month, nil
	case "year":
		return Year, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPerspective, s)
}

func (p Perspective) String() string {
	switch p {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return fmt.Sprintf("Perspective(%d)", int(p))
}

func (p Perspective) valid() bool { return p >= Day && p <= Year }

func (p Perspective) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPerspective, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Perspective) UnmarshalText(b []byte) error {
	parsed, err := ParsePerspective(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnitWidth returns the default pixel width of one day under p.
func UnitWidth(p Perspective) (int, error) {
	return Options{}.unitWidth(p)
}

// Policy decides what happens to events whose dates fall outside the
// owning timeline's range.
type Policy int

const (
	// Allow maps such events as they are; they render off-grid.
	Allow Policy = iota
	// Clamp moves the event's dates into the timeline's range.
	Clamp
	// Reject fails the layout (and container mutations) for such events.
	Reject
)

// ParsePolicy accepts "allow", "clamp" or "reject"; empty means allow.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return Allow, nil
	case "clamp":
		return Clamp, nil
	case "reject":
		return Reject, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

func (p Policy) String() string {
	switch p {
	case Allow:
		return "allow"
	case Clamp:
		return "clamp"
	case Reject:
		return "reject"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Options tune a layout computation. The zero value uses the default widths,
// no viewport, the allow policy and approximate Year bands.
type Options struct {
	// ViewportWidth is the visible width in pixels. When the timeline is
	// narrower, trailing columns are added until the viewport is filled.
	ViewportWidth int
	// UnitWidths overrides the default day width of some perspectives.
	UnitWidths map[Perspective]int
	// OutOfRange is the policy for events outside the timeline's range.
	OutOfRange Policy
	// ExactYearBands sizes Year bands by the real number of days in each
	// month instead of the 30/31 day approximation.
	ExactYearBands bool
}

func (o Options) unitWidth(p Perspective) (int, error) {
	if !p.valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownPerspective, int(p))
	}
	if w, ok := o.UnitWidths[p]; ok {
		if w <= 0 || w%2 != 0 {
			return 0, fmt.Errorf("%w: %s width %d", ErrInvalidUnitWidth, p, w)
		}
		return w, nil
	}
	return defaultUnitWidths[p], nil
}

// Column is one rendered day.
type Column struct {
	Offset int        `json:"offset" yaml:"offset"`
	Width  int        `json:"width" yaml:"width"`
	Date   model.Date `json:"date" yaml:"date"`
	// Label is the day of month shown in the column header.
	Label string `json:"label" yaml:"label"`
}

// Band is a labelled month header spanning consecutive columns.
type Band struct {
	Offset int        `json:"offset" yaml:"offset"`
	Width  int        `json:"width" yaml:"width"`
	Label  string     `json:"label" yaml:"label"`
	Start  model.Date `json:"start" yaml:"start"`
}

// Mapper converts the dates of one timeline into pixel extents under one
// perspective. It holds no state beyond its inputs.
type Mapper struct {
	timeline    *model.Timeline
	perspective Perspective
	unit        int
	opts        Options
}

// NewMapper validates the perspective and returns a mapper for tl.
func NewMapper(tl *model.Timeline, p Perspective, opts Options) (*Mapper, error) {
	unit, err := opts.unitWidth(p)
	if err != nil {
		return nil, err
	}
	return &Mapper{timeline: tl, perspective: p, unit: unit, opts: opts}, nil
}

// UnitWidth is the pixel width of one day.
func (m *Mapper) UnitWidth() int { return m.unit }

// Extent returns where e is drawn. Duration events cover every day from
// start to end inclusive. Point events are one day wide and centred on the
// boundary after their day, one column right of the raw day index.
func (m *Mapper) Extent(e model.Event) (Extent, error) {
	e, err := m.applyPolicy(e)
	if err != nil {
		return Extent{}, err
	}
	w := m.unit
	start := m.timeline.StartDate.DaysUntil(e.StartDate)
	switch e.Type {
	case model.Duration:
		return Extent{
			Offset: start * w,
			Length: (e.StartDate.DaysUntil(e.EndDate) + 1) * w,
		}, nil
	case model.Point:
		return Extent{
			Offset: (start+1)*w - w/2,
			Length: w,
		}, nil
	}
	return Extent{}, fmt.Errorf("event %d: %w: %d", e.ID, model.ErrUnknownEventType, int(e.Type))
}

func (m *Mapper) applyPolicy(e model.Event) (model.Event, error) {
	tl := m.timeline
	if model.InRange(tl, e) {
		return e, nil
	}
	switch m.opts.OutOfRange {
	case Reject:
		return e, fmt.Errorf("event %d %q (%s..%s) outside %s..%s: %w",
			e.ID, e.Name, e.StartDate, e.LastDate(), tl.StartDate, tl.EndDate, ErrEventOutOfRange)
	case Clamp:
		e.StartDate = clampDate(e.StartDate, tl.StartDate, tl.EndDate)
		if e.Type == model.Duration {
			e.EndDate = clampDate(e.EndDate, tl.StartDate, tl.EndDate)
		}
	}
	return e, nil
}

func clampDate(d, lo, hi model.Date) model.Date {
	if d.Before(lo) {
		return lo
	}
	if d.After(hi) {
		return hi
	}
	return d
}

// ColumnCount returns the number of day columns to render: the timeline's
// inclusive day span, widened to fill the viewport when that is larger.
func (m *Mapper) ColumnCount() int {
	n := m.timeline.StartDate.DaysUntil(m.timeline.EndDate) + 1
	if vp := m.opts.ViewportWidth; vp > n*m.unit {
		n = (vp + m.unit - 1) / m.unit
	}
	return n
}

// Columns returns one entry per rendered day, including synthesized
// trailing days.
func (m *Mapper) Columns() []Column {
	n := m.ColumnCount()
	cols := make([]Column, n)
	for i := range cols {
		d := m.timeline.StartDate.AddDays(i)
		cols[i] = Column{
			Offset: i * m.unit,
			Width:  m.unit,
			Date:   d,
			Label:  fmt.Sprint(d.Day()),
		}
	}
	return cols
}

// Bands returns the month header segments over the rendered columns. A band
// starts on the first of a month or on the first rendered day.
//
// In the Year perspective a band starting on the first is 31 days wide when
// its zero-based month index is divisible by four and 30 days otherwise, and
// a band starting mid-month is (31 - day of month) days wide. This matches
// the historical header layout and is not calendar arithmetic; set
// Options.ExactYearBands for real month lengths.
func (m *Mapper) Bands() []Band {
	n := m.ColumnCount()
	var bands []Band
	for i := 0; i < n; i++ {
		d := m.timeline.StartDate.AddDays(i)
		if i != 0 && d.Day() != 1 {
			continue
		}
		days := 1
		for j := i + 1; j < n && m.timeline.StartDate.AddDays(j).Day() != 1; j++ {
			days++
		}
		bands = append(bands, Band{
			Offset: i * m.unit,
			Width:  m.bandWidth(d, days),
			Label:  m.bandLabel(d),
			Start:  d,
		})
	}
	return bands
}

func (m *Mapper) bandWidth(start model.Date, days int) int {
	if m.perspective != Year || m.opts.ExactYearBands {
		return days * m.unit
	}
	if start.Day() != 1 {
		return (31 - start.Day()) * m.unit
	}
	if (int(start.Month())-1)%4 == 0 {
		return 31 * m.unit
	}
	return 30 * m.unit
}

func (m *Mapper) bandLabel(d model.Date) string {
	if m.perspective == Year {
		return d.Time().Format("Jan 2006")
	}
	return d.Time().Format("January 2006")
}

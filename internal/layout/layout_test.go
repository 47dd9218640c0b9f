package layout_test

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
)

func TestComputeLayoutScenario(t *testing.T) {
	tl := newTimeline("2024-01-01", "2024-01-10",
		duration(1, "2024-01-02", "2024-01-04"), // A
		duration(2, "2024-01-03", "2024-01-05"), // B
		point(3, "2024-01-06"),                  // C
	)
	l, err := layout.ComputeLayout(tl, layout.Month, layout.Options{})
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	w := l.UnitWidth

	want := []layout.Placement{
		{EventID: 1, Row: 0, Extent: layout.Extent{Offset: 1 * w, Length: 3 * w}},
		{EventID: 2, Row: 1, Extent: layout.Extent{Offset: 2 * w, Length: 3 * w}},
		{EventID: 3, Row: 0, Extent: layout.Extent{Offset: 6*w - w/2, Length: w}},
	}
	if !reflect.DeepEqual(l.Placements, want) {
		t.Errorf("Placements = %+v, want %+v", l.Placements, want)
	}
	if 2*l.Placements[2].Offset != 11*w {
		t.Errorf("point offset = %d, want 5.5 * %d", l.Placements[2].Offset, w)
	}
	if l.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", l.RowCount)
	}
	if l.ColumnCount != 10 || l.Width() != 10*w {
		t.Errorf("ColumnCount = %d, Width = %d", l.ColumnCount, l.Width())
	}
}

func TestComputeLayoutEmpty(t *testing.T) {
	tl := newTimeline("2024-01-01", "2024-01-10")
	l, err := layout.ComputeLayout(tl, layout.Month, layout.Options{})
	if err != nil {
		t.Fatalf("ComputeLayout: %v", err)
	}
	if l.RowCount != 0 || len(l.Placements) != 0 {
		t.Errorf("RowCount = %d, placements = %d, want 0", l.RowCount, len(l.Placements))
	}
	if l.ColumnCount != 10 || len(l.Columns) != 10 {
		t.Errorf("ColumnCount = %d, len(Columns) = %d, want 10", l.ColumnCount, len(l.Columns))
	}
	if len(l.Bands) != 1 || l.Bands[0].Width != 10*l.UnitWidth || l.Bands[0].Label != "January 2024" {
		t.Errorf("Bands = %+v", l.Bands)
	}
}

func TestComputeLayoutErrors(t *testing.T) {
	tl := newTimeline("2024-01-01", "2024-01-10", point(1, "2024-01-02"))
	if _, err := layout.ComputeLayout(tl, layout.Perspective(0), layout.Options{}); !errors.Is(err, layout.ErrUnknownPerspective) {
		t.Errorf("zero perspective error = %v, want ErrUnknownPerspective", err)
	}

	backwards := newTimeline("2024-01-10", "2024-01-01")
	if _, err := layout.ComputeLayout(backwards, layout.Month, layout.Options{}); !errors.Is(err, model.ErrInvalidRange) {
		t.Errorf("backwards timeline error = %v, want ErrInvalidRange", err)
	}

	outside := newTimeline("2024-01-01", "2024-01-10", point(1, "2024-02-02"))
	if _, err := layout.ComputeLayout(outside, layout.Month, layout.Options{OutOfRange: layout.Reject}); !errors.Is(err, layout.ErrEventOutOfRange) {
		t.Errorf("reject policy error = %v, want ErrEventOutOfRange", err)
	}
}

func TestComputeLayoutFullOverlap(t *testing.T) {
	var events []model.Event
	for i := 1; i <= 12; i++ {
		events = append(events, duration(i, "2024-01-03", "2024-01-07"))
	}
	tl := newTimeline("2024-01-01", "2024-01-31", events...)
	l, err := layout.ComputeLayout(tl, layout.Week, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if l.RowCount != len(events) {
		t.Errorf("RowCount = %d, want %d", l.RowCount, len(events))
	}
	for i, p := range l.Placements {
		if p.Row != i {
			t.Errorf("event %d row = %d, want %d", p.EventID, p.Row, i)
		}
	}
}

func TestComputeLayoutDisjoint(t *testing.T) {
	tl := newTimeline("2024-01-01", "2024-01-31",
		duration(1, "2024-01-01", "2024-01-03"),
		duration(2, "2024-01-05", "2024-01-06"),
		point(3, "2024-01-09"),
		duration(4, "2024-01-12", "2024-01-20"),
		point(5, "2024-01-25"),
	)
	l, err := layout.ComputeLayout(tl, layout.Day, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if l.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", l.RowCount)
	}
}

func randomTimeline(rng *rand.Rand, n int) *model.Timeline {
	tl := newTimeline("2024-01-01", "2024-12-31")
	for i := 1; i <= n; i++ {
		start := tl.StartDate.AddDays(rng.IntN(366))
		if rng.IntN(3) == 0 {
			tl.Events = append(tl.Events, model.Event{ID: i, Name: "p", Type: model.Point, StartDate: start})
			continue
		}
		end := start.AddDays(rng.IntN(40))
		if end.After(tl.EndDate) {
			end = tl.EndDate
		}
		tl.Events = append(tl.Events, model.Event{ID: i, Name: "d", Type: model.Duration, StartDate: start, EndDate: end})
	}
	return tl
}

func TestComputeLayoutNoOverlapInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 1))
	for round := 0; round < 50; round++ {
		tl := randomTimeline(rng, rng.IntN(80))
		for _, p := range layout.Perspectives {
			l, err := layout.ComputeLayout(tl, p, layout.Options{})
			if err != nil {
				t.Fatalf("round %d %s: %v", round, p, err)
			}
			for i := range l.Placements {
				for j := i + 1; j < len(l.Placements); j++ {
					a, b := l.Placements[i], l.Placements[j]
					if a.Row == b.Row && layout.Overlaps(a.Extent, b.Extent) {
						t.Fatalf("round %d %s: events %d and %d overlap in row %d", round, p, a.EventID, b.EventID, a.Row)
					}
				}
			}
		}
	}
}

func TestComputeLayoutPerspectiveIndependence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 30; round++ {
		tl := randomTimeline(rng, 5+rng.IntN(40))
		base, err := layout.ComputeLayout(tl, layout.Month, layout.Options{})
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range layout.Perspectives {
			l, err := layout.ComputeLayout(tl, p, layout.Options{})
			if err != nil {
				t.Fatal(err)
			}
			if l.RowCount != base.RowCount {
				t.Fatalf("round %d: %s uses %d rows, month uses %d", round, p, l.RowCount, base.RowCount)
			}
			for i, pl := range l.Placements {
				b := base.Placements[i]
				if pl.Row != b.Row {
					t.Fatalf("round %d: event %d row %d under %s, %d under month", round, pl.EventID, pl.Row, p, b.Row)
				}
				// Extents scale with the unit width.
				if pl.Offset*base.UnitWidth != b.Offset*l.UnitWidth || pl.Length*base.UnitWidth != b.Length*l.UnitWidth {
					t.Fatalf("round %d: event %d extent %+v under %s not proportional to %+v", round, pl.EventID, pl.Extent, p, b.Extent)
				}
			}
		}
	}
}

func TestComputeLayoutIdempotent(t *testing.T) {
	tl := randomTimeline(rand.New(rand.NewPCG(3, 3)), 40)
	opts := layout.Options{ViewportWidth: 5000}
	first, err := layout.ComputeLayout(tl, layout.Year, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := layout.ComputeLayout(tl, layout.Year, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("ComputeLayout returned different layouts for the same input")
	}
}

func TestLayoutPlacementLookup(t *testing.T) {
	tl := newTimeline("2024-01-01", "2024-01-10", point(7, "2024-01-02"))
	l, _ := layout.ComputeLayout(tl, layout.Month, layout.Options{})
	if _, ok := l.Placement(7); !ok {
		t.Error("Placement(7) not found")
	}
	if _, ok := l.Placement(8); ok {
		t.Error("Placement(8) found")
	}
}

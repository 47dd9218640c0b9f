package render_test

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/render"
)

// scenario is the ten-day timeline with two overlapping durations and a point.
func scenario(t *testing.T) (*model.Timeline, layout.Layout) {
	t.Helper()
	tl := &model.Timeline{
		ID:        "s",
		Name:      "R&D <plan>",
		StartDate: model.MustDate("2024-01-01"),
		EndDate:   model.MustDate("2024-01-10"),
		Events: []model.Event{
			{ID: 1, Name: "A", Type: model.Duration, StartDate: model.MustDate("2024-01-02"), EndDate: model.MustDate("2024-01-04")},
			{ID: 2, Name: "B", Type: model.Duration, StartDate: model.MustDate("2024-01-03"), EndDate: model.MustDate("2024-01-05"), Color: "#ff0000"},
			{ID: 3, Name: "C", Type: model.Point, StartDate: model.MustDate("2024-01-06"), Description: "ship it"},
		},
	}
	l, err := layout.ComputeLayout(tl, layout.Month, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return tl, l
}

func TestText(t *testing.T) {
	tl, l := scenario(t)
	var buf bytes.Buffer
	if err := render.Text(&buf, tl, l); err != nil {
		t.Fatalf("Text: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1+2+2+3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "|January 2024") {
		t.Errorf("band line = %q", lines[1])
	}
	if lines[2] != "  1  2  3  4  5  6  7  8  9 10" {
		t.Errorf("day line = %q", lines[2])
	}
	if want := "...=========...ooo............"; lines[3] != want {
		t.Errorf("row 0 = %q, want %q", lines[3], want)
	}
	if want := "......=========..............."; lines[4] != want {
		t.Errorf("row 1 = %q, want %q", lines[4], want)
	}
	if !strings.Contains(buf.String(), "row 1  #2 B  2024-01-03..2024-01-05") {
		t.Errorf("legend missing B:\n%s", buf.String())
	}
}

func TestTextClipsOffGridEvents(t *testing.T) {
	tl := &model.Timeline{
		Name:      "Clip",
		StartDate: model.MustDate("2024-01-05"),
		EndDate:   model.MustDate("2024-01-07"),
		Events: []model.Event{
			{ID: 1, Name: "Early", Type: model.Duration, StartDate: model.MustDate("2024-01-01"), EndDate: model.MustDate("2024-01-05")},
			{ID: 2, Name: "Before", Type: model.Point, StartDate: model.MustDate("2024-01-04")},
		},
	}
	l, err := layout.ComputeLayout(tl, layout.Day, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := render.Text(&buf, tl, l); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if lines[3] != "===......" {
		t.Errorf("row 0 = %q", lines[3])
	}
	if lines[4] != "........." {
		t.Errorf("row 1 = %q, want the off-grid point dropped", lines[4])
	}
}

func TestSVG(t *testing.T) {
	tl, l := scenario(t)
	var buf bytes.Buffer
	if err := render.SVG(&buf, tl, l, render.SVGOptions{}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()

	// Well-formed XML, with the timeline name escaped.
	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("invalid XML: %v\n%s", err, out)
		}
	}
	for _, want := range []string{
		`<svg width="500" height="104"`,
		`<title>R&amp;D &lt;plan&gt;</title>`,
		`<rect x="50" y="51" width="150" height="22" rx="3" fill="#4a90d9"`,
		`<rect x="100" y="79" width="150" height="22" rx="3" fill="#ff0000"`,
		`<circle cx="300" cy="62"`,
		`<title>ship it</title>`,
		`class="band-text">January 2024</text>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
}

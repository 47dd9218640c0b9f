// Package render draws a computed layout for humans: a fixed-width text
// grid for the terminal and an SVG document.
package render

import (
	"strings"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
)

// byRow groups placements by row, keeping layout order within a row.
func byRow(l layout.Layout) [][]layout.Placement {
	rows := make([][]layout.Placement, l.RowCount)
	for _, p := range l.Placements {
		rows[p.Row] = append(rows[p.Row], p)
	}
	return rows
}

func eventsByID(tl *model.Timeline) map[int]model.Event {
	m := make(map[int]model.Event, len(tl.Events))
	for _, e := range tl.Events {
		m[e.ID] = e
	}
	return m
}

// escapeXML escapes special XML characters.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

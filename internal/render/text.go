package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
)

// cell is the number of characters one day column takes in the text grid.
const cell = 3

// Text writes l as a character grid: a month band line, a day-of-month
// line, one line per row and a legend. Events off the grid are cut at its
// edges but still listed in the legend.
func Text(w io.Writer, tl *model.Timeline, l layout.Layout) error {
	width := l.ColumnCount * cell
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s..%s  (%s, %d rows)\n", tl.Name, tl.StartDate, tl.EndDate, l.Perspective, l.RowCount)

	bands := []byte(strings.Repeat(" ", width))
	for _, band := range l.Bands {
		start := band.Offset / l.UnitWidth * cell
		if start >= width {
			continue
		}
		end := min(start+band.Width/l.UnitWidth*cell, width)
		label := "|" + band.Label
		copy(bands[start:end], label)
	}
	b.WriteString(strings.TrimRight(string(bands), " "))
	b.WriteByte('\n')

	for _, c := range l.Columns {
		fmt.Fprintf(&b, "%*s", cell, c.Label)
	}
	b.WriteByte('\n')

	events := eventsByID(tl)
	rows := byRow(l)
	for _, row := range rows {
		line := []byte(strings.Repeat(".", width))
		for _, p := range row {
			first, last := floorDiv(p.Offset, l.UnitWidth), floorDiv(p.End()-1, l.UnitWidth)
			fill := byte('=')
			if events[p.EventID].Type == model.Point {
				last = first
				fill = 'o'
			}
			for col := max(first, 0); col <= last && col < l.ColumnCount; col++ {
				for i := 0; i < cell; i++ {
					line[col*cell+i] = fill
				}
			}
		}
		b.Write(line)
		b.WriteByte('\n')
	}

	for i, row := range rows {
		for _, p := range row {
			e := events[p.EventID]
			when := e.StartDate.String()
			if e.Type == model.Duration {
				when += ".." + e.EndDate.String()
			}
			fmt.Fprintf(&b, "  row %d  #%d %s  %s\n", i, e.ID, e.Name, when)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

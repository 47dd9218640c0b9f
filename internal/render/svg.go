package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
)

// SVGOptions controls the look of an SVG rendering. Zero fields take the
// defaults below.
type SVGOptions struct {
	RowHeight  int
	FontFamily string
	FontSize   int
	Background string
	// EventColor is used for events without their own color.
	EventColor string
	GridColor  string
	TextColor  string
}

func (o SVGOptions) withDefaults() SVGOptions {
	if o.RowHeight <= 0 {
		o.RowHeight = 28
	}
	if o.FontFamily == "" {
		o.FontFamily = "Arial, sans-serif"
	}
	if o.FontSize <= 0 {
		o.FontSize = 12
	}
	if o.Background == "" {
		o.Background = "#ffffff"
	}
	if o.EventColor == "" {
		o.EventColor = "#4a90d9"
	}
	if o.GridColor == "" {
		o.GridColor = "#dddddd"
	}
	if o.TextColor == "" {
		o.TextColor = "#333333"
	}
	return o
}

// SVG writes l as a standalone SVG document: month bands and day labels
// on top, then one horizontal lane per row.
func SVG(w io.Writer, tl *model.Timeline, l layout.Layout, opts SVGOptions) error {
	opts = opts.withDefaults()
	bandH := opts.FontSize * 2
	headerH := bandH * 2
	width := l.Width()
	height := headerH + max(l.RowCount, 1)*opts.RowHeight

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<title>%s</title>
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<style>
.band-text { font-family: %s; font-size: %dpx; font-weight: bold; fill: %s; }
.day-text { font-family: %s; font-size: %dpx; fill: %s; }
.event-text { font-family: %s; font-size: %dpx; fill: %s; }
</style>
</defs>
`, width, height, escapeXML(tl.Name), opts.Background,
		opts.FontFamily, opts.FontSize, opts.TextColor,
		opts.FontFamily, opts.FontSize-2, opts.TextColor,
		opts.FontFamily, opts.FontSize-1, opts.TextColor))

	for _, b := range l.Bands {
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="0" width="%d" height="%d" fill="none" stroke="%s"/>`+"\n",
			b.Offset, b.Width, bandH, opts.GridColor))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="band-text">%s</text>`+"\n",
			b.Offset+4, bandH-opts.FontSize/2, escapeXML(b.Label)))
	}

	for _, c := range l.Columns {
		svg.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n",
			c.Offset, bandH, c.Offset, height, opts.GridColor))
		// Day labels only where they fit.
		if c.Width >= opts.FontSize {
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" class="day-text">%s</text>`+"\n",
				c.Offset+c.Width/2, headerH-opts.FontSize/2, escapeXML(c.Label)))
		}
	}

	events := eventsByID(tl)
	for _, p := range l.Placements {
		e := events[p.EventID]
		color := e.Color
		if color == "" {
			color = opts.EventColor
		}
		top := headerH + p.Row*opts.RowHeight
		mid := top + opts.RowHeight/2

		svg.WriteString(fmt.Sprintf(`<g id="event-%d">`, e.ID))
		if e.Description != "" {
			svg.WriteString(fmt.Sprintf(`<title>%s</title>`, escapeXML(e.Description)))
		}
		switch e.Type {
		case model.Point:
			cx := p.Offset + p.Length/2
			r := min(p.Length, opts.RowHeight) / 4
			svg.WriteString(fmt.Sprintf(`<circle cx="%d" cy="%d" r="%d" fill="%s"/>`, cx, mid, max(r, 2), color))
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="event-text">%s</text>`,
				cx+max(r, 2)+3, mid+opts.FontSize/3, escapeXML(e.Name)))
		default:
			svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" rx="3" fill="%s" fill-opacity="0.8"/>`,
				p.Offset, top+3, p.Length, opts.RowHeight-6, color))
			svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="event-text">%s</text>`,
				p.Offset+4, mid+opts.FontSize/3, escapeXML(e.Name)))
		}
		svg.WriteString("</g>\n")
	}

	svg.WriteString("</svg>\n")
	_, err := io.WriteString(w, svg.String())
	return err
}

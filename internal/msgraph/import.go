package msgraph

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Tiliavir/timeline-manager/internal/container"
	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/timecalc"
)

// ImportResult holds counters for an import run.
type ImportResult struct {
	Imported int
	Skipped  int
	Updated  int
	Errors   int
}

// ImportOptions configures an import run.
type ImportOptions struct {
	// Timezone is the IANA zone Graph was asked to report times in.
	Timezone string
	DryRun   bool
	// Color is set on newly imported events.
	Color string
	// Out receives one progress line per event; nil means stdout.
	Out io.Writer
}

// parseGraphTime parses a Graph API dateTime string in the given timezone.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set. Times carrying an offset are
// converted to tz so that their calendar date is the one seen in tz.
func parseGraphTime(dt, tz string) (time.Time, error) {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	// Try RFC3339 first (includes timezone offset).
	if t, err := time.Parse(time.RFC3339, dt); err == nil {
		return t.In(loc), nil
	}
	// Try RFC3339Nano.
	if t, err := time.Parse(time.RFC3339Nano, dt); err == nil {
		return t.In(loc), nil
	}

	// Graph returns fractional seconds: "2026-02-27T09:00:00.0000000"
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

// buildDescription combines bodyPreview and location into a description.
func buildDescription(event CalendarEvent) string {
	parts := []string{}
	if event.BodyPreview != "" {
		parts = append(parts, event.BodyPreview)
	}
	if event.Location.DisplayName != "" {
		parts = append(parts, event.Location.DisplayName)
	}
	return strings.Join(parts, "\n")
}

// shouldSkip returns true if the event should not be imported.
func shouldSkip(event CalendarEvent) bool {
	if event.IsCancelled {
		return true
	}
	if event.Sensitivity == "private" {
		return true
	}
	if event.ShowAs == "free" {
		return true
	}
	if event.Start.DateTime == "" || event.End.DateTime == "" {
		return true
	}
	return false
}

// MapEvent converts a Graph CalendarEvent into a timeline event. All-day and
// multi-day items become duration events; a timed item within one day
// becomes a point event. Graph end times are exclusive.
func MapEvent(event CalendarEvent, timezone string) (model.Event, error) {
	startTime, err := parseGraphTime(event.Start.DateTime, timezone)
	if err != nil {
		return model.Event{}, fmt.Errorf("parsing start time: %w", err)
	}
	endTime, err := parseGraphTime(event.End.DateTime, timezone)
	if err != nil {
		return model.Event{}, fmt.Errorf("parsing end time: %w", err)
	}
	if endTime.Before(startTime) {
		return model.Event{}, fmt.Errorf("event ends %s before it starts %s: %w",
			endTime.Format(time.RFC3339), startTime.Format(time.RFC3339), model.ErrInvalidRange)
	}

	// The last day is the one holding the final instant before the end.
	last := endTime
	if endTime.After(startTime) {
		last = endTime.Add(-time.Nanosecond)
	}

	name := strings.TrimSpace(event.Subject)
	if name == "" {
		name = "(no subject)"
	}
	e := model.Event{
		Name:        name,
		Description: buildDescription(event),
		StartDate:   model.DateOf(startTime),
		ExternalID:  event.ID,
	}
	if event.IsAllDay || !timecalc.SameDay(startTime, last) {
		e.Type = model.Duration
		e.EndDate = model.DateOf(last)
	} else {
		e.Type = model.Point
	}
	return e, nil
}

// findByExternalID returns the index of the event imported from externalID, or -1.
func findByExternalID(events []model.Event, externalID string) int {
	for i := range events {
		if events[i].ExternalID == externalID {
			return i
		}
	}
	return -1
}

func sameContent(a, b model.Event) bool {
	return a.Name == b.Name && a.Description == b.Description && a.Type == b.Type &&
		a.StartDate.Equal(b.StartDate) && a.LastDate().Equal(b.LastDate())
}

func describe(e model.Event) string {
	if e.Type == model.Duration {
		days := e.StartDate.DaysUntil(e.EndDate) + 1
		return fmt.Sprintf("%s (%s, %s)", e.Name, e.StartDate, timecalc.FormatDays(days))
	}
	return fmt.Sprintf("%s (%s)", e.Name, e.StartDate)
}

// ImportEvents adds Graph events to the active timeline of c. Events already
// imported (matched by external id) are skipped when unchanged and updated
// in place otherwise, so running an import twice changes nothing. Events
// that were entered by hand are never touched.
func ImportEvents(c *container.Container, events []CalendarEvent, opts ImportOptions) (ImportResult, error) {
	var result ImportResult
	tl := c.Active()
	if tl == nil {
		return result, container.ErrNoActiveTimeline
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	for _, event := range events {
		if shouldSkip(event) {
			continue
		}

		mapped, err := MapEvent(event, opts.Timezone)
		if err != nil {
			fmt.Fprintf(out, "  ! Error mapping event %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}

		if i := findByExternalID(tl.Events, event.ID); i >= 0 {
			found := tl.Events[i]
			if sameContent(found, mapped) {
				fmt.Fprintf(out, "  – Skipped:  %s (already exists)\n", mapped.Name)
				result.Skipped++
				continue
			}
			if !opts.DryRun {
				update := container.EventUpdate{
					Name:        &mapped.Name,
					Description: &mapped.Description,
					Type:        &mapped.Type,
					StartDate:   &mapped.StartDate,
					EndDate:     &mapped.EndDate,
				}
				if _, err := c.UpdateEvent(found.ID, update); err != nil {
					fmt.Fprintf(out, "  ! Error updating %q: %v\n", mapped.Name, err)
					result.Errors++
					continue
				}
			}
			fmt.Fprintf(out, "  ↑ Updated:  %s\n", describe(mapped))
			result.Updated++
			continue
		}

		// New event.
		mapped.Color = opts.Color
		if opts.DryRun {
			err = model.ValidateEvent(mapped)
		} else {
			_, err = c.AddEvent(mapped)
		}
		if err != nil {
			fmt.Fprintf(out, "  ! Error saving %q: %v\n", mapped.Name, err)
			result.Errors++
			continue
		}
		fmt.Fprintf(out, "  ✓ Imported: %s\n", describe(mapped))
		result.Imported++
	}

	return result, nil
}

// Window returns the calendar range [from, to) covering every day of tl in loc.
func Window(tl *model.Timeline, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(tl.StartDate.Year(), tl.StartDate.Month(), tl.StartDate.Day(), 0, 0, 0, 0, loc)
	end := tl.EndDate.AddDays(1)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	return from, to
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeline-manager/internal/container"
	"github.com/Tiliavir/timeline-manager/internal/model"
)

var (
	eventName        string
	eventType        string
	eventStart       string
	eventEnd         string
	eventDescription string
	eventColor       string
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Add, edit and remove events of the active timeline",
}

var eventAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an event; with --end it spans days, without it is a point",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventAdd,
}

var eventEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an event",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventEdit,
}

var eventRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove an event",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventRemove,
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the events of the active timeline",
	Args:  cobra.NoArgs,
	RunE:  runEventList,
}

func init() {
	for _, c := range []*cobra.Command{eventAddCmd, eventEditCmd} {
		c.Flags().StringVar(&eventType, "type", "", "point or duration (default: duration when --end is set)")
		c.Flags().StringVar(&eventStart, "start", "", "First day (YYYY-MM-DD)")
		c.Flags().StringVar(&eventEnd, "end", "", "Last day of a duration (YYYY-MM-DD)")
		c.Flags().StringVar(&eventDescription, "description", "", "Free text")
		c.Flags().StringVar(&eventColor, "color", "", "Display color, e.g. #4a90d9")
	}
	_ = eventAddCmd.MarkFlagRequired("start")
	eventEditCmd.Flags().StringVar(&eventName, "name", "", "New name")

	eventCmd.AddCommand(eventAddCmd, eventEditCmd, eventRemoveCmd, eventListCmd)
}

// eventFlags collects the event fields given on the command line. Only
// flags the user set end up in the update.
type eventFlags struct {
	name, typ, start, end, description, color string
	changed                                   func(string) bool
}

func (f eventFlags) update() (container.EventUpdate, error) {
	var u container.EventUpdate
	if f.changed("name") {
		u.Name = &f.name
	}
	if f.changed("description") {
		u.Description = &f.description
	}
	if f.changed("color") {
		u.Color = &f.color
	}
	if f.changed("start") {
		d, err := model.ParseDate(f.start)
		if err != nil {
			return u, fmt.Errorf("invalid --start: %w", err)
		}
		u.StartDate = &d
	}
	if f.changed("end") {
		d, err := model.ParseDate(f.end)
		if err != nil {
			return u, fmt.Errorf("invalid --end: %w", err)
		}
		u.EndDate = &d
	}
	switch {
	case f.changed("type"):
		t, err := model.ParseEventType(f.typ)
		if err != nil {
			return u, err
		}
		u.Type = &t
	case u.EndDate != nil:
		t := model.Duration
		u.Type = &t
	}
	return u, nil
}

// newEvent builds the event described by f. Events without an end date and
// without an explicit type are points.
func (f eventFlags) newEvent() (model.Event, error) {
	u, err := f.update()
	if err != nil {
		return model.Event{}, err
	}
	e := model.Event{Name: f.name, Type: model.Point, Description: f.description, Color: f.color}
	if u.Type != nil {
		e.Type = *u.Type
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		e.EndDate = *u.EndDate
	}
	if e.Type == model.Duration && e.EndDate.IsZero() {
		return model.Event{}, fmt.Errorf("%w: a duration needs --end", model.ErrInvalidRange)
	}
	if e.Type == model.Point {
		e.EndDate = model.Date{}
	}
	return e, nil
}

func flagsOf(cmd *cobra.Command) eventFlags {
	return eventFlags{
		name: eventName, typ: eventType, start: eventStart, end: eventEnd,
		description: eventDescription, color: eventColor,
		changed: cmd.Flags().Changed,
	}
}

func runEventAdd(cmd *cobra.Command, args []string) error {
	f := flagsOf(cmd)
	f.name = args[0]
	e, err := f.newEvent()
	if err != nil {
		die(1, err)
	}
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if err != nil {
			return fail(1, err)
		}
		added, err := s.c.AddEvent(e)
		if err != nil {
			return fail(1, err)
		}
		if err := s.save(ctx, tl); err != nil {
			return fail(2, err)
		}
		fmt.Printf("Added #%d %s to %q\n", added.ID, eventDates(added), tl.Name)
		return nil
	})
}

func runEventEdit(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		die(1, fmt.Errorf("invalid event id %q", args[0]))
	}
	u, err := flagsOf(cmd).update()
	if err != nil {
		die(1, err)
	}
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if err != nil {
			return fail(1, err)
		}
		updated, err := s.c.UpdateEvent(id, u)
		if err != nil {
			return fail(1, err)
		}
		if err := s.save(ctx, tl); err != nil {
			return fail(2, err)
		}
		fmt.Printf("Updated #%d %s %s\n", updated.ID, updated.Name, eventDates(updated))
		return nil
	})
}

func runEventRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		die(1, fmt.Errorf("invalid event id %q", args[0]))
	}
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if err != nil {
			return fail(1, err)
		}
		removed, err := s.c.RemoveEvent(id)
		if err != nil {
			return fail(1, err)
		}
		if err := s.save(ctx, tl); err != nil {
			return fail(2, err)
		}
		fmt.Printf("Removed #%d %s\n", removed.ID, removed.Name)
		return nil
	})
}

func runEventList(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if err != nil {
			return fail(1, err)
		}
		printEvents(os.Stdout, tl.Events)
		return nil
	})
}

func eventDates(e model.Event) string {
	if e.Type == model.Duration {
		return fmt.Sprintf("%s → %s", e.StartDate, e.EndDate)
	}
	return e.StartDate.String()
}

// printEvents writes one line per event in timeline order.
func printEvents(w io.Writer, events []model.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "#%-4d %-8s %-25s %s", e.ID, e.Type, eventDates(e), e.Name)
		if e.ExternalID != "" {
			fmt.Fprint(w, "  (outlook)")
		}
		fmt.Fprintln(w)
	}
}

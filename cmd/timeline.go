package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeline-manager/internal/container"
	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/storage"
	"github.com/Tiliavir/timeline-manager/internal/timecalc"
)

var (
	timelineStart string
	timelineEnd   string
	timelineName  string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Create, select and manage timelines",
}

var timelineNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a timeline and make it active",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimelineNew,
}

var timelineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored timelines (> marks the active one)",
	Args:  cobra.NoArgs,
	RunE:  runTimelineList,
}

var timelineShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a timeline and its events (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTimelineShow,
}

var timelineSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Make a timeline active",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimelineSelect,
}

var timelineEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Rename or re-range the active timeline",
	Args:  cobra.NoArgs,
	RunE:  runTimelineEdit,
}

var timelineDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a timeline (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTimelineDelete,
}

var timelineImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a timeline from a .json or .yaml file and make it active",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimelineImport,
}

func init() {
	timelineNewCmd.Flags().StringVar(&timelineStart, "start", "", "First day (YYYY-MM-DD)")
	timelineNewCmd.Flags().StringVar(&timelineEnd, "end", "", "Last day (YYYY-MM-DD)")
	_ = timelineNewCmd.MarkFlagRequired("start")
	_ = timelineNewCmd.MarkFlagRequired("end")

	timelineEditCmd.Flags().StringVar(&timelineName, "name", "", "New name")
	timelineEditCmd.Flags().StringVar(&timelineStart, "start", "", "New first day (YYYY-MM-DD)")
	timelineEditCmd.Flags().StringVar(&timelineEnd, "end", "", "New last day (YYYY-MM-DD)")

	timelineCmd.AddCommand(timelineNewCmd, timelineListCmd, timelineShowCmd, timelineSelectCmd,
		timelineEditCmd, timelineDeleteCmd, timelineImportCmd, timelineExportCmd)
}

func runTimelineNew(cmd *cobra.Command, args []string) error {
	start, err := model.ParseDate(timelineStart)
	if err != nil {
		die(1, fmt.Errorf("invalid --start: %w", err))
	}
	end, err := model.ParseDate(timelineEnd)
	if err != nil {
		die(1, fmt.Errorf("invalid --end: %w", err))
	}
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.c.NewTimeline(args[0], start, end)
		if err != nil {
			return fail(1, err)
		}
		if err := s.save(ctx, tl); err != nil {
			return fail(2, err)
		}
		fmt.Printf("Created timeline %q [%s] %s → %s\n", tl.Name, tl.ID, tl.StartDate, tl.EndDate)
		return nil
	})
}

func runTimelineList(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		printTimelines(os.Stdout, s.c.Timelines(), s.c.Active())
		return nil
	})
}

// printTimelines writes one line per timeline. The active one is marked
// with > and timelines with unsaved changes with *.
func printTimelines(w io.Writer, timelines []*model.Timeline, active *model.Timeline) {
	if len(timelines) == 0 {
		fmt.Fprintln(w, "No timelines yet.")
		return
	}
	for _, tl := range timelines {
		mark := " "
		if tl == active {
			mark = ">"
		}
		dirty := ""
		if tl.HasUnsavedChanges {
			dirty = " *"
		}
		days := tl.StartDate.DaysUntil(tl.EndDate) + 1
		fmt.Fprintf(w, "%s %-24s %-28s %s → %s  %s, %d events%s\n",
			mark, tl.ID, tl.Name, tl.StartDate, tl.EndDate, timecalc.FormatDays(days), len(tl.Events), dirty)
	}
}

func runTimelineShow(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if len(args) == 1 {
			tl, err = s.c.Timeline(args[0])
		}
		if err != nil {
			return fail(1, err)
		}
		fmt.Printf("%s [%s]\n", tl.Name, tl.ID)
		fmt.Printf("%s → %s\n\n", tl.StartDate, tl.EndDate)
		printEvents(os.Stdout, tl.Events)
		return nil
	})
}

func runTimelineSelect(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		if err := s.c.SetActiveTimeline(args[0]); err != nil {
			return fail(1, err)
		}
		fmt.Printf("Active timeline: %s\n", s.c.Active().Name)
		return nil
	})
}

func runTimelineEdit(cmd *cobra.Command, args []string) error {
	var u container.TimelineUpdate
	if cmd.Flags().Changed("name") {
		u.Name = &timelineName
	}
	if cmd.Flags().Changed("start") {
		d, err := model.ParseDate(timelineStart)
		if err != nil {
			die(1, fmt.Errorf("invalid --start: %w", err))
		}
		u.StartDate = &d
	}
	if cmd.Flags().Changed("end") {
		d, err := model.ParseDate(timelineEnd)
		if err != nil {
			die(1, fmt.Errorf("invalid --end: %w", err))
		}
		u.EndDate = &d
	}
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if err != nil {
			return fail(1, err)
		}
		if err := s.c.UpdateTimeline(u); err != nil {
			return fail(1, err)
		}
		if err := s.save(ctx, tl); err != nil {
			return fail(2, err)
		}
		fmt.Printf("Updated timeline %q %s → %s\n", tl.Name, tl.StartDate, tl.EndDate)
		return nil
	})
}

func runTimelineDelete(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		if len(args) == 1 {
			if err := s.c.SetActiveTimeline(args[0]); err != nil {
				return fail(1, err)
			}
		}
		tl, err := s.c.DeleteTimeline()
		if err != nil {
			return fail(1, err)
		}
		if err := s.repo.Delete(ctx, tl.ID); err != nil {
			return fail(2, err)
		}
		fmt.Printf("Deleted timeline %q [%s]\n", tl.Name, tl.ID)
		if next := s.c.Active(); next != nil {
			fmt.Printf("Active timeline: %s\n", next.Name)
		}
		return nil
	})
}

func runTimelineImport(cmd *cobra.Command, args []string) error {
	tl, err := storage.ReadFile(args[0])
	if err != nil {
		die(1, err)
	}
	return withSession(func(ctx context.Context, s *session) error {
		if err := s.c.AddTimeline(tl); err != nil {
			return fail(1, err)
		}
		if err := s.save(ctx, tl); err != nil {
			return fail(2, err)
		}
		fmt.Printf("Imported timeline %q [%s] with %d events\n", tl.Name, tl.ID, len(tl.Events))
		return nil
	})
}

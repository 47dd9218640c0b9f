package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeline-manager/internal/msgraph"
)

var (
	outlookImportFrom   string
	outlookImportTo     string
	outlookImportDryRun bool
	outlookImportTZ     string
	outlookImportColor  string
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import Outlook calendar events into the active timeline",
	Long: `Fetch the Outlook calendar for the days of the active timeline and add
each meeting as an event. Meetings already imported are updated in place, so
running the import again is safe.`,
	Args: cobra.NoArgs,
	RunE: runOutlookImport,
}

func init() {
	outlookImportCmd.Flags().StringVar(&outlookImportFrom, "from", "", "First day to fetch (YYYY-MM-DD); defaults to the timeline start")
	outlookImportCmd.Flags().StringVar(&outlookImportTo, "to", "", "Last day to fetch (YYYY-MM-DD); defaults to the timeline end")
	outlookImportCmd.Flags().BoolVar(&outlookImportDryRun, "dry-run", false, "Print planned operations without writing")
	outlookImportCmd.Flags().StringVar(&outlookImportTZ, "timezone", "", "IANA timezone for event times (e.g. Europe/Berlin)")
	outlookImportCmd.Flags().StringVar(&outlookImportColor, "color", "", "Color for newly imported events")
	outlookCmd.AddCommand(outlookImportCmd)
}

func runOutlookImport(cmd *cobra.Command, args []string) error {
	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if err != nil {
			return fail(1, err)
		}

		timezone := outlookImportTZ
		if timezone == "" {
			timezone = s.cfg.Outlook.Timezone
		}
		loc := time.Local
		if timezone != "" {
			loc, err = time.LoadLocation(timezone)
			if err != nil {
				return fail(1, fmt.Errorf("invalid timezone %q: %w", timezone, err))
			}
		}

		from, to := msgraph.Window(tl, loc)
		if outlookImportFrom != "" {
			d, err := time.ParseInLocation("2006-01-02", outlookImportFrom, loc)
			if err != nil {
				return fail(1, fmt.Errorf("invalid --from value %q: %w", outlookImportFrom, err))
			}
			from = d
		}
		if outlookImportTo != "" {
			d, err := time.ParseInLocation("2006-01-02", outlookImportTo, loc)
			if err != nil {
				return fail(1, fmt.Errorf("invalid --to value %q: %w", outlookImportTo, err))
			}
			to = d.AddDate(0, 0, 1)
		}
		if !from.Before(to) {
			return fail(1, errors.New("--from must not be after --to"))
		}
		if s.cfg.Outlook.ClientID == "" {
			return fail(1, errors.New("outlook client_id is not configured (set outlook.client_id in ~/.tlm/config.json or TLM_OUTLOOK_CLIENT_ID)"))
		}

		dryTag := ""
		if outlookImportDryRun {
			dryTag = " [dry-run]"
		}
		fmt.Printf("Importing Outlook events into %q (%s → %s)%s...\n",
			tl.Name, from.Format("2006-01-02"), to.AddDate(0, 0, -1).Format("2006-01-02"), dryTag)
		fmt.Println()

		client, err := msgraph.Authenticate(ctx, s.base, s.cfg.Outlook.TenantID, s.cfg.Outlook.ClientID)
		if err != nil {
			return fail(1, fmt.Errorf("authentication failed: %w", err))
		}

		events, err := client.GetCalendarView(ctx, from, to, timezone)
		if err != nil {
			return fail(1, fmt.Errorf("failed to fetch calendar events: %w", err))
		}

		result, err := msgraph.ImportEvents(s.c, events, msgraph.ImportOptions{
			Timezone: timezone,
			DryRun:   outlookImportDryRun,
			Color:    outlookImportColor,
		})
		if err != nil {
			return fail(2, fmt.Errorf("import error: %w", err))
		}
		if !outlookImportDryRun && tl.HasUnsavedChanges {
			if err := s.save(ctx, tl); err != nil {
				return fail(2, err)
			}
		}

		fmt.Println()
		fmt.Println("Summary:")
		fmt.Printf("  %d imported\n", result.Imported)
		fmt.Printf("  %d skipped\n", result.Skipped)
		fmt.Printf("  %d updated\n", result.Updated)
		if result.Errors > 0 {
			fmt.Printf("  %d errors\n", result.Errors)
			return fail(2, fmt.Errorf("%d calendar items could not be imported", result.Errors))
		}
		return nil
	})
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/storage"
)

var exportFormat string

var timelineExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the active timeline to a file or stdout",
	Long: `Export the active timeline. Without a file, or with "-", the timeline is
written to stdout. The format follows the file extension unless --format is
given: json, yaml or csv (events only).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTimelineExport,
}

func init() {
	timelineExportCmd.Flags().StringVar(&exportFormat, "format", "", "Output format: json, yaml, csv")
}

func runTimelineExport(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	format := strings.ToLower(exportFormat)
	if format == "" {
		format = "json"
		if path != "-" {
			if strings.HasSuffix(strings.ToLower(path), ".csv") {
				format = "csv"
			} else if f, err := storage.FormatOf(path); err == nil {
				format = string(f)
			}
		}
	}
	if format != "json" && format != "yaml" && format != "csv" {
		die(1, fmt.Errorf("unknown export format %q (use json, yaml or csv)", format))
	}

	return withSession(func(ctx context.Context, s *session) error {
		tl, err := s.active()
		if err != nil {
			return fail(1, err)
		}

		var data []byte
		if format == "csv" {
			var b strings.Builder
			writeEventsCSV(&b, tl)
			data = []byte(b.String())
		} else {
			data, err = storage.Encode(storage.Format(format), tl)
			if err != nil {
				return fail(2, err)
			}
		}

		if path == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fail(2, fmt.Errorf("error writing %s: %w", path, err))
		}
		fmt.Printf("Exported %q (%d events) to %s\n", tl.Name, len(tl.Events), path)
		return nil
	})
}

// writeEventsCSV writes the events of tl in timeline order, one per line.
func writeEventsCSV(w io.Writer, tl *model.Timeline) {
	fmt.Fprintln(w, "id,name,type,start_date,end_date,color,description,external_id")
	for _, e := range tl.Events {
		end := ""
		if e.Type == model.Duration {
			end = e.EndDate.String()
		}
		fmt.Fprintf(w, "%d,%s,%s,%s,%s,%s,%s,%s\n",
			e.ID,
			csvEscape(e.Name),
			e.Type,
			e.StartDate,
			end,
			csvEscape(e.Color),
			csvEscape(e.Description),
			csvEscape(e.ExternalID),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

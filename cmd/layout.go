package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/timeline-manager/internal/layout"
	"github.com/Tiliavir/timeline-manager/internal/model"
	"github.com/Tiliavir/timeline-manager/internal/render"
)

var (
	layoutPerspective string
	layoutFormat      string
	layoutViewport    int
	layoutOut         string
)

var layoutCmd = &cobra.Command{
	Use:   "layout [id]",
	Short: "Lay out a timeline (default: the active one) and render it",
	Long: `Compute columns, month bands and event rows for a timeline and print
them as a text chart, as JSON or YAML for other tools, or as an SVG image.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutPerspective, "perspective", "p", "", "day, week, month or year (default from config)")
	layoutCmd.Flags().StringVarP(&layoutFormat, "format", "f", "text", "Output format: text, json, yaml, svg")
	layoutCmd.Flags().IntVar(&layoutViewport, "viewport", 0, "Visible width in pixels; the grid is extended to fill it")
	layoutCmd.Flags().StringVarP(&layoutOut, "out", "o", "", "Write to this file instead of stdout")
}

func runLayout(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(layoutFormat)
	switch format {
	case "text", "json", "yaml", "svg":
	default:
		die(1, fmt.Errorf("unknown layout format %q (use text, json, yaml or svg)", layoutFormat))
	}

	return withSession(func(ctx context.Context, s *session) error {
		p, err := s.cfg.Perspective()
		if layoutPerspective != "" {
			p, err = layout.ParsePerspective(layoutPerspective)
		}
		if err != nil {
			return fail(1, err)
		}

		tl, err := s.active()
		if len(args) == 1 {
			tl, err = s.c.Timeline(args[0])
		}
		if err != nil {
			return fail(1, err)
		}

		var l layout.Layout
		if cmd.Flags().Changed("viewport") {
			opts := s.c.Options()
			opts.ViewportWidth = layoutViewport
			l, err = layout.ComputeLayout(tl, p, opts)
		} else {
			l, err = s.c.LayoutOf(tl.ID, p)
		}
		if err != nil {
			return fail(1, err)
		}

		var w io.Writer = os.Stdout
		if layoutOut != "" {
			f, err := os.Create(layoutOut)
			if err != nil {
				return fail(2, err)
			}
			defer f.Close()
			w = f
		}
		if err := writeLayout(w, format, tl, l); err != nil {
			return fail(2, err)
		}
		if layoutOut != "" {
			fmt.Printf("Wrote %s layout of %q (%d rows) to %s\n", p, tl.Name, l.RowCount, layoutOut)
		}
		return nil
	})
}

// writeLayout renders l in the given format.
func writeLayout(w io.Writer, format string, tl *model.Timeline, l layout.Layout) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l); err != nil {
			return err
		}
		return enc.Close()
	case "svg":
		return render.SVG(w, tl, l, render.SVGOptions{})
	}
	return render.Text(w, tl, l)
}

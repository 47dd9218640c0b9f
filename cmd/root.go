package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tlm",
	Short: "Timeline manager – plan events on timelines and lay them out without overlaps",
	Long: `tlm keeps named timelines of point and duration events and lays them
out on a day grid so that no two events in the same row overlap.
Timelines are stored in ~/.tlm/ as JSON or YAML files, or in SQLite.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(outlookCmd)
	rootCmd.AddCommand(serveCmd)
}

// die prints err and exits: 1 for bad input, 2 for storage and runtime failures.
func die(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

// exitError carries the exit code for an error returned from a session
// callback, so that the session is finished before the process exits.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// fail wraps err with the exit code die should use for it.
func fail(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode returns the code carried by err, or 0 when it carries none.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 0
}

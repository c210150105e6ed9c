package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spboyer/swimlane/internal/events"
	"github.com/spboyer/swimlane/internal/timeline"
)

func newRenderCommand() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "render <events.json[.gz]>",
		Short: "Render an event log as an ASCII swimlane diagram",
		Long: `Render reads an event log (JSON array or JSON lines, optionally
gzip-compressed), reconstructs the execution timeline, and prints a
fixed-width swimlane diagram showing agent hierarchy, parallel sub-agents,
branches, and compaction markers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			evs, err := loadEventLog(args[0])
			if err != nil {
				return err
			}

			t := timeline.Build(evs)

			w := width
			if w <= 0 {
				w = detectWidth()
			}
			fmt.Fprintln(cmd.OutOrStdout(), timeline.Render(t, w))
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", 0, "Output width in characters (default: terminal width)")

	return cmd
}

// detectWidth returns the terminal width capped at the render maximum,
// falling back to 120 when stdout is not a terminal.
func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return min(w, timeline.MaxRenderWidth)
	}
	return 120
}

// loadEventLog reads and decodes an event log file, transparently
// decompressing ".gz" inputs.
func loadEventLog(path string) ([]events.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip log %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	evs, err := events.DecodeLog(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, e := range evs {
		events.LogEvent(e)
	}
	return evs, nil
}

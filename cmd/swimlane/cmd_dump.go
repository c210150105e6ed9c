package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spboyer/swimlane/internal/timeline"
)

var dumpOutputFormat string

func newDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <events.json[.gz]>",
		Short: "Build a timeline and emit its serialized form",
		Long: `Dump reads an event log, reconstructs the execution timeline, and
emits the serialized tree with events referenced by UUID. Useful for
inspecting the inferred structure or feeding other tooling.`,
		Args: cobra.ExactArgs(1),
		RunE: dumpCommandE,
	}

	cmd.Flags().StringVarP(&dumpOutputFormat, "format", "f", "json", "Output format: json or yaml")

	return cmd
}

func dumpCommandE(cmd *cobra.Command, args []string) error {
	if dumpOutputFormat != "json" && dumpOutputFormat != "yaml" {
		return fmt.Errorf("unsupported format %q: must be json or yaml", dumpOutputFormat)
	}

	evs, err := loadEventLog(args[0])
	if err != nil {
		return err
	}

	data := timeline.Dump(timeline.Build(evs))

	var out []byte
	if dumpOutputFormat == "yaml" {
		out, err = yaml.Marshal(data)
	} else {
		out, err = json.MarshalIndent(data, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

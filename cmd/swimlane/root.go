package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swimlane",
		Short: "Swimlane - visualize agentic run timelines",
		Long: `Swimlane reconstructs a hierarchical execution timeline from the flat
event log of an agentic AI run and renders it as an ASCII swimlane diagram.

It infers agent hierarchy, parallel sub-agents, discarded branches, and
utility agents from loosely structured model/tool/compaction events.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRenderCommand())
	cmd.AddCommand(newDumpCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

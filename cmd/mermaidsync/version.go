package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version, commit and date are set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=abc123" ./cmd/mermaidsync/
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mermaidsync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mermaidsync %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		},
	}
}

package main

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

const defaultModule = "github.com/iph0/libertyconf"

// buildVersion is set via -ldflags "-X main.buildVersion=...".
var buildVersion = ""

func currentVersion() string {
	if strings.TrimSpace(buildVersion) != "" {
		return buildVersion
	}

	info, ok := debug.ReadBuildInfo()

	if ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return v
		}
	}

	return "v0.0.0-unknown"
}

func modulePath() string {
	info, ok := debug.ReadBuildInfo()

	if ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}

	return defaultModule
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the libertyconf version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", modulePath(), currentVersion())
			return err
		},
	}
}

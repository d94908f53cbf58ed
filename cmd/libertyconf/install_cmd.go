package main

import (
	"errors"
	"fmt"

	"github.com/iph0/libertyconf/installer"
	"github.com/spf13/cobra"
)

// newInstaller is replaced in tests.
var newInstaller = func(cfg *cliConfig, installDir string) installer.FeatureInstaller {
	return installer.NewExecInstaller(installDir, nil, cfg.logger)
}

func newInstallFeaturesCommand(cfg *cliConfig) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "install-features",
		Short: "Install the features enabled by the server configuration that are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := cfg.dirs().Normalize()

			if dirs.InstallDir == "" {
				return errors.New("install directory not specified, use --install-dir")
			}

			result, err := cfg.scan(cmd.Context())

			if err != nil {
				return err
			}

			inst := newInstaller(cfg, dirs.InstallDir)
			missing, err := inst.ResolveFeatures(cmd.Context(), result.Features)

			if err != nil {
				return err
			}

			for _, feature := range missing {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), feature); err != nil {
					return err
				}
			}

			if len(missing) == 0 || dryRun {
				return nil
			}

			return inst.Install(cmd.Context(), missing)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only print the features that would be installed")

	return cmd
}

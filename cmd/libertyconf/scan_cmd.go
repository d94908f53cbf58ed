package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScanCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the server configuration and print everything it declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cfg.scan(cmd.Context())

			if err != nil {
				return err
			}

			return cfg.write(cmd.OutOrStdout(), result)
		},
	}
}

func newResolveCommand(cfg *cliConfig) *cobra.Command {
	var keepRaw bool

	cmd := &cobra.Command{
		Use:   "resolve VALUE...",
		Short: "Resolve ${...} references against the scanned variables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cfg.scan(cmd.Context())

			if err != nil {
				return err
			}

			for _, raw := range args {
				res := result.Resolve(raw)

				if !res.OK() && !keepRaw {
					return fmt.Errorf("resolve %q: variable %s is %s", raw, res.Variable, res.Outcome)
				}

				if _, err := fmt.Fprintln(cmd.OutOrStdout(), res.Or(raw)); err != nil {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&keepRaw, "keep-raw", false, "print unresolvable values unchanged instead of failing")

	return cmd
}

func newFeaturesCommand(cfg *cliConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Print the features enabled by the server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cfg.scan(cmd.Context())

			if err != nil {
				return err
			}

			for _, feature := range result.Features {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), feature); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

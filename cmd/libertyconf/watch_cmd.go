package main

import (
	"bufio"
	"context"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/iph0/libertyconf"
	"github.com/iph0/libertyconf/installer"
	"github.com/iph0/libertyconf/watch"
	"github.com/spf13/cobra"
)

func newWatchCommand(cfg *cliConfig) *cobra.Command {
	var (
		execLine     string
		debounce     time.Duration
		stdinTrigger bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan the server configuration whenever one of its sources changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dirs := cfg.dirs().Normalize()
			paths := watchPaths(ctx, cfg, dirs)
			runner := &installer.ExecRunner{}

			run := func(ctx context.Context, reason string) error {
				result, err := cfg.scan(ctx)

				if err != nil {
					return err
				}

				if err := cfg.write(cmd.OutOrStdout(), result); err != nil {
					return err
				}

				if execLine == "" {
					return nil
				}

				runner.Env = []string{
					"LIBERTYCONF_REASON=" + reason,
					"LIBERTYCONF_FEATURES=" + strings.Join(result.Features, ","),
					"LIBERTYCONF_LOCATIONS=" + strings.Join(result.Locations, ","),
				}

				name, shellArgs := shellCommand(execLine)
				out, err := runner.Run(ctx, dirs.ConfigDir, name, shellArgs...)

				if err != nil {
					return err
				}

				_, err = cmd.OutOrStdout().Write(out)

				return err
			}

			w, err := watch.New(watch.Config{
				Paths:      paths,
				Debounce:   debounce,
				InitialRun: true,
				Run:        run,
				Logger:     cfg.logger,
			})

			if err != nil {
				return err
			}

			if stdinTrigger {
				go triggerOnInput(ctx, cmd.InOrStdin(), w)
			}

			return w.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&execLine, "exec", "", "shell command executed after every successful scan")
	flags.DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before a rescan")
	flags.BoolVar(&stdinTrigger, "stdin-trigger", false, "rescan when a line is read from standard input")

	return cmd
}

// watchPaths returns the server source paths plus every document the current
// configuration includes.
func watchPaths(ctx context.Context, cfg *cliConfig, dirs libertyconf.Dirs) []string {
	props := libertyconf.NewProperties(dirs.DirProperties())
	variableDirs := libertyconf.NewSourceLoader(props, cfg.logger).VariableDirs(dirs.ConfigDir)
	paths := watch.ServerPaths(dirs, variableDirs)

	result, err := cfg.scan(ctx)

	if err != nil {
		cfg.logger.Warn("watch.initial_scan.failed", "error", err)
		return paths
	}

	for _, doc := range result.Documents {
		if loc, err := libertyconf.ParseLocator(doc); err == nil && loc.Scheme == libertyconf.SchemeFile {
			paths = append(paths, doc)
		}
	}

	return paths
}

func triggerOnInput(ctx context.Context, in io.Reader, w *watch.Watcher) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		w.Trigger("stdin")
	}
}

func shellCommand(line string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", line}
	}

	return "/bin/sh", []string{"-c", line}
}

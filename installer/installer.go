// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

// Package installer installs server features by running the featureUtility
// tool of a runtime installation as a separate process.
package installer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"pkt.systems/pslog"
)

const errPref = "installer"

// featureInfo lines look like "servlet-4.0 [1.0.0]"
var featureInfoRe = regexp.MustCompile(`^\s*([A-Za-z0-9_.:\-]+)\s*(\[.*\])?\s*$`)

// FeatureInstaller installs features into a runtime installation.
type FeatureInstaller interface {
	// ResolveFeatures returns the features that still need to be installed.
	ResolveFeatures(ctx context.Context, features []string) ([]string, error)

	// Install installs the features.
	Install(ctx context.Context, features []string) error
}

// Runner runs external processes and returns their standard output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct {
	// Env is appended to the current environment.
	Env []string
}

// Run runs the process and waits for it to finish. Standard error is included
// in the returned error.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())

		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}

		return stdout.Bytes(), fmt.Errorf("%s: %s %s: %w: %s", errPref, name,
			strings.Join(args, " "), err, msg)
	}

	return stdout.Bytes(), nil
}

// ExecInstaller is a FeatureInstaller backed by the featureUtility and
// productInfo scripts of the installation.
type ExecInstaller struct {
	installDir string
	runner     Runner
	logger     pslog.Logger
	goos       string

	// AcceptLicense passes --acceptLicense to featureUtility.
	AcceptLicense bool
}

// NewExecInstaller creates new installer for the installation directory. An
// ExecRunner is used when runner is nil.
func NewExecInstaller(installDir string, runner Runner, logger pslog.Logger) *ExecInstaller {
	if runner == nil {
		runner = &ExecRunner{}
	}

	if logger == nil {
		logger = pslog.NoopLogger()
	}

	return &ExecInstaller{
		installDir:    installDir,
		runner:        runner,
		logger:        logger,
		goos:          runtime.GOOS,
		AcceptLicense: true,
	}
}

// ResolveFeatures drops the features productInfo reports as installed.
func (i *ExecInstaller) ResolveFeatures(ctx context.Context, features []string) ([]string, error) {
	if len(features) == 0 {
		return nil, nil
	}

	out, err := i.runner.Run(ctx, i.installDir, i.script("productInfo"), "featureInfo")

	if err != nil {
		return nil, err
	}

	installed := parseFeatureInfo(out)
	var missing []string

	for _, feature := range features {
		feature = strings.ToLower(strings.TrimSpace(feature))

		if feature == "" {
			continue
		}

		if _, ok := installed[feature]; ok {
			i.logger.Debug("installer.feature.installed", "feature", feature)
			continue
		}

		if !slices.Contains(missing, feature) {
			missing = append(missing, feature)
		}
	}

	return missing, nil
}

// Install runs featureUtility installFeature for the features.
func (i *ExecInstaller) Install(ctx context.Context, features []string) error {
	if len(features) == 0 {
		return errors.New("installer: no features to install")
	}

	args := append([]string{"installFeature"}, features...)

	if i.AcceptLicense {
		args = append(args, "--acceptLicense")
	}

	i.logger.Info("installer.install.start", "features", strings.Join(features, ","))

	if _, err := i.runner.Run(ctx, i.installDir, i.script("featureUtility"), args...); err != nil {
		return err
	}

	i.logger.Info("installer.install.done", "features", len(features))

	return nil
}

func (i *ExecInstaller) script(name string) string {
	if i.goos == "windows" {
		name += ".bat"
	}

	return filepath.Join(i.installDir, "bin", name)
}

func parseFeatureInfo(out []byte) map[string]struct{} {
	installed := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(out))

	for scanner.Scan() {
		matches := featureInfoRe.FindStringSubmatch(scanner.Text())

		if matches == nil {
			continue
		}

		installed[strings.ToLower(matches[1])] = struct{}{}
	}

	return installed
}

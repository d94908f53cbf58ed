package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"
)

func TestWatchPathsIncludeDocuments(t *testing.T) {
	dir := writeServer(t)
	include := filepath.Join(dir, "inc.xml")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.xml"),
		[]byte(`<server><include location="inc.xml"/></server>`), 0o644))
	require.NoError(t, os.WriteFile(include, []byte(`<server/>`), 0o644))

	cfg := &cliConfig{v: viper.New(), logger: pslog.NoopLogger()}
	cfg.v.Set(configDirKey, dir)
	paths := watchPaths(context.Background(), cfg, cfg.dirs().Normalize())

	canonical, err := filepath.EvalSymlinks(include)
	require.NoError(t, err)

	assert.Contains(t, paths, filepath.Join(dir, "server.xml"))
	assert.Contains(t, paths, filepath.Join(dir, "variables"))
	assert.Contains(t, paths, canonical)
}

func TestShellCommand(t *testing.T) {
	name, args := shellCommand("echo hi")

	assert.NotEmpty(t, name)
	assert.Equal(t, "echo hi", args[len(args)-1])
}

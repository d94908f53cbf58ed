package libertyconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iph0/libertyconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type testServer struct {
	root string
	dirs libertyconf.Dirs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	install := filepath.Join(root, "wlp")

	return &testServer{
		root: root,
		dirs: libertyconf.Dirs{
			InstallDir: install,
			ConfigDir:  filepath.Join(install, "usr", "servers", "app"),
		}.Normalize(),
	}
}

func (s *testServer) config(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(s.dirs.ConfigDir, filepath.FromSlash(name))
	writeFile(t, path, content)

	return path
}

func newSourceLoader(props *libertyconf.Properties, env map[string]string) *libertyconf.SourceLoader {
	loader := libertyconf.NewSourceLoader(props, nil)
	loader.GOOS = "linux"
	loader.Getenv = func(key string) string {
		return env[key]
	}

	return loader
}

func TestLoadServerEnv(t *testing.T) {
	srv := newTestServer(t)

	writeFile(t, filepath.Join(srv.dirs.InstallDir, "etc", "server.env"),
		"A=install\nB=install\n# comment\n")
	writeFile(t, filepath.Join(srv.dirs.UserDir, "shared", "server.env"),
		"B=shared\nC=shared\n")
	srv.config(t, "server.env", "C=config\nD=${A}/${B}\nE=${UNKNOWN}\n")

	props := libertyconf.NewProperties(srv.dirs.DirProperties())
	newSourceLoader(props, nil).LoadServerEnv(srv.dirs)

	assert.Equal(t,
		map[string]string{
			"A": "install",
			"B": "shared",
			"C": "config",
			"D": "install/shared",
			"E": "${UNKNOWN}",
		},
		props.Props,
	)
}

func TestLoadServerEnvMissingFiles(t *testing.T) {
	srv := newTestServer(t)
	props := libertyconf.NewProperties(nil)

	newSourceLoader(props, nil).LoadServerEnv(srv.dirs)

	assert.Empty(t, props.Props)
}

func TestLoadBootstrap(t *testing.T) {
	srv := newTestServer(t)

	srv.config(t, "bootstrap.properties",
		"a=1\nshared=bootstrap\nbootstrap.include=extra/more.properties\n")
	srv.config(t, "extra/more.properties",
		"b: 2\nshared=more\nbootstrap.include=bootstrap.properties\n")

	props := libertyconf.NewProperties(nil)
	newSourceLoader(props, nil).LoadBootstrap(srv.dirs.ConfigDir)

	assert.Equal(t, "1", props.Props["a"])
	assert.Equal(t, "2", props.Props["b"])
	assert.Equal(t, "more", props.Props["shared"])
}

func TestLoadBootstrapSelfInclude(t *testing.T) {
	srv := newTestServer(t)

	srv.config(t, "bootstrap.properties", "a=1\nbootstrap.include=bootstrap.properties\n")

	props := libertyconf.NewProperties(nil)
	newSourceLoader(props, nil).LoadBootstrap(srv.dirs.ConfigDir)

	assert.Equal(t, "1", props.Props["a"])
}

func TestLoadBootstrapIgnoresForeignInclude(t *testing.T) {
	srv := newTestServer(t)

	srv.config(t, "server.env", "bootstrap.include=stale.properties\n")
	srv.config(t, "bootstrap.properties", "a=1\n")
	srv.config(t, "stale.properties", "stale=yes\n")

	props := libertyconf.NewProperties(nil)
	newSourceLoader(props, nil).LoadAll(srv.dirs, nil)

	assert.Equal(t, "1", props.Props["a"])
	assert.NotContains(t, props.Props, "stale")
}

func TestLoadBootstrapJavaSyntax(t *testing.T) {
	srv := newTestServer(t)

	srv.config(t, "bootstrap.properties", `win.dir=C:\\wlp\\usr
spaced value with spaces
colon : separated
unicode=caf\u00e9
long=first \
    second
! bang comment
# hash comment
`)

	props := libertyconf.NewProperties(nil)
	newSourceLoader(props, nil).LoadBootstrap(srv.dirs.ConfigDir)

	assert.Equal(t,
		map[string]string{
			"win.dir": `C:\wlp\usr`,
			"spaced":  "value with spaces",
			"colon":   "separated",
			"unicode": "café",
			"long":    "first second",
		},
		props.Props,
	)
}

func TestLoadVariables(t *testing.T) {
	srv := newTestServer(t)

	srv.config(t, "variables/db.password", "s3cret\n")
	srv.config(t, "variables/crlf", "value\r\n")
	srv.config(t, "variables/multi", "line1\nline2\n\n")
	srv.config(t, "variables/.hidden", "nope")
	srv.config(t, "variables/.git/config", "nope")
	srv.config(t, "variables/app.properties", "app.name=shop\napp.port: 9080\n")
	srv.config(t, "variables/nested/key", "nested")
	srv.config(t, "variables/nested/more.properties", "k=v\n")

	props := libertyconf.NewProperties(nil)
	newSourceLoader(props, nil).LoadVariables(srv.dirs.ConfigDir)

	assert.Equal(t,
		map[string]string{
			"db.password": "s3cret",
			"crlf":        "value",
			"multi":       "line1\nline2\n",
			"app.name":    "shop",
			"app.port":    "9080",
			"nested/key":  "nested",
			"nested/k":    "v",
		},
		props.Props,
	)
}

func TestVariableSourceDirs(t *testing.T) {
	srv := newTestServer(t)
	first := filepath.Join(srv.root, "first")
	writeFile(t, filepath.Join(first, "shared"), "first")
	writeFile(t, filepath.Join(first, "only.first"), "1")
	srv.config(t, "second/shared", "second")

	env := map[string]string{
		libertyconf.VariableSourceDirsEnv: first + ":second",
	}

	props := libertyconf.NewProperties(nil)
	loader := newSourceLoader(props, env)

	assert.Equal(t,
		[]string{first, filepath.Join(srv.dirs.ConfigDir, "second")},
		loader.VariableDirs(srv.dirs.ConfigDir),
	)

	loader.LoadVariables(srv.dirs.ConfigDir)

	assert.Equal(t, "second", props.Props["shared"])
	assert.Equal(t, "1", props.Props["only.first"])
}

func TestVariableSourceDirsWindowsSeparator(t *testing.T) {
	env := map[string]string{
		libertyconf.VariableSourceDirsEnv: "/a;/b",
	}

	loader := newSourceLoader(libertyconf.NewProperties(nil), env)
	loader.GOOS = "windows"

	dirs := loader.VariableDirs("")

	require.Len(t, dirs, 2)
	assert.Equal(t, filepath.FromSlash("/a"), dirs[0])
	assert.Equal(t, filepath.FromSlash("/b"), dirs[1])
}

func TestLoadAllPrecedence(t *testing.T) {
	srv := newTestServer(t)

	srv.config(t, "server.env", "KEY=env\nENV_ONLY=env\n")
	srv.config(t, "bootstrap.properties", "KEY=bootstrap\nBOOT_ONLY=bootstrap\n")
	srv.config(t, "variables/KEY", "variables")

	props := libertyconf.NewProperties(nil)
	newSourceLoader(props, nil).LoadAll(srv.dirs, map[string]string{
		"KEY":      "system",
		"SYS_ONLY": "system",
	})

	assert.Equal(t, "variables", props.Props["KEY"])
	assert.Equal(t, "env", props.Props["ENV_ONLY"])
	assert.Equal(t, "bootstrap", props.Props["BOOT_ONLY"])
	assert.Equal(t, "system", props.Props["SYS_ONLY"])
}

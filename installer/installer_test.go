package installer

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	output map[string]string
	err    error
}

func (r *fakeRunner) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{dir: dir, name: name, args: args})

	if r.err != nil {
		return nil, r.err
	}

	return []byte(r.output[filepath.Base(name)]), nil
}

const featureInfo = `
Product name: WebSphere Application Server Liberty
servlet-4.0 [1.0.0]
jsonp-1.1 [1.0.0]
JDBC-4.2
this line is not a feature list entry
`

func TestResolveFeatures(t *testing.T) {
	runner := &fakeRunner{output: map[string]string{"productInfo": featureInfo}}
	inst := NewExecInstaller("/opt/wlp", runner, nil)
	inst.goos = "linux"

	missing, err := inst.ResolveFeatures(context.Background(),
		[]string{"servlet-4.0", "mpHealth-4.0", "jdbc-4.2", " ", "mphealth-4.0"})

	require.NoError(t, err)
	assert.Equal(t, []string{"mphealth-4.0"}, missing)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, filepath.Join("/opt/wlp", "bin", "productInfo"), runner.calls[0].name)
	assert.Equal(t, []string{"featureInfo"}, runner.calls[0].args)
	assert.Equal(t, "/opt/wlp", runner.calls[0].dir)
}

func TestResolveFeaturesEmpty(t *testing.T) {
	runner := &fakeRunner{}
	inst := NewExecInstaller("/opt/wlp", runner, nil)

	missing, err := inst.ResolveFeatures(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Empty(t, runner.calls)
}

func TestResolveFeaturesError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	inst := NewExecInstaller("/opt/wlp", runner, nil)

	_, err := inst.ResolveFeatures(context.Background(), []string{"servlet-4.0"})

	assert.EqualError(t, err, "boom")
}

func TestInstall(t *testing.T) {
	runner := &fakeRunner{}
	inst := NewExecInstaller("/opt/wlp", runner, nil)
	inst.goos = "windows"

	require.NoError(t, inst.Install(context.Background(), []string{"mphealth-4.0", "jdbc-4.2"}))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, filepath.Join("/opt/wlp", "bin", "featureUtility.bat"), runner.calls[0].name)
	assert.Equal(t,
		[]string{"installFeature", "mphealth-4.0", "jdbc-4.2", "--acceptLicense"},
		runner.calls[0].args,
	)

	inst.AcceptLicense = false
	require.NoError(t, inst.Install(context.Background(), []string{"jdbc-4.2"}))
	assert.Equal(t, []string{"installFeature", "jdbc-4.2"}, runner.calls[1].args)

	assert.Error(t, inst.Install(context.Background(), nil))
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}

	runner := &ExecRunner{Env: []string{"INSTALLER_TEST=value"}}

	out, err := runner.Run(context.Background(), t.TempDir(), "/bin/sh", "-c", "echo $INSTALLER_TEST")
	require.NoError(t, err)
	assert.Equal(t, "value", strings.TrimSpace(string(out)))

	_, err = runner.Run(context.Background(), "", "/bin/sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

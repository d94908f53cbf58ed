package libertyconf_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/iph0/libertyconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestProperties() *libertyconf.Properties {
	props := libertyconf.NewProperties(map[string]string{
		libertyconf.ServerConfigDir: "/srv/wlp/usr/servers/app",
		libertyconf.WLPInstallDir:   `"/opt/wlp"`,
	})

	props.SetAll(map[string]string{
		"APP_HOME":  "/srv/apps",
		"JAVA_HOME": "/usr/lib/jvm",
		"app.name":  "shop",
		"win.dir":   `C:\apps\shop`,
		"self":      "${self}",
		"ping":      "${pong}",
		"pong":      "${ping}",
		"nested":    "${app.name}/${APP_HOME}",
	})

	props.SetDefault("http.port", "9080")
	props.SetDefault("app.name", "ignored")

	return props
}

func TestResolve(t *testing.T) {
	resolver := libertyconf.NewResolver(newTestProperties(), nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"no references", "plain", "plain"},
		{"backslashes without references", `a\b\c`, "a/b/c"},
		{"dir property", "${server.config.dir}/apps", "/srv/wlp/usr/servers/app/apps"},
		{"dir property quotes stripped", "${wlp.install.dir}/lib", "/opt/wlp/lib"},
		{"exact name", "${app.name}", "shop"},
		{"default value", "${http.port}", "9080"},
		{"underscore variation", "${APP.HOME}", "/srv/apps"},
		{"upper case variation", "${app.home}", "/srv/apps"},
		{"env prefix", "${env.JAVA_HOME}/bin", "/usr/lib/jvm/bin"},
		{"recursive", "${nested}", "shop//srv/apps"},
		{"backslashes in value", "${win.dir}/x.war", "C:/apps/shop/x.war"},
		{"repeated", "${app.name}-${app.name}", "shop-shop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolver.Resolve(tt.raw)

			require.True(t, res.OK(), "outcome %s for %s", res.Outcome, res.Variable)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestResolveFailures(t *testing.T) {
	resolver := libertyconf.NewResolver(newTestProperties(), nil)

	tests := []struct {
		name     string
		raw      string
		outcome  libertyconf.Outcome
		variable string
	}{
		{"undefined", "${missing}/x", libertyconf.Undefined, "missing"},
		{"env without suffix", "${env.}", libertyconf.Undefined, "env."},
		{"partially undefined", "${app.name}/${missing}", libertyconf.Undefined, "missing"},
		{"self reference", "${self}", libertyconf.Circular, "self"},
		{"mutual reference", "${ping}", libertyconf.Circular, "ping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolver.Resolve(tt.raw)

			assert.False(t, res.OK())
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.variable, res.Variable)
			assert.Empty(t, res.Value)
			assert.Equal(t, tt.raw, res.Or(tt.raw))
		})
	}
}

func TestResolveChain(t *testing.T) {
	resolver := libertyconf.NewResolver(newTestProperties(), nil)

	res := resolver.ResolveChain("${app.name}", []string{"app.name"})
	assert.Equal(t, libertyconf.Circular, res.Outcome)

	res = resolver.ResolveChain("${APP_HOME}", []string{"app.name"})
	assert.True(t, res.OK())
	assert.Equal(t, "/srv/apps", res.Value)
}

func TestLookupPrefersDirProperties(t *testing.T) {
	props := libertyconf.NewProperties(map[string]string{
		libertyconf.ServerConfigDir: "/config",
	})

	props.Set(libertyconf.ServerConfigDir, "/elsewhere")

	value, ok := libertyconf.NewResolver(props, nil).Lookup(libertyconf.ServerConfigDir)

	assert.True(t, ok)
	assert.Equal(t, "/config", value)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "resolved", libertyconf.Resolved.String())
	assert.Equal(t, "undefined", libertyconf.Undefined.String())
	assert.Equal(t, "circular", libertyconf.Circular.String())
	assert.Equal(t, "outcome(7)", libertyconf.Outcome(7).String())
}

func TestResolveBackslashProperty(t *testing.T) {
	resolver := libertyconf.NewResolver(libertyconf.NewProperties(nil), nil)

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.StringMatching(`[a-zA-Z0-9:\\/ ._-]*`).Draw(t, "raw")
		res := resolver.Resolve(raw)

		assert.True(t, res.OK())
		assert.NotContains(t, res.Value, `\`)
		assert.Equal(t, strings.ReplaceAll(raw, `\`, "/"), res.Value)
	})
}

func TestResolveChainLengthProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		props := libertyconf.NewProperties(nil)

		for i := 0; i < n-1; i++ {
			props.Set(fmt.Sprintf("v%d", i), fmt.Sprintf("${v%d}", i+1))
		}

		props.Set(fmt.Sprintf("v%d", n-1), "literal")

		res := libertyconf.NewResolver(props, nil).Resolve("${v0}")

		assert.True(t, res.OK())
		assert.Equal(t, "literal", res.Value)
	})
}

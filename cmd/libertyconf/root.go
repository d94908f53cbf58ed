package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/iph0/libertyconf"
	"github.com/iph0/libertyconf/envconf"
	"github.com/iph0/libertyconf/fileconf"
	"github.com/iph0/libertyconf/loaders/httploader"
	"github.com/iph0/merger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"pkt.systems/pslog"
)

const (
	envPrefix = "LIBERTYCONF"

	installDirKey     = "install-dir"
	userDirKey        = "user-dir"
	configDirKey      = "config-dir"
	serverXMLKey      = "server-xml"
	outputDirKey      = "output-dir"
	logLevelKey       = "log-level"
	formatKey         = "format"
	envPatternKey     = "env-pattern"
	propertiesFileKey = "properties-file"
	propertiesKey     = "properties"
)

// cliConfig carries settings shared by all subcommands. Values come from
// flags, LIBERTYCONF_* environment variables and an optional config file, in
// that order of precedence.
type cliConfig struct {
	v          *viper.Viper
	baseLogger pslog.Logger
	logger     pslog.Logger
	defines    []string
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	if baseLogger == nil {
		baseLogger = pslog.NoopLogger()
	}

	cfg := &cliConfig{
		v:          viper.New(),
		baseLogger: baseLogger,
		logger:     baseLogger,
	}

	cmd := &cobra.Command{
		Use:           "libertyconf",
		Short:         "Inspect server configuration documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "path to a YAML, JSON or TOML file with libertyconf settings")
	flags.String(installDirKey, "", "runtime installation directory (wlp.install.dir)")
	flags.String(userDirKey, "", "user directory (defaults to <install-dir>/usr)")
	flags.String(configDirKey, "", "server configuration directory (defaults to the server.xml directory)")
	flags.String(serverXMLKey, "", "primary configuration document (defaults to <config-dir>/server.xml)")
	flags.String(outputDirKey, "", "server output directory (defaults to the config directory)")
	flags.String(logLevelKey, "warn", "log level (trace, debug, info, warn, error, none)")
	flags.StringP(formatKey, "o", "yaml", "output format (yaml, json, toml)")
	flags.StringArrayVarP(&cfg.defines, "define", "D", nil, "system property as key=value (repeatable)")
	flags.String(envPatternKey, "", "import environment variables matching the regular expression as env.* properties")
	flags.StringSlice(propertiesFileKey, nil, "YAML, JSON or TOML files imported as system properties")

	mustBindFlag(cfg.v, "config", envPrefix+"_CONFIG", flags.Lookup("config"))

	for _, key := range []string{
		installDirKey, userDirKey, configDirKey, serverXMLKey, outputDirKey,
		logLevelKey, formatKey, envPatternKey, propertiesFileKey,
	} {
		mustBindFlag(cfg.v, key, envName(key), flags.Lookup(key))
	}

	cmd.AddCommand(
		newScanCommand(cfg),
		newResolveCommand(cfg),
		newFeaturesCommand(cfg),
		newWatchCommand(cfg),
		newInstallFeaturesCommand(cfg),
		newVersionCommand(),
	)

	return cmd
}

func mustBindFlag(v *viper.Viper, key, env string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for key %s not found", key))
	}

	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}

	if env != "" {
		if err := v.BindEnv(key, env); err != nil {
			panic(err)
		}
	}
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func (c *cliConfig) load() error {
	if err := c.loadConfigFile(); err != nil {
		return err
	}

	level := strings.ToLower(strings.TrimSpace(c.v.GetString(logLevelKey)))

	switch level {
	case "", "none", "off", "disabled":
		c.logger = pslog.NoopLogger()
		return nil
	}

	parsed, ok := pslog.ParseLevel(level)

	if !ok {
		return fmt.Errorf("invalid log level %q", level)
	}

	if parsed == pslog.NoLevel || parsed == pslog.Disabled {
		c.logger = pslog.NoopLogger()
		return nil
	}

	c.logger = c.baseLogger.LogLevel(parsed)

	return nil
}

func (c *cliConfig) loadConfigFile() error {
	path := strings.TrimSpace(c.v.GetString("config"))

	if path == "" {
		return nil
	}

	info, err := os.Stat(path)

	if err != nil {
		return fmt.Errorf("config file %q: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("config file %q is a directory", path)
	}

	c.v.SetConfigFile(path)

	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	return nil
}

func (c *cliConfig) dirs() libertyconf.Dirs {
	return libertyconf.Dirs{
		InstallDir: c.v.GetString(installDirKey),
		UserDir:    c.v.GetString(userDirKey),
		ConfigDir:  c.v.GetString(configDirKey),
		OutputDir:  c.v.GetString(outputDirKey),
		ServerXML:  c.v.GetString(serverXMLKey),
	}
}

// systemProperties merges, in increasing precedence, properties of the config
// file, property files, imported environment variables and -D definitions.
func (c *cliConfig) systemProperties() (map[string]string, error) {
	props := c.v.GetStringMapString(propertiesKey)

	if files := c.v.GetStringSlice(propertiesFileKey); len(files) > 0 {
		provider := fileconf.NewProvider(".")

		for _, file := range files {
			if !filepath.IsAbs(file) {
				if abs, err := filepath.Abs(file); err == nil {
					file = abs
				}
			}

			fileProps, err := provider.Load(file)

			if err != nil {
				return nil, err
			}

			props = mergeProps(props, fileProps)
		}
	}

	if pattern := c.v.GetString(envPatternKey); pattern != "" {
		envProps, err := envconf.NewProvider().Load(pattern)

		if err != nil {
			return nil, err
		}

		props = mergeProps(props, envProps)
	}

	defines := make(map[string]string)

	for _, define := range c.defines {
		key, value, ok := strings.Cut(define, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property definition %q, expected key=value", define)
		}

		defines[key] = value
	}

	return mergeProps(props, defines), nil
}

func (c *cliConfig) options() (libertyconf.Options, error) {
	sysProps, err := c.systemProperties()

	if err != nil {
		return libertyconf.Options{}, err
	}

	httpLoader := httploader.NewLoader(nil,
		httploader.WithLogger(c.logger))

	return libertyconf.Options{
		Dirs:             c.dirs(),
		Logger:           c.logger,
		SystemProperties: sysProps,
		Loaders: map[string]libertyconf.Loader{
			libertyconf.SchemeHTTP:  httpLoader,
			libertyconf.SchemeHTTPS: httpLoader,
		},
	}, nil
}

func (c *cliConfig) scan(ctx context.Context) (*libertyconf.Result, error) {
	opts, err := c.options()

	if err != nil {
		return nil, err
	}

	return libertyconf.NewScanner(opts).Scan(ctx)
}

func (c *cliConfig) write(w io.Writer, value any) error {
	format := strings.ToLower(c.v.GetString(formatKey))

	switch format {
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(value); err != nil {
			return err
		}

		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(value)
	case "toml":
		return toml.NewEncoder(w).Encode(value)
	}

	return fmt.Errorf("unknown output format %q", format)
}

func mergeProps(left, right map[string]string) map[string]string {
	if len(left) == 0 {
		return maps.Clone(right)
	}

	if merged, ok := merger.Merge(left, right).(map[string]string); ok {
		return merged
	}

	return left
}

package libertyconf

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/go-ini/ini"
	"github.com/magiconair/properties"
	"pkt.systems/pslog"
)

// VariableSourceDirsEnv is the environment variable that overrides the
// default variables directory with a list of directories.
const VariableSourceDirsEnv = "VARIABLE_SOURCE_DIRS"

const (
	serverEnvFile     = "server.env"
	bootstrapFile     = "bootstrap.properties"
	bootstrapInclude  = "bootstrap.include"
	variablesDir      = "variables"
	propertiesFileExt = ".properties"
)

// SourceLoader loads property sources into a property set: server.env files,
// bootstrap.properties with its include chain, system properties and
// variables directories. Missing or unreadable sources are logged and
// skipped.
type SourceLoader struct {
	// GOOS selects list separators and placeholder syntax. The host OS is used
	// when empty.
	GOOS string

	// Getenv looks up environment variables. os.Getenv is used when nil.
	Getenv func(string) string

	props  *Properties
	logger pslog.Logger
}

// NewSourceLoader creates new loader filling props.
func NewSourceLoader(props *Properties, logger pslog.Logger) *SourceLoader {
	if logger == nil {
		logger = pslog.NoopLogger()
	}

	return &SourceLoader{
		props:  props,
		logger: logger,
	}
}

// LoadAll loads all sources in precedence order: server.env files, bootstrap
// properties, system properties and variables directories.
func (l *SourceLoader) LoadAll(dirs Dirs, sysProps map[string]string) {
	dirs = dirs.Normalize()

	l.LoadServerEnv(dirs)
	l.LoadBootstrap(dirs.ConfigDir)
	l.LoadSystemProperties(sysProps)
	l.LoadVariables(dirs.ConfigDir)
}

// LoadServerEnv loads <install>/etc/server.env, <user>/shared/server.env and
// <config>/server.env in that order and expands placeholders in the loaded
// values.
func (l *SourceLoader) LoadServerEnv(dirs Dirs) {
	var files []string

	if dirs.InstallDir != "" {
		files = append(files, filepath.Join(dirs.InstallDir, "etc", serverEnvFile))
	}

	if dirs.UserDir != "" {
		files = append(files, filepath.Join(dirs.UserDir, "shared", serverEnvFile))
	}

	if dirs.ConfigDir != "" {
		files = append(files, filepath.Join(dirs.ConfigDir, serverEnvFile))
	}

	for _, file := range files {
		l.loadFile(file, "", parseEnvFile)
	}

	expander := &Expander{GOOS: l.GOOS, Logger: l.logger}
	expander.ExpandAll(l.props.Props)
}

// LoadBootstrap loads <config>/bootstrap.properties and follows the
// bootstrap.include chain. Relative include paths are resolved against the
// config directory. The chain stops at the first file that was visited
// already.
func (l *SourceLoader) LoadBootstrap(configDir string) {
	if configDir == "" {
		return
	}

	path := filepath.Join(configDir, bootstrapFile)
	visited := make(map[string]struct{})

	for path != "" {
		canonical := canonicalPath(path)

		if _, ok := visited[canonical]; ok {
			l.logger.Debug("sources.bootstrap.include_visited", "path", path)
			return
		}

		visited[canonical] = struct{}{}

		props, ok := l.loadFile(path, "", parsePropertiesFile)

		if !ok {
			return
		}

		path = strings.TrimSpace(props[bootstrapInclude])

		if path == "" {
			return
		}

		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir, path)
		}
	}
}

// LoadSystemProperties stores the given properties.
func (l *SourceLoader) LoadSystemProperties(sysProps map[string]string) {
	l.props.SetAll(sysProps)
}

// LoadVariables loads the variables directories. The directory list is taken
// from VARIABLE_SOURCE_DIRS if set, otherwise <config>/variables is used.
// Later directories win on key collisions.
func (l *SourceLoader) LoadVariables(configDir string) {
	for _, dir := range l.VariableDirs(configDir) {
		info, err := os.Stat(dir)

		if err != nil || !info.IsDir() {
			l.logger.Debug("sources.variables.missing_dir", "dir", dir)
			continue
		}

		l.loadVariablesDir(dir, "")
	}
}

// VariableDirs returns the variables directories in load order.
func (l *SourceLoader) VariableDirs(configDir string) []string {
	raw := l.getenv(VariableSourceDirsEnv)

	if strings.TrimSpace(raw) == "" {
		if configDir == "" {
			return nil
		}

		return []string{filepath.Join(configDir, variablesDir)}
	}

	raw = NewResolver(l.props, l.logger).Resolve(raw).Or(raw)
	sep := ":"

	if l.goos() == "windows" {
		sep = ";"
	}

	var dirs []string

	for _, dir := range strings.Split(raw, sep) {
		dir = strings.TrimSpace(dir)

		if dir == "" {
			continue
		}

		dir = filepath.FromSlash(dir)

		if !filepath.IsAbs(dir) && configDir != "" {
			dir = filepath.Join(configDir, dir)
		}

		dirs = append(dirs, dir)
	}

	return dirs
}

func (l *SourceLoader) loadVariablesDir(dir, prefix string) {
	entries, err := os.ReadDir(dir)

	if err != nil {
		l.logger.Warn("sources.variables.unreadable_dir", "dir", dir, "error", err)
		return
	}

	for _, entry := range entries {
		name := entry.Name()

		if strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		info, err := os.Stat(path)

		if err != nil {
			l.logger.Warn("sources.variables.unreadable_file", "path", path, "error", err)
			continue
		}

		if info.IsDir() {
			l.loadVariablesDir(path, prefix+name+"/")
			continue
		}

		if strings.HasSuffix(name, propertiesFileExt) {
			l.loadFile(path, prefix, parsePropertiesFile)
			continue
		}

		data, err := os.ReadFile(path)

		if err != nil {
			l.logger.Warn("sources.variables.unreadable_file", "path", path, "error", err)
			continue
		}

		value := strings.TrimSuffix(string(data), "\n")
		value = strings.TrimSuffix(value, "\r")
		l.props.Set(prefix+name, value)
	}
}

// loadFile loads a property file into the property set and returns the
// properties parsed from it. Reports whether the file was loaded.
func (l *SourceLoader) loadFile(path, prefix string,
	parse func(path string) (map[string]string, error)) (map[string]string, bool) {

	if _, err := os.Stat(path); err != nil {
		l.logger.Debug("sources.file.missing", "path", path)
		return nil, false
	}

	props, err := parse(path)

	if err != nil {
		l.logger.Warn("sources.file.unreadable", "path", path, "error", err)
		return nil, false
	}

	for _, key := range slices.Sorted(maps.Keys(props)) {
		l.props.Set(prefix+key, props[key])
	}

	l.logger.Debug("sources.file.loaded", "path", path, "properties", len(props))

	return props, true
}

func (l *SourceLoader) getenv(key string) string {
	if l.Getenv != nil {
		return l.Getenv(key)
	}

	return os.Getenv(key)
}

func (l *SourceLoader) goos() string {
	if l.GOOS != "" {
		return l.GOOS
	}

	return runtime.GOOS
}

// parseEnvFile parses a server.env file of NAME=value lines.
func parseEnvFile(path string) (map[string]string, error) {
	f, err := ini.LoadSources(
		ini.LoadOptions{
			IgnoreInlineComment:     true,
			SkipUnrecognizableLines: true,
			PreserveSurroundedQuote: true,
			KeyValueDelimiters:      "=",
		},
		path,
	)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	return f.Section("").KeysHash(), nil
}

// parsePropertiesFile parses a Java properties file. Placeholders are kept as
// is.
func parsePropertiesFile(path string) (map[string]string, error) {
	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}

	props, err := loader.LoadFile(path)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	return props.Map(), nil
}

func canonicalPath(path string) string {
	abs := absPath(path)

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}

	return abs
}

// Copyright (c) 2018, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package fileconf loads properties from YAML, JSON and TOML files. Nested
sections are flattened into dotted property names, so that

	http:
	  port: 9080
	  hosts: [a.example.com, b.example.com]

becomes http.port=9080 and http.hosts=a.example.com,b.example.com.
*/
package fileconf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/iph0/merger"
	"gopkg.in/yaml.v3"
)

const (
	errPref = "fileconf"

	// PathEnv lists directories searched for property files.
	PathEnv = "LIBERTYCONF_PATH"

	listSep = ","
)

var (
	parsers = map[string]func(bytes []byte) (any, error){
		"yml":  unmarshalYAML,
		"yaml": unmarshalYAML,
		"json": unmarshalJSON,
		"toml": unmarshalTOML,
	}

	fileExtRe = regexp.MustCompile(`\.([^.]+)$`)
)

// FileProvider loads property files.
type FileProvider struct {
	dirs []string
}

// NewProvider method creates new provider. Relative patterns are searched in
// dirs; if none given, in the directories listed in LIBERTYCONF_PATH, or in
// the current directory.
func NewProvider(dirs ...string) *FileProvider {
	if len(dirs) == 0 {
		if rawDirs := os.Getenv(PathEnv); rawDirs != "" {
			dirs = filepath.SplitList(rawDirs)
		} else {
			dirs = []string{"."}
		}
	}

	return &FileProvider{
		dirs: dirs,
	}
}

// Load method loads files matching the glob pattern and returns flattened
// properties. Files loaded later override earlier ones.
func (p *FileProvider) Load(pattern string) (map[string]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%s: empty pattern specified", errPref)
	}

	dirs := p.dirs

	if filepath.IsAbs(pattern) {
		dirs = []string{""}
	}

	var config any

	for _, dir := range dirs {
		absPattern := filepath.Join(dir, pattern)
		paths, err := filepath.Glob(absPattern)

		if err != nil {
			return nil, fmt.Errorf("%s: %s", errPref, err)
		}

		for _, path := range paths {
			data, err := loadFile(path)

			if err != nil {
				return nil, err
			}

			config = merger.Merge(config, data)
		}
	}

	props := make(map[string]string)
	flatten(props, "", config)

	return props, nil
}

func loadFile(path string) (any, error) {
	matches := fileExtRe.FindStringSubmatch(path)

	if matches == nil {
		return nil, fmt.Errorf("%s: file extension not specified: %s",
			errPref, path)
	}

	ext := strings.ToLower(matches[1])
	parser, ok := parsers[ext]

	if !ok {
		return nil, fmt.Errorf("%s: unknown file extension .%s",
			errPref, ext)
	}

	bytes, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("%s: %s", errPref, err)
	}

	data, err := parser(bytes)

	if err != nil {
		return nil, fmt.Errorf("%s: %s: %s", errPref, path, err)
	}

	return data, nil
}

func flatten(props map[string]string, prefix string, node any) {
	if node == nil {
		return
	}

	value := reflect.ValueOf(node)

	switch value.Kind() {
	case reflect.Map:
		for _, key := range value.MapKeys() {
			name := fmt.Sprintf("%v", key.Interface())

			if prefix != "" {
				name = prefix + "." + name
			}

			flatten(props, name, value.MapIndex(key).Interface())
		}
	case reflect.Slice, reflect.Array:
		items := make([]string, 0, value.Len())

		for i := 0; i < value.Len(); i++ {
			items = append(items, fmt.Sprintf("%v", value.Index(i).Interface()))
		}

		props[prefix] = strings.Join(items, listSep)
	default:
		if prefix != "" {
			props[prefix] = fmt.Sprintf("%v", node)
		}
	}
}

func unmarshalYAML(bytes []byte) (any, error) {
	var data any
	err := yaml.Unmarshal(bytes, &data)

	if err != nil {
		return nil, err
	}

	return data, nil
}

func unmarshalJSON(bytes []byte) (any, error) {
	var data any
	err := json.Unmarshal(bytes, &data)

	if err != nil {
		return nil, err
	}

	return data, nil
}

func unmarshalTOML(bytes []byte) (any, error) {
	var data map[string]any
	err := toml.Unmarshal(bytes, &data)

	if err != nil {
		return nil, err
	}

	return data, nil
}

// Extensions returns the supported file extensions.
func Extensions() []string {
	exts := make([]string, 0, len(parsers))

	for ext := range parsers {
		exts = append(exts, ext)
	}

	slices.Sort(exts)

	return exts
}

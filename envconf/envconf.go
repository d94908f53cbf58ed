// Copyright (c) 2018, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package envconf imports environment variables as properties, so that
configuration attributes can reference them as ${env.NAME}.

	provider := envconf.NewProvider()
	props, err := provider.Load("env:^APP_")
*/
package envconf

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

const (
	providerName = "env"
	errPref      = "envconf"

	// DefaultPrefix is prepended to names of imported variables.
	DefaultPrefix = "env."
)

// EnvProvider type represents environment provider instance.
type EnvProvider struct {
	// Prefix is prepended to variable names.
	Prefix string

	// Environ returns the environment. os.Environ is used when nil.
	Environ func() []string
}

// NewProvider method creates new provider with the default prefix.
func NewProvider() *EnvProvider {
	return &EnvProvider{
		Prefix: DefaultPrefix,
	}
}

// Load method imports environment variables whose names match the pattern.
// The pattern may be prefixed with "env:".
func (p *EnvProvider) Load(pattern string) (map[string]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%s: empty pattern specified", errPref)
	}

	patParsed := strings.SplitN(pattern, ":", 2)
	var reStr string

	if len(patParsed) < 2 {
		reStr = patParsed[0]
	} else if patParsed[0] != "" && patParsed[0] != providerName {
		reStr = pattern
	} else {
		reStr = patParsed[1]
	}

	re, err := regexp.Compile(reStr)

	if err != nil {
		return nil, fmt.Errorf("%s: %s", errPref, err)
	}

	environ := p.Environ

	if environ == nil {
		environ = os.Environ
	}

	props := make(map[string]string)

	for _, pairRaw := range environ() {
		pair := strings.SplitN(pairRaw, "=", 2)

		if len(pair) < 2 || pair[0] == "" {
			continue
		}

		key := pair[0]
		value := pair[1]

		if re.MatchString(key) {
			props[p.Prefix+key] = value
		}
	}

	return props, nil
}

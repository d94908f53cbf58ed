// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package maploader is a document loader for the libertyconf package. It serves
configuration documents from a map. Include locations for this loader are just
keys of the map. For example:

	<include location="map:common.xml"/>
*/
package maploader

import (
	"context"
	"fmt"

	"github.com/iph0/libertyconf"
)

const errPref = "maploader"

// Loader loads configuration documents from a map.
type Loader struct {
	m map[string]string
}

// NewLoader method creates new loader instance.
func NewLoader(m map[string]string) libertyconf.Loader {
	return &Loader{
		m: m,
	}
}

// Load method loads configuration document from a map.
func (l *Loader) Load(ctx context.Context, loc *libertyconf.Locator) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, ok := l.m[loc.Value]

	if !ok {
		return nil, fmt.Errorf("%s: document not found by locator %s", errPref, loc)
	}

	return []byte(doc), nil
}

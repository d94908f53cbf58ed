// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

/*
Package httploader is a document loader for the libertyconf package. It fetches
configuration documents referenced by http and https include locations.

	<include location="https://config.example.com/common.xml"/>
*/
package httploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iph0/libertyconf"
	"pkt.systems/pslog"
)

const (
	errPref = "httploader"

	// MaxDocumentSize limits the size of fetched documents.
	MaxDocumentSize = 16 << 20

	defaultTimeout = 30 * time.Second
)

// Loader fetches configuration documents over HTTP.
type Loader struct {
	client *http.Client
	logger pslog.Logger
}

// Option configures the loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger pslog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader method creates new loader instance. A client with a 30 second
// timeout is used when client is nil.
func NewLoader(client *http.Client, opts ...Option) libertyconf.Loader {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	l := &Loader{
		client: client,
		logger: pslog.NoopLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load method fetches the document.
func (l *Loader) Load(ctx context.Context, loc *libertyconf.Locator) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc.Value, nil)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	req.Header.Set("Accept", "application/xml, text/xml, */*")
	started := time.Now()
	resp, err := l.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status fetching %s: %s", errPref,
			loc.Value, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errPref, err)
	}

	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("%s: document %s exceeds %s", errPref, loc.Value,
			humanize.IBytes(MaxDocumentSize))
	}

	l.logger.Debug("httploader.fetched",
		"url", loc.Value,
		"size", humanize.Bytes(uint64(len(data))),
		"elapsed", time.Since(started).String(),
	)

	return data, nil
}

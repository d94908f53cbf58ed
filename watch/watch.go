// Copyright (c) 2024, Eugene Ponizovsky, <ponizovsky@gmail.com>. All rights
// reserved. Use of this source code is governed by a MIT License that can
// be found in the LICENSE file.

// Package watch runs a task whenever server configuration files change. File
// system events are debounced, and runs are executed one at a time: a request
// that arrives while a run is in progress waits, and a newer request replaces
// a waiting one.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/xid"
	"pkt.systems/pslog"
)

// DefaultDebounce is the quiet period after the last file system event before
// a run is requested.
const DefaultDebounce = 500 * time.Millisecond

// RunFunc is the task executed on changes. reason describes what triggered
// the run.
type RunFunc func(ctx context.Context, reason string) error

// Config is a structure with configuration parameters for the watcher.
type Config struct {
	// Paths lists files and directories to watch. Directories are watched
	// recursively. Missing paths are watched for creation.
	Paths []string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// InitialRun requests a run as soon as the watcher starts.
	InitialRun bool

	Run    RunFunc
	Logger pslog.Logger
}

// Watcher watches configuration paths and executes runs.
type Watcher struct {
	cfg      Config
	logger   pslog.Logger
	requests chan string
	mu       sync.Mutex
}

// New creates new watcher instance.
func New(cfg Config) (*Watcher, error) {
	if cfg.Run == nil {
		return nil, errors.New("watch: run function not specified")
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	logger := cfg.Logger

	if logger == nil {
		logger = pslog.NoopLogger()
	}

	return &Watcher{
		cfg:      cfg,
		logger:   logger,
		requests: make(chan string, 1),
	}, nil
}

// Trigger requests a run. It never blocks; a request that has not started yet
// is replaced.
func (w *Watcher) Trigger(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case old := <-w.requests:
		w.logger.Debug("watch.request.superseded", "reason", old)
	default:
	}

	w.requests <- reason
}

// Run watches the configured paths until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()

	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	defer fsw.Close()

	filters := w.addPaths(fsw)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()

	if w.cfg.InitialRun {
		w.Trigger("initial")
	}

	err = w.loop(ctx, fsw, filters)
	wg.Wait()

	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher,
	filters map[string]map[string]struct{}) error {

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	var pending string

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if !relevant(event, filters) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addDir(fsw, event.Name)
				}
			}

			w.logger.Debug("watch.event", "path", event.Name, "op", event.Op.String())
			pending = event.Name
			timer.Reset(w.cfg.Debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watch.error", "error", err)
		case <-timer.C:
			w.Trigger("changed: " + pending)
		}
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-w.requests:
			runID := xid.New().String()
			started := time.Now()
			w.logger.Info("watch.run.start", "run_id", runID, "reason", reason)

			if err := w.cfg.Run(ctx, reason); err != nil {
				w.logger.Error("watch.run.failed", "run_id", runID, "error", err)
				continue
			}

			w.logger.Info("watch.run.done",
				"run_id", runID, "elapsed", time.Since(started).String())
		}
	}
}

// addPaths registers watches. It returns per-directory file name filters; a
// nil filter accepts every file of the directory. A missing path is watched
// through its nearest existing ancestor, so its creation triggers a run.
func (w *Watcher) addPaths(fsw *fsnotify.Watcher) map[string]map[string]struct{} {
	filters := make(map[string]map[string]struct{})

	for _, path := range w.cfg.Paths {
		path = filepath.Clean(path)
		info, err := os.Stat(path)

		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("watch.path.missing", "path", path)
			w.addMissing(fsw, filters, path)

			continue
		}

		if err != nil {
			w.logger.Warn("watch.path.failed", "path", path, "error", err)
			continue
		}

		if info.IsDir() {
			for _, dir := range w.addDir(fsw, path) {
				filters[dir] = nil
			}

			continue
		}

		w.addEntry(fsw, filters, filepath.Dir(path), filepath.Base(path))
	}

	return filters
}

// addMissing watches the nearest existing ancestor of path for creation of
// the first missing path element.
func (w *Watcher) addMissing(fsw *fsnotify.Watcher,
	filters map[string]map[string]struct{}, path string) {

	for {
		parent := filepath.Dir(path)

		if parent == path {
			return
		}

		if info, err := os.Stat(parent); err == nil {
			if info.IsDir() {
				w.addEntry(fsw, filters, parent, filepath.Base(path))
			}

			return
		}

		path = parent
	}
}

// addEntry watches dir for changes of the entry with the given name.
func (w *Watcher) addEntry(fsw *fsnotify.Watcher,
	filters map[string]map[string]struct{}, dir, name string) {

	filter, ok := filters[dir]

	if ok && filter == nil {
		return
	}

	if !ok {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("watch.path.failed", "path", dir, "error", err)
			return
		}

		filter = make(map[string]struct{})
		filters[dir] = filter
	}

	filter[name] = struct{}{}
}

// addDir watches dir and its subdirectories and returns the added ones.
func (w *Watcher) addDir(fsw *fsnotify.Watcher, dir string) []string {
	var added []string

	err := filepath.WalkDir(dir,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}

			if !d.IsDir() {
				return nil
			}

			if err := fsw.Add(path); err != nil {
				w.logger.Warn("watch.path.failed", "path", path, "error", err)
				return nil
			}

			added = append(added, path)

			return nil
		},
	)

	if err != nil {
		w.logger.Warn("watch.path.failed", "path", dir, "error", err)
	}

	return added
}

func relevant(event fsnotify.Event, filters map[string]map[string]struct{}) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {

		return false
	}

	filter, ok := filters[filepath.Dir(event.Name)]

	if !ok || filter == nil {
		return true
	}

	_, ok = filter[filepath.Base(event.Name)]

	return ok
}

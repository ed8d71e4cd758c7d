// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
)

// FakeWatcher implements an in-memory Watcher.  Events are injected by the
// test rather than found on disk.
type FakeWatcher struct {
	watchesMu sync.RWMutex
	watches   map[string]map[Processor]struct{}
	isClosed  bool
}

// NewFakeWatcher returns a fake Watcher for use in tests.
func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{
		watches: make(map[string]map[Processor]struct{})}
}

// Observe registers p for events on the file name.
func (w *FakeWatcher) Observe(name string, p Processor) error {
	name = filepath.Clean(name)
	w.watchesMu.Lock()
	defer w.watchesMu.Unlock()
	_, ok := w.watches[name]
	if !ok {
		w.watches[name] = make(map[Processor]struct{})
	}
	w.watches[name][p] = struct{}{}
	return nil
}

// Close closes down the FakeWatcher
func (w *FakeWatcher) Close() error {
	w.watchesMu.Lock()
	w.isClosed = true
	w.watchesMu.Unlock()
	return nil
}

// Unobserve removes an observer from the FakeWatcher.  If it's the last
// observer for a name, the name is no longer watched.
func (w *FakeWatcher) Unobserve(name string, p Processor) error {
	name = filepath.Clean(name)
	w.watchesMu.Lock()
	defer w.watchesMu.Unlock()

	_, ok := w.watches[name]
	if !ok {
		return nil
	}
	delete(w.watches[name], p)
	if len(w.watches[name]) == 0 {
		delete(w.watches, name)
	}
	return nil
}

// IsWatching reports whether any processor observes name.
func (w *FakeWatcher) IsWatching(name string) bool {
	w.watchesMu.RLock()
	defer w.watchesMu.RUnlock()
	_, ok := w.watches[filepath.Clean(name)]
	return ok
}

// Inject sends e to the processors observing its path, as if the file had
// changed on disk.
func (w *FakeWatcher) Inject(e Event) {
	e.Pathname = filepath.Clean(e.Pathname)
	w.watchesMu.RLock()
	closed := w.isClosed
	var ps []Processor
	for p := range w.watches[e.Pathname] {
		ps = append(ps, p)
	}
	w.watchesMu.RUnlock()
	if closed {
		glog.Warningf("watcher closed, dropping %s for %s", e.Op, e.Pathname)
		return
	}
	if len(ps) == 0 {
		glog.Warningf("not watching %s", e.Pathname)
		return
	}
	for _, p := range ps {
		p.ProcessFileEvent(context.Background(), e)
	}
}

// InjectCreate lets a test inject a fake creation event.
func (w *FakeWatcher) InjectCreate(name string) { w.Inject(Event{Create, name}) }

// InjectUpdate lets a test inject a fake update event.
func (w *FakeWatcher) InjectUpdate(name string) { w.Inject(Event{Update, name}) }

// InjectDelete lets a test inject a fake deletion event.
func (w *FakeWatcher) InjectDelete(name string) { w.Inject(Event{Delete, name}) }

// Poll does nothing in the fake watcher; events are injected.
func (w *FakeWatcher) Poll() {
}

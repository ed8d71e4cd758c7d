// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"expvar"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	errorCount = expvar.NewInt("source_watcher_errors_total")
)

type watch struct {
	ps []Processor

	exists  bool
	modTime time.Time
	size    int64

	pending *time.Timer // Fires the debounced event.
	gen     int         // Generation of pending; stale timers do not fire.
	op      OpType      // Operation of the pending event, 0 if none.
}

// SourceWatcher implements a Watcher for program source files on a real
// filesystem.  Each observed file's directory is watched with fsnotify, so
// that editors which replace a file by renaming over it are still seen.
// Events are delivered to processors one at a time.
type SourceWatcher struct {
	watcher    *fsnotify.Watcher
	pollTicker *time.Ticker
	debounce   time.Duration

	watchedMu sync.Mutex // protects `watched' and `dirs'
	watched   map[string]*watch
	dirs      map[string]int // Number of watched files in each directory.

	sendMu sync.Mutex // serialises delivery to processors

	stopTicks chan struct{} // Channel to notify ticker to stop.

	ticksDone  chan struct{} // Channel to notify when the ticks handler is done.
	eventsDone chan struct{} // Channel to notify when the events handler is done.

	closeOnce sync.Once
}

// Option configures a SourceWatcher.
type Option func(*SourceWatcher) error

// PollInterval makes the watcher also stat every observed file each d.
func PollInterval(d time.Duration) Option {
	return func(w *SourceWatcher) error {
		if d < 0 {
			return errors.Errorf("poll interval %s must not be negative", d)
		}
		if d > 0 {
			w.pollTicker = time.NewTicker(d)
		}
		return nil
	}
}

// Debounce delays each event until the file has been quiet for d, and sends
// only the last of a burst.  Editors often save a file in several writes.
func Debounce(d time.Duration) Option {
	return func(w *SourceWatcher) error {
		w.debounce = d
		return nil
	}
}

// DisableFsnotify leaves the watcher to polling only.  Without a
// PollInterval, events are only found by calling Poll.
func DisableFsnotify() Option {
	return func(w *SourceWatcher) error {
		if w.watcher != nil {
			err := w.watcher.Close()
			w.watcher = nil
			return err
		}
		return nil
	}
}

// NewSourceWatcher returns a new SourceWatcher, or returns an error.
func NewSourceWatcher(options ...Option) (*SourceWatcher, error) {
	w := &SourceWatcher{
		watched: make(map[string]*watch),
		dirs:    make(map[string]int),
	}
	f, err := fsnotify.NewWatcher()
	if err != nil {
		glog.Warningf("fsnotify unavailable, falling back to polling: %s", err)
	}
	w.watcher = f
	for _, opt := range options {
		if err := opt(w); err != nil {
			if w.pollTicker != nil {
				w.pollTicker.Stop()
			}
			if w.watcher != nil {
				w.watcher.Close()
			}
			return nil, err
		}
	}
	if w.watcher == nil && w.pollTicker == nil && err != nil {
		glog.Infof("fsnotify failed and no poll interval specified; defaulting to 250ms poll")
		w.pollTicker = time.NewTicker(250 * time.Millisecond)
	}
	if w.pollTicker != nil {
		w.stopTicks = make(chan struct{})
		w.ticksDone = make(chan struct{})
		go w.runTicks()
	}
	if w.watcher != nil {
		w.eventsDone = make(chan struct{})
		go w.runEvents()
	}
	return w, nil
}

// notify queues an event for the watched file path, delivering it now
// unless the watcher debounces.
func (w *SourceWatcher) notify(path string, op OpType) {
	w.watchedMu.Lock()
	watched, ok := w.watched[path]
	if !ok {
		w.watchedMu.Unlock()
		glog.V(2).Infof("No watch for path %q", path)
		return
	}
	refresh(watched, path)
	if w.debounce <= 0 {
		ps := append([]Processor(nil), watched.ps...)
		w.watchedMu.Unlock()
		w.dispatch(ps, Event{op, path})
		return
	}
	watched.op = op
	// A timer that has already fired may have its fire waiting on
	// watchedMu; it must not be restarted, so start a new one.
	if watched.pending == nil || !watched.pending.Stop() {
		watched.gen++
		gen := watched.gen
		watched.pending = time.AfterFunc(w.debounce, func() { w.fire(path, gen) })
	} else {
		watched.pending.Reset(w.debounce)
	}
	w.watchedMu.Unlock()
}

// fire delivers the pending event for path, unless the timer of generation
// gen has since been replaced.
func (w *SourceWatcher) fire(path string, gen int) {
	w.watchedMu.Lock()
	watched, ok := w.watched[path]
	if !ok || watched.op == 0 || watched.gen != gen {
		w.watchedMu.Unlock()
		return
	}
	e := Event{watched.op, path}
	watched.op = 0
	watched.pending = nil
	ps := append([]Processor(nil), watched.ps...)
	w.watchedMu.Unlock()
	w.dispatch(ps, e)
}

func (w *SourceWatcher) dispatch(ps []Processor, e Event) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	glog.V(2).Infof("sending %s for %s", e.Op, e.Pathname)
	for _, p := range ps {
		p.ProcessFileEvent(context.Background(), e)
	}
}

// refresh records the current state of the file at path.
func refresh(watched *watch, path string) {
	fi, err := os.Stat(path)
	if err != nil {
		watched.exists = false
		return
	}
	watched.exists = true
	watched.modTime = fi.ModTime()
	watched.size = fi.Size()
}

func (w *SourceWatcher) runTicks() {
	defer close(w.ticksDone)

	for {
		select {
		case <-w.pollTicker.C:
			w.Poll()
		case <-w.stopTicks:
			w.pollTicker.Stop()
			return
		}
	}
}

// Poll stats every observed file and sends events for those that appeared,
// changed or disappeared since they were last seen.
func (w *SourceWatcher) Poll() {
	var events []Event
	w.watchedMu.Lock()
	for path, watched := range w.watched {
		fi, err := os.Stat(path)
		switch {
		case err != nil && watched.exists:
			events = append(events, Event{Delete, path})
		case err != nil:
			glog.V(2).Infof("%s does not exist yet", path)
		case !watched.exists:
			events = append(events, Event{Create, path})
		case fi.ModTime().After(watched.modTime) || fi.Size() != watched.size:
			events = append(events, Event{Update, path})
		default:
			glog.V(2).Infof("No modtime change for %s, no send", path)
		}
	}
	w.watchedMu.Unlock()
	sort.Slice(events, func(i, j int) bool { return events[i].Pathname < events[j].Pathname })
	for _, e := range events {
		w.notify(e.Pathname, e.Op)
	}
}

// runEvents assumes that w.watcher is not nil
func (w *SourceWatcher) runEvents() {
	defer close(w.eventsDone)

	// Suck out errors and dump them to the error log.
	go func() {
		for err := range w.watcher.Errors {
			errorCount.Add(1)
			glog.Errorf("fsnotify error: %s\n", err)
		}
	}()

	for e := range w.watcher.Events {
		glog.V(2).Infof("watcher event %v", e)
		switch {
		case e.Op&fsnotify.Create == fsnotify.Create:
			w.notify(e.Name, Create)
		case e.Op&fsnotify.Write == fsnotify.Write:
			w.notify(e.Name, Update)
		case e.Op&fsnotify.Remove == fsnotify.Remove,
			e.Op&fsnotify.Rename == fsnotify.Rename:
			// Rename is only issued on the original file path; the new name receives a Create event
			w.notify(e.Name, Delete)
		default:
			glog.V(2).Infof("ignoring %v", e)
		}
	}
	glog.Infof("Shutting down source watcher.")
}

// Close shuts down the SourceWatcher.  It is safe to call this from multiple clients.
func (w *SourceWatcher) Close() (err error) {
	w.closeOnce.Do(func() {
		if w.watcher != nil {
			err = w.watcher.Close()
			<-w.eventsDone
		}
		if w.pollTicker != nil && w.stopTicks != nil {
			close(w.stopTicks)
			<-w.ticksDone
		}
		w.watchedMu.Lock()
		for _, watched := range w.watched {
			if watched.pending != nil {
				watched.pending.Stop()
			}
		}
		w.watchedMu.Unlock()
	})
	return err
}

// Observe adds a file to the list of watched items.  The file need not exist
// yet.  Events for the file are sent to processor.
func (w *SourceWatcher) Observe(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to lookup absolutepath of %q", path)
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	watched, ok := w.watched[absPath]
	if !ok {
		if err := w.addDirLocked(filepath.Dir(absPath)); err != nil {
			return err
		}
		watched = &watch{}
		refresh(watched, absPath)
		w.watched[absPath] = watched
		glog.Infof("Watching %s", absPath)
	}
	for _, p := range watched.ps {
		if p == processor {
			return nil
		}
	}
	watched.ps = append(watched.ps, processor)
	return nil
}

// Unobserve removes processor from the observers of path.  The file is no
// longer watched once it has no observers.
func (w *SourceWatcher) Unobserve(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to lookup absolutepath of %q", path)
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	watched, ok := w.watched[absPath]
	if !ok {
		return nil
	}
	for i, p := range watched.ps {
		if p == processor {
			watched.ps = append(watched.ps[:i], watched.ps[i+1:]...)
			break
		}
	}
	if len(watched.ps) > 0 {
		return nil
	}
	if watched.pending != nil {
		watched.pending.Stop()
	}
	delete(w.watched, absPath)
	return w.removeDirLocked(filepath.Dir(absPath))
}

func (w *SourceWatcher) addDirLocked(dir string) error {
	w.dirs[dir]++
	if w.dirs[dir] > 1 || w.watcher == nil {
		return nil
	}
	glog.V(2).Infof("Adding a watch on resolved path %q", dir)
	if err := w.watcher.Add(dir); err != nil {
		if os.IsPermission(err) {
			glog.V(2).Infof("Skipping permission denied error on adding a watch.")
			return nil
		}
		w.dirs[dir]--
		return errors.Wrapf(err, "Failed to create a new watch on %q", dir)
	}
	return nil
}

func (w *SourceWatcher) removeDirLocked(dir string) error {
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	if w.watcher != nil {
		return w.watcher.Remove(dir)
	}
	return nil
}

// IsWatching indicates if the file at path is being watched.
func (w *SourceWatcher) IsWatching(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		glog.V(2).Infof("Couldn't resolve path %q: %s", absPath, err)
		return false
	}
	w.watchedMu.Lock()
	_, ok := w.watched[absPath]
	w.watchedMu.Unlock()
	return ok
}

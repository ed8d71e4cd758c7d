// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/pl0/internal/testutil"
)

type testStubProcessor struct {
	mu     sync.Mutex
	Events []Event
}

func (t *testStubProcessor) ProcessFileEvent(ctx context.Context, e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Events = append(t.Events, e)
}

func (t *testStubProcessor) events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.Events...)
}

func newStubProcessor() *testStubProcessor {
	return &testStubProcessor{Events: make([]Event, 0)}
}

var _ Watcher = (*SourceWatcher)(nil)
var _ Watcher = (*FakeWatcher)(nil)

// touch sets the modification time of path into the future so that a poll
// sees a change even on filesystems with coarse timestamps.
func touch(t *testing.T, path string, d time.Duration) {
	t.Helper()
	ts := time.Now().Add(d)
	testutil.FatalIfErr(t, os.Chtimes(path, ts, ts))
}

func TestSourceWatcherPoll(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	w, err := NewSourceWatcher(DisableFsnotify())
	testutil.FatalIfErr(t, err)
	defer func() {
		testutil.FatalIfErr(t, w.Close())
	}()

	s := newStubProcessor()
	prog := filepath.Join(workdir, "prog.pl0")
	testutil.FatalIfErr(t, w.Observe(prog, s))
	if !w.IsWatching(prog) {
		t.Errorf("not watching %s", prog)
	}

	// Nothing there yet.
	w.Poll()
	testutil.ExpectNoDiff(t, []Event{}, s.events(), testutil.EquateEmpty())

	testutil.WriteFile(t, workdir, "prog.pl0", "write 1")
	w.Poll()
	expected := []Event{{Create, prog}}
	testutil.ExpectNoDiff(t, expected, s.events())

	// Unchanged.
	w.Poll()
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.WriteFile(t, workdir, "prog.pl0", "write 12")
	touch(t, prog, time.Minute)
	w.Poll()
	expected = append(expected, Event{Update, prog})
	testutil.ExpectNoDiff(t, expected, s.events())

	// Other files in the directory are ignored.
	testutil.WriteFile(t, workdir, "other.pl0", "write 2")
	w.Poll()
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.FatalIfErr(t, os.Remove(prog))
	w.Poll()
	expected = append(expected, Event{Delete, prog})
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.FatalIfErr(t, w.Unobserve(prog, s))
	if w.IsWatching(prog) {
		t.Errorf("still watching %s", prog)
	}
	testutil.WriteFile(t, workdir, "prog.pl0", "write 3")
	w.Poll()
	testutil.ExpectNoDiff(t, expected, s.events())
}

func TestSourceWatcherDebounce(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	w, err := NewSourceWatcher(DisableFsnotify(), Debounce(50*time.Millisecond))
	testutil.FatalIfErr(t, err)
	defer func() {
		testutil.FatalIfErr(t, w.Close())
	}()

	s := newStubProcessor()
	prog := testutil.WriteFile(t, workdir, "prog.pl0", "write 1")
	testutil.FatalIfErr(t, w.Observe(prog, s))

	// A burst of changes is sent as one event.
	for i := 1; i <= 3; i++ {
		testutil.WriteFile(t, workdir, "prog.pl0", "write 1"+string(rune('0'+i)))
		touch(t, prog, time.Duration(i)*time.Minute)
		w.Poll()
	}
	ok, err := testutil.DoOrTimeout(func() (bool, error) {
		return len(s.events()) > 0, nil
	}, 5*time.Second, 10*time.Millisecond)
	testutil.FatalIfErr(t, err)
	if !ok {
		t.Fatal("no event after debounce")
	}
	time.Sleep(100 * time.Millisecond)
	testutil.ExpectNoDiff(t, []Event{{Update, prog}}, s.events())
}

func TestSourceWatcherDebounceStaleTimer(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	w, err := NewSourceWatcher(DisableFsnotify(), Debounce(time.Hour))
	testutil.FatalIfErr(t, err)
	defer func() {
		testutil.FatalIfErr(t, w.Close())
	}()

	s := newStubProcessor()
	prog, err := filepath.Abs(testutil.WriteFile(t, workdir, "prog.pl0", "write 1"))
	testutil.FatalIfErr(t, err)
	testutil.FatalIfErr(t, w.Observe(prog, s))

	w.notify(prog, Update)
	// The first timer expires, but its callback has not yet run when the
	// next change arrives.
	w.watchedMu.Lock()
	stale := w.watched[prog].gen
	w.watched[prog].pending.Stop()
	w.watchedMu.Unlock()
	w.notify(prog, Update)

	w.fire(prog, stale)
	testutil.ExpectNoDiff(t, []Event{}, s.events(), testutil.EquateEmpty())

	w.watchedMu.Lock()
	current := w.watched[prog].gen
	w.watchedMu.Unlock()
	if current == stale {
		t.Fatalf("second change reused timer generation %d", stale)
	}
	w.fire(prog, current)
	testutil.ExpectNoDiff(t, []Event{{Update, prog}}, s.events())
}

func TestSourceWatcherFsnotify(t *testing.T) {
	testutil.SkipIfShort(t)
	workdir := testutil.TestTempDir(t)
	w, err := NewSourceWatcher()
	testutil.FatalIfErr(t, err)
	defer func() {
		testutil.FatalIfErr(t, w.Close())
	}()

	s := newStubProcessor()
	prog := testutil.WriteFile(t, workdir, "prog.pl0", "write 1")
	testutil.FatalIfErr(t, w.Observe(prog, s))
	testutil.WriteFile(t, workdir, "prog.pl0", "write 2")

	ok, err := testutil.DoOrTimeout(func() (bool, error) {
		for _, e := range s.events() {
			if e.Pathname == prog && (e.Op == Update || e.Op == Create) {
				return true, nil
			}
		}
		return false, nil
	}, 10*time.Second, 10*time.Millisecond)
	testutil.FatalIfErr(t, err)
	if !ok {
		t.Errorf("no update event for %s, got %v", prog, s.events())
	}
}

func TestNegativePollInterval(t *testing.T) {
	_, err := NewSourceWatcher(PollInterval(-time.Second))
	testutil.ExpectErr(t, err)
}

func TestFakeWatcher(t *testing.T) {
	w := NewFakeWatcher()
	s := newStubProcessor()
	testutil.FatalIfErr(t, w.Observe("progs/a.pl0", s))
	if !w.IsWatching("progs/./a.pl0") {
		t.Error("not watching progs/a.pl0")
	}

	w.InjectCreate("progs/a.pl0")
	w.InjectUpdate("progs/a.pl0")
	w.InjectUpdate("progs/b.pl0")
	w.InjectDelete("progs/a.pl0")
	expected := []Event{
		{Create, "progs/a.pl0"},
		{Update, "progs/a.pl0"},
		{Delete, "progs/a.pl0"},
	}
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.FatalIfErr(t, w.Unobserve("progs/a.pl0", s))
	if w.IsWatching("progs/a.pl0") {
		t.Error("still watching progs/a.pl0")
	}
	w.InjectUpdate("progs/a.pl0")
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.FatalIfErr(t, w.Observe("progs/a.pl0", s))
	testutil.FatalIfErr(t, w.Close())
	w.InjectUpdate("progs/a.pl0")
	testutil.ExpectNoDiff(t, expected, s.events())
}

func TestOpTypeString(t *testing.T) {
	for op, want := range map[OpType]string{Create: "Create", Update: "Update", Delete: "Delete", OpType(9): "OpType(9)"} {
		if got := op.String(); got != want {
			t.Errorf("%d: got %q, want %q", int(op), got, want)
		}
	}
}

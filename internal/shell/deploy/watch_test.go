package deploy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/dploy/internal/core/domain"
	"github.com/artpar/dploy/internal/shell/watcher"
)

// fakeSource is a watcher.Source fed by the test.
type fakeSource struct {
	events chan []watcher.Event
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan []watcher.Event)}
}

func (s *fakeSource) Events() <-chan []watcher.Event { return s.events }
func (s *fakeSource) Close() error                   { s.closed = true; return nil }

// fakeClock is advanced by the test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	writeBatch  = []watcher.Event{{Path: "main.go", Op: fsnotify.Write}}
	createBatch = []watcher.Event{{Path: "new.go", Op: fsnotify.Create}}
)

func countCalls(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}

// =============================================================================
// ShouldRebuild Tests
// =============================================================================

func TestShouldRebuild(t *testing.T) {
	last := time.Unix(1000, 0)
	cooldown := 3 * time.Second

	tests := []struct {
		name  string
		batch []watcher.Event
		now   time.Time
		want  bool
	}{
		{"modify after cooldown", writeBatch, last.Add(3 * time.Second), true},
		{"modify within cooldown", writeBatch, last.Add(2 * time.Second), false},
		{"create only", createBatch, last.Add(time.Minute), false},
		{"empty batch", nil, last.Add(time.Minute), false},
		{"mixed batch", append(createBatch, writeBatch...), last.Add(time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRebuild(tt.batch, last, tt.now, cooldown))
		})
	}
}

// =============================================================================
// Watch Tests
// =============================================================================

type watchRun struct {
	source   *fakeSource
	clock    *fakeClock
	shutdown chan struct{}
	done     chan error
}

func startWatch(t *testing.T, f *fixture) *watchRun {
	t.Helper()
	w := &watchRun{
		source:   newFakeSource(),
		clock:    &fakeClock{now: time.Unix(1000, 0)},
		shutdown: make(chan struct{}, 1),
		done:     make(chan error, 1),
	}
	go func() {
		w.done <- f.deployer.Watch(context.Background(), WatchOptions{
			NewSource: func([]string) (watcher.Source, error) { return w.source, nil },
			Shutdown:  w.shutdown,
			Now:       w.clock.Now,
		})
	}()
	return w
}

// send delivers a batch and waits until the loop has taken it.
func (w *watchRun) send(t *testing.T, batch []watcher.Event) {
	t.Helper()
	select {
	case w.source.events <- batch:
	case err := <-w.done:
		t.Fatalf("watch ended early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not take the batch")
	}
}

// ready waits until the initial deploy is done and the loop is receiving.
func (w *watchRun) ready(t *testing.T) {
	t.Helper()
	w.send(t, createBatch)
}

func (w *watchRun) stop(t *testing.T) error {
	t.Helper()
	w.shutdown <- struct{}{}
	select {
	case err := <-w.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not shut down")
		return nil
	}
}

func TestWatch_NoPaths(t *testing.T) {
	cfg := demoConfig(t)
	cfg.Watch = nil
	f := newFixture(t, domain.Command{Kind: domain.CommandRun, Watch: true}, cfg)

	err := f.deployer.Watch(context.Background(), WatchOptions{})

	assert.ErrorIs(t, err, ErrNoWatchPaths)
	assert.Empty(t, f.client.Calls(), "no side effects before the precondition")
}

func TestWatch_RebuildsAppOnChange(t *testing.T) {
	f := newFixture(t, domain.Command{Kind: domain.CommandRun, Watch: true}, demoConfig(t, "postgres"))
	w := startWatch(t, f)
	w.ready(t)

	w.clock.Advance(5 * time.Second)
	w.send(t, writeBatch)
	// A second send only returns once the first batch has been handled.
	w.send(t, createBatch)

	require.NoError(t, w.stop(t))

	calls := f.client.Calls()
	assert.Equal(t, 2, countCalls(calls, "build demo_demo_dev:latest"))
	assert.Equal(t, 1, countCalls(calls, "pull postgres:latest"), "dependencies are not redeployed")
	assert.True(t, w.source.closed)
}

func TestWatch_Cooldown(t *testing.T) {
	f := newFixture(t, domain.Command{Kind: domain.CommandRun, Watch: true}, demoConfig(t))
	w := startWatch(t, f)
	w.ready(t)

	w.clock.Advance(time.Second)
	w.send(t, writeBatch)
	w.send(t, createBatch)

	require.NoError(t, w.stop(t))

	assert.Equal(t, 1, countCalls(f.client.Calls(), "build demo_demo_dev:latest"), "only the initial build")
}

func TestWatch_CooldownAfterRebuild(t *testing.T) {
	f := newFixture(t, domain.Command{Kind: domain.CommandRun, Watch: true}, demoConfig(t))
	w := startWatch(t, f)
	w.ready(t)
	builds := func() int { return countCalls(f.client.Calls(), "build demo_demo_dev:latest") }

	w.clock.Advance(5 * time.Second)
	w.send(t, writeBatch)
	w.send(t, createBatch)
	require.Equal(t, 2, builds())

	// Two modifications inside the window of the rebuild.
	w.clock.Advance(time.Second)
	w.send(t, writeBatch)
	w.clock.Advance(time.Second)
	w.send(t, writeBatch)
	w.send(t, createBatch)
	assert.Equal(t, 2, builds(), "changes within the cooldown are ignored")

	// The window is measured from the rebuild, not from the ignored batches.
	w.clock.Advance(2 * time.Second)
	w.send(t, writeBatch)
	w.send(t, createBatch)

	require.NoError(t, w.stop(t))
	assert.Equal(t, 3, builds())
}

func TestWatch_IgnoresNonModifications(t *testing.T) {
	f := newFixture(t, domain.Command{Kind: domain.CommandRun, Watch: true}, demoConfig(t))
	w := startWatch(t, f)
	w.ready(t)

	w.clock.Advance(time.Minute)
	w.send(t, createBatch)
	w.send(t, createBatch)

	require.NoError(t, w.stop(t))

	assert.Equal(t, 1, countCalls(f.client.Calls(), "build demo_demo_dev:latest"))
}

func TestWatch_RestartsLogFollower(t *testing.T) {
	f := newFixture(t, domain.Command{Kind: domain.CommandRun, Watch: true}, demoConfig(t))
	f.client.logs = "listening\n"
	w := startWatch(t, f)
	w.ready(t)

	w.clock.Advance(5 * time.Second)
	w.send(t, writeBatch)
	w.send(t, createBatch)

	require.NoError(t, w.stop(t))

	assert.Equal(t, 2, countCalls(f.client.Calls(), "logs demo_demo_dev"))
	assert.GreaterOrEqual(t, strings.Count(f.stdout.String(), "listening"), 1)
}

func TestWatch_RebuildFailureEndsSession(t *testing.T) {
	f := newFixture(t, domain.Command{Kind: domain.CommandRun, Watch: true}, demoConfig(t))
	w := startWatch(t, f)
	w.ready(t)

	w.clock.Advance(5 * time.Second)
	f.client.mu.Lock()
	f.client.buildErr = errors.New("compile error")
	f.client.mu.Unlock()
	w.send(t, writeBatch)

	select {
	case err := <-w.done:
		assert.ErrorContains(t, err, "compile error")
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not end")
	}
}

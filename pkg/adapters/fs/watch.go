package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/notenest/pkg/core"
)

const watchBuffer = 100

// Watch reports changes made to the table directory by other processes.
// pattern is a doublestar glob matched against the decimal note id ("*" or
// "" for every note). The channel is closed when ctx is done.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	events := make(chan core.Event, watchBuffer)
	w := newWatchWorker(r, pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := w.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		r.config.Logger.Error("watcher shutdown failed", "error", err)
	}))

	return events, nil
}

// addWatches subscribes the watcher to the table directory.
func (r *Repository) addWatches(watcher *fsnotify.Watcher) error {
	if err := watcher.Add(r.tableDir()); err != nil {
		return fmt.Errorf("watch %s: %w", r.tableDir(), err)
	}
	return nil
}

// shouldIgnore filters out temp files, foreign files, and ids outside pattern.
func (r *Repository) shouldIgnore(event fsnotify.Event, pattern string) bool {
	if filepath.Dir(event.Name) != r.tableDir() {
		return true
	}
	id, _, ok := r.parseID(event.Name)
	if !ok {
		return true
	}
	match, err := doublestar.Match(pattern, strconv.FormatInt(id, 10))
	return err != nil || !match
}

func (r *Repository) mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return ""
}

func (r *Repository) resolveID(path string) (int64, error) {
	id, _, ok := r.parseID(path)
	if !ok {
		return 0, fmt.Errorf("not a note record: %s", filepath.Base(path))
	}
	return id, nil
}

// debouncer coalesces bursts of events for the same note. Atomic writes
// produce a create or rename per save, so without it a single save could be
// reported more than once.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[int64]*pendingEvent
	stopped bool
	wg      sync.WaitGroup
}

type pendingEvent struct {
	timer *time.Timer
	event core.Event
	emit  func(core.Event)
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[int64]*pendingEvent)}
}

// add schedules emit for e, replacing any event pending for the same id.
// A create followed by modifications is still reported as a create.
func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[e.ID]; ok {
		if p.event.Type == core.EventCreate && e.Type == core.EventModify {
			e.Type = core.EventCreate
		}
		p.event = e
		p.emit = emit
		if p.timer.Stop() {
			p.timer.Reset(d.delay)
			return
		}
	}

	p := &pendingEvent{event: e, emit: emit}
	d.pending[e.ID] = p
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.pending[e.ID] == p {
			delete(d.pending, e.ID)
		}
		ev, fn := p.event, p.emit
		d.mu.Unlock()
		fn(ev)
	})
}

// stopAndWait drops pending events and waits for in-flight emits, up to
// timeout.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

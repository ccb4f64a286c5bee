// Package watcher wraps OS file-change notifications into normalised,
// debounced Candidates (C4): one settled event per path after a burst of
// noisy filesystem activity quiets down, with a non-destructive lock
// probe before the candidate is handed to the pipeline.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind is the normalised event kind a Watcher reports.
type Kind string

const (
	Created  Kind = "Created"
	Modified Kind = "Modified"
	Deleted  Kind = "Deleted"
	Renamed  Kind = "Renamed"
)

// Event is a normalised OS file-change notification.
type Event struct {
	Path       string
	Kind       Kind
	OccurredAt time.Time
	OldPath    string
}

// Candidate is what the debounce queue emits once a path has settled.
type Candidate struct {
	Path       string
	Kind       Kind
	DetectedAt time.Time
	ReadyAt    time.Time
	IsFailed   bool
	Reason     string
}

const (
	defaultSettleDelay  = 500 * time.Millisecond
	lockProbeMaxRetries = 5
)

// lockProbeBackoff is the retry ladder for the non-destructive
// open-for-read lock probe, mirroring the teacher's fixed backoff ladder
// for watch re-establishment.
var lockProbeBackoff = []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}

// Watcher is the public API: AddDirectory/Start/Stop/UpdateDirectory/Dispose.
type Watcher struct {
	onCandidate func(Candidate)
	settleDelay time.Duration

	mu          sync.Mutex
	fsw         *fsnotify.Watcher
	pollingMode bool
	dirs        map[string]bool // path -> recursive
	debouncers  map[string]*Debouncer
	pending     map[string]Kind

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Watcher. It falls back to polling mode if the OS
// notification backend cannot be created, gated the same way the
// teacher's FileWatcher escapes to polling via an env var — here
// TANASTE_WATCHER_FALLBACK=poll forces it for tests.
func New(onCandidate func(Candidate)) (*Watcher, error) {
	w := &Watcher{
		onCandidate: onCandidate,
		settleDelay: defaultSettleDelay,
		dirs:        make(map[string]bool),
		debouncers:  make(map[string]*Debouncer),
		pending:     make(map[string]Kind),
	}

	if os.Getenv("TANASTE_WATCHER_FALLBACK") == "poll" {
		w.pollingMode = true
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.pollingMode = true
		return w, nil
	}
	w.fsw = fsw
	return w, nil
}

// WithSettleDelay overrides the default 500ms settle window; used by
// tests that need deterministic timing.
func (w *Watcher) WithSettleDelay(d time.Duration) *Watcher {
	w.settleDelay = d
	return w
}

// AddDirectory registers path for watching.
func (w *Watcher) AddDirectory(path string, recursive bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirs[path] = recursive
	if w.pollingMode {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watcher: add directory %s: %w", path, err)
	}
	return nil
}

// UpdateDirectory hot-swaps the watched directory without dropping the
// pipeline's event subscription: under the watcher's lock it removes
// oldPath and registers newPath on the same underlying watcher, which is
// not paused or replaced.
func (w *Watcher) UpdateDirectory(oldPath, newPath string, recursive bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.dirs, oldPath)
	if !w.pollingMode && w.fsw != nil {
		_ = w.fsw.Remove(oldPath)
	}
	w.dirs[newPath] = recursive
	if w.pollingMode {
		return nil
	}
	if err := w.fsw.Add(newPath); err != nil {
		return fmt.Errorf("watcher: update directory %s: %w", newPath, err)
	}
	return nil
}

// Start begins delivering events. OS notifications arrive on an internal
// goroutine; handlers only enqueue into the debounce map and return, per
// the no-heavy-work contract in spec §4.4.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if w.pollingMode {
		w.wg.Add(1)
		go w.runPolling(ctx)
		return nil
	}

	w.wg.Add(1)
	go w.runNotify(ctx)
	return nil
}

func (w *Watcher) runNotify(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ev)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Errors are surfaced via logging at a higher layer; the
			// watcher itself keeps running.
		}
	}
}

func (w *Watcher) handleFsEvent(ev fsnotify.Event) {
	var kind Kind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = Created
	case ev.Op&fsnotify.Write != 0:
		kind = Modified
	case ev.Op&fsnotify.Remove != 0:
		kind = Deleted
	case ev.Op&fsnotify.Rename != 0:
		kind = Renamed
	case ev.Op&fsnotify.Chmod != 0:
		return // metadata-only change, not a content settle signal
	default:
		return
	}
	w.schedule(ev.Name, kind)
}

// schedule resets the per-path settle timer. A Deleted event
// short-circuits: it fires immediately instead of waiting out the settle
// window.
func (w *Watcher) schedule(path string, kind Kind) {
	w.mu.Lock()
	w.pending[path] = kind
	d, ok := w.debouncers[path]
	if !ok {
		d = NewDebouncer(w.settleDelay, func() { w.emit(path) })
		w.debouncers[path] = d
	}
	w.mu.Unlock()

	if kind == Deleted {
		d.Fire()
		return
	}
	d.Trigger()
}

// emit runs the lock probe and hands a settled Candidate to the pipeline.
func (w *Watcher) emit(path string) {
	w.mu.Lock()
	kind := w.pending[path]
	delete(w.pending, path)
	delete(w.debouncers, path)
	w.mu.Unlock()

	now := time.Now().UTC()
	if kind == Deleted {
		w.onCandidate(Candidate{Path: path, Kind: kind, DetectedAt: now, ReadyAt: now})
		return
	}

	if err := probeLock(path); err != nil {
		w.onCandidate(Candidate{Path: path, Kind: kind, DetectedAt: now, IsFailed: true, Reason: err.Error()})
		return
	}
	w.onCandidate(Candidate{Path: path, Kind: kind, DetectedAt: now, ReadyAt: time.Now().UTC()})
}

// probeLock attempts a non-destructive open-for-read, retrying with
// exponential backoff up to lockProbeMaxRetries before giving up.
func probeLock(path string) error {
	var lastErr error
	for i := 0; i < lockProbeMaxRetries; i++ {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			return nil
		}
		lastErr = err
		if i < len(lockProbeBackoff) {
			time.Sleep(lockProbeBackoff[i])
		}
	}
	return fmt.Errorf("watcher: lock probe exhausted retries for %s: %w", path, lastErr)
}

// runPolling is the fallback path when no OS notification backend is
// available: compare mtime/size on a ticker, same shape as the teacher's
// startPolling.
func (w *Watcher) runPolling(ctx context.Context) {
	defer w.wg.Done()
	type state struct {
		modTime time.Time
		size    int64
		exists  bool
	}
	last := make(map[string]state)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			dirs := make([]string, 0, len(w.dirs))
			for d := range w.dirs {
				dirs = append(dirs, d)
			}
			w.mu.Unlock()

			for _, dir := range dirs {
				entries, err := os.ReadDir(dir)
				if err != nil {
					continue
				}
				for _, entry := range entries {
					if entry.IsDir() {
						continue
					}
					full := dir + string(os.PathSeparator) + entry.Name()
					info, err := entry.Info()
					if err != nil {
						continue
					}
					prev, seen := last[full]
					cur := state{modTime: info.ModTime(), size: info.Size(), exists: true}
					if !seen {
						last[full] = cur
						w.schedule(full, Created)
						continue
					}
					if !prev.modTime.Equal(cur.modTime) || prev.size != cur.size {
						last[full] = cur
						w.schedule(full, Modified)
					}
				}
			}
		}
	}
}

// Stop cancels event delivery and waits for internal goroutines to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Dispose releases OS resources. Call after Stop.
func (w *Watcher) Dispose() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range w.debouncers {
		d.Cancel()
	}
	if w.fsw != nil {
		if err := w.fsw.Close(); err != nil {
			return errors.New("watcher: close: " + err.Error())
		}
	}
	return nil
}

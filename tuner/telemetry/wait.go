package telemetry

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Waiter suspends a polling loop until its input may have changed.
type Waiter interface {
	// Wait blocks until a change notification, the backoff delay or ctx ends.
	Wait(ctx context.Context) error
	// Reset restarts the backoff after the caller made progress.
	Reset()
}

// Backoff is a bounded exponential delay: Min, 2*Min, ... capped at Max.
type Backoff struct {
	Min  time.Duration
	Max  time.Duration
	next time.Duration
}

// Next returns the delay to wait now and doubles the following one.
func (b *Backoff) Next() time.Duration {
	if b.next < b.Min {
		b.next = b.Min
	}
	d := b.next
	b.next = min(2*b.next, b.Max)
	return d
}

// Reset restarts the sequence at Min.
func (b *Backoff) Reset() {
	b.next = 0
}

// ChangeWaiter wakes on filesystem writes to a set of files, falling back to
// the backoff delay when no event arrives. Without fsnotify support it
// degrades to plain backoff polling.
//
// Thread-safety: Wait and Reset must be called from a single goroutine.
type ChangeWaiter struct {
	backoff Backoff
	watcher *fsnotify.Watcher
	changed chan struct{}
}

// NewChangeWaiter watches the directories holding paths. Files need not
// exist yet.
func NewChangeWaiter(paths []string, backoff Backoff) *ChangeWaiter {
	w := &ChangeWaiter{backoff: backoff, changed: make(chan struct{}, 1)}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Warnf("file watcher unavailable, polling only: %v", err)
		return w
	}

	names := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		clean := filepath.Clean(p)
		names[clean] = true
		dirs[filepath.Dir(clean)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logrus.Warnf("cannot watch %s, polling only: %v", dir, err)
		}
	}
	w.watcher = watcher

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !names[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				select {
				case w.changed <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Debugf("file watcher: %v", err)
			}
		}
	}()
	return w
}

// Wait blocks until a watched file changes, the next backoff delay elapses
// or ctx is done.
func (w *ChangeWaiter) Wait(ctx context.Context) error {
	timer := time.NewTimer(w.backoff.Next())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.changed:
		w.backoff.Reset()
		return nil
	case <-timer.C:
		return nil
	}
}

// Reset restarts the backoff sequence.
func (w *ChangeWaiter) Reset() {
	w.backoff.Reset()
}

// Close stops watching.
func (w *ChangeWaiter) Close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// Package watcher submits audio files dropped into an inbox directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a new file is left alone before it is handed over.
const DefaultSettle = 500 * time.Millisecond

// Handler processes one new file.
type Handler func(ctx context.Context, path string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithMaxConcurrent bounds the number of handlers running at once. Default 2.
func WithMaxConcurrent(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.sem = make(chan struct{}, n)
		}
	}
}

// Watcher hands every file created in dir with an accepted extension to a Handler.
type Watcher struct {
	dir     string
	exts    map[string]bool
	handler Handler
	settle  time.Duration
	fsw     *fsnotify.Watcher
	sem     chan struct{}
	wg      sync.WaitGroup
}

// New starts watching dir. exts holds lowercase extensions including the dot.
func New(dir string, exts map[string]bool, handler Handler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	w := &Watcher{
		dir:     dir,
		exts:    exts,
		handler: handler,
		settle:  DefaultSettle,
		fsw:     fsw,
		sem:     make(chan struct{}, 2),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run dispatches events until ctx is cancelled, then waits for running handlers and
// returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("inbox watcher started", "dir", w.dir)
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			slog.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !w.accepts(event.Name) {
				slog.Debug("ignoring inbox file", "path", event.Name)
				continue
			}

			select {
			case w.sem <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			w.wg.Add(1)
			go w.handle(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher errors channel closed")
			}
			slog.Error("inbox watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ctx context.Context, path string) {
	defer w.wg.Done()
	defer func() { <-w.sem }()

	// Writers usually create then fill the file.
	select {
	case <-time.After(w.settle):
	case <-ctx.Done():
		return
	}

	slog.Info("inbox file detected", "path", path)
	if err := w.handler(ctx, path); err != nil {
		slog.Error("inbox file rejected", "path", path, "error", err)
	}
}

func (w *Watcher) accepts(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

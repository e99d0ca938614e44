// Package watcher re-indexes a project when its files change.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	logging "github.com/ipfs/go-log/v2"

	"github.com/dshills/ctxmirror/internal/collector"
	"github.com/dshills/ctxmirror/pkg/types"
)

var log = logging.Logger("watcher")

// DefaultDebounce is the quiet period that ends a burst of events.
const DefaultDebounce = 500 * time.Millisecond

// TriggerFunc starts a run. It should return types.ErrIndexingInProgress
// when one is already live; such triggers are dropped.
type TriggerFunc func(ctx context.Context) error

type Watcher struct {
	root      string
	collector *collector.Collector
	matcher   *collector.Matcher
	fsw       *fsnotify.Watcher
	debounce  time.Duration
	trigger   TriggerFunc

	mu      sync.Mutex
	timer   *time.Timer
	pending int
}

// New creates a Watcher for root. Nothing is watched until Run.
func New(root string, c *collector.Collector, debounce time.Duration, trigger TriggerFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:      root,
		collector: c,
		matcher:   c.Matcher(root),
		fsw:       fsw,
		debounce:  debounce,
		trigger:   trigger,
	}, nil
}

// Run watches until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	n, err := w.addDirs(ctx)
	if err != nil {
		return err
	}
	log.Infow("watching project", "root", w.root, "dirs", n, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", "error", err)
		}
	}
}

// addDirs watches every directory the collector would walk. Adding a path
// that is already watched is a no-op.
func (w *Watcher) addDirs(ctx context.Context) (int, error) {
	dirs, err := w.collector.Dirs(ctx, w.root)
	if err != nil {
		return 0, err
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			log.Warnw("failed to watch directory", "dir", d, "error", err)
		}
	}
	return len(dirs), nil
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.matcher.Ignored(rel, true) {
				return
			}
			if _, err := w.addDirs(ctx); err != nil {
				log.Warnw("failed to watch new directory", "dir", event.Name, "error", err)
			}
			w.schedule(ctx)
			return
		}
	}

	if filepath.Base(rel) != ".gitignore" && !w.collector.Accepts(rel) {
		return
	}
	if w.matcher.Ignored(rel, false) {
		return
	}
	log.Debugw("change detected", "path", rel, "op", event.Op.String())
	w.schedule(ctx)
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending++
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	events := w.pending
	w.pending = 0
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	err := w.trigger(ctx)
	switch {
	case errors.Is(err, types.ErrIndexingInProgress):
		log.Infow("index already running, dropping trigger", "root", w.root, "events", events)
	case err != nil:
		log.Errorw("re-index trigger failed", "root", w.root, "error", err)
	default:
		log.Infow("re-index triggered", "root", w.root, "events", events)
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Package watch reloads the conclusion-pattern file when it changes on
// disk. The watcher observes the file's directory (editors replace files on
// save, so watching the path itself loses the inode) and debounces rapid
// writes; once a change settles, the file's pattern lines are handed to the
// callback. Parsing and installation stay with the session.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the settle window applied when the caller passes no
// positive duration.
const DefaultDebounce = 500 * time.Millisecond

// Watcher delivers settled pattern-file contents to a callback. A watcher
// is single-use: once stopped it cannot be restarted.
type Watcher struct {
	mu       sync.Mutex
	log      *zap.Logger
	fsw      *fsnotify.Watcher
	path     string
	debounce time.Duration
	pending  time.Time
	onChange func(lines []string)
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	reloads  int
}

// New creates a watcher for the pattern file at path. The file need not
// exist yet; its directory must. A non-positive debounce selects
// DefaultDebounce.
func New(path string, debounce time.Duration, log *zap.Logger, onChange func(lines []string)) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		log:      log,
		fsw:      fsw,
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the event loop. Calling Start twice is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("watching pattern file", zap.String("path", w.path),
		zap.Duration("debounce", w.debounce))
	go w.run(ctx)
}

// Stop shuts the watcher down and waits for the event loop to exit. Safe to
// call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.fsw.Close(); err != nil {
		w.log.Warn("closing watcher", zap.Error(err))
	}
}

// Reloads reports how many settled changes have been delivered.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 2
	if tick < 20*time.Millisecond {
		tick = 20 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-ticker.C:
			w.deliverSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) deliverSettled() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	lines, err := ReadPatternFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			w.log.Debug("pattern file removed, keeping current patterns",
				zap.String("path", w.path))
			return
		}
		w.log.Warn("reading pattern file", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.log.Info("pattern file settled", zap.String("path", w.path),
		zap.Int("lines", len(lines)))
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	w.onChange(lines)
}

// ReadPatternFile reads one pattern per line; blank lines and `--` comments
// are dropped.
func ReadPatternFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

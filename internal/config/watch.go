package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/codex-engine/codex/internal/observability"
)

// Watcher live-reloads the user config.toml layer on change (§4.I "live
// reload triggers"). Grounded on internal/skills/manager.go's
// watcher/watchLoop/debounce fields and teardown sequence, retargeted from
// skill-bundle discovery to re-decoding a single TOML file into the user
// layer of a Stack.
type Watcher struct {
	stack    *Stack
	path     string
	debounce time.Duration
	onReload func(error)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Logger, if set, records reload attempts and watch errors. Nil
	// disables logging entirely.
	Logger *observability.Logger
}

func (w *Watcher) logf(msg string, args ...any) {
	if w.Logger == nil {
		return
	}
	w.Logger.Debug(context.Background(), msg, args...)
}

func (w *Watcher) logErr(msg string, err error, args ...any) {
	if w.Logger == nil {
		return
	}
	w.Logger.Error(context.Background(), msg, append(args, "error", err)...)
}

// NewWatcher creates a Watcher for path (a config.toml file) against stack.
// onReload, if non-nil, is called after every reload attempt (including
// failed ones) with the resulting error.
func NewWatcher(stack *Stack, path string, debounce time.Duration, onReload func(error)) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{stack: stack, path: path, debounce: debounce, onReload: onReload}
}

// Start begins watching. It watches the file's parent directory rather
// than the file itself so edits that replace the file (rename-over-write,
// common with editors) are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("config: start watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		w.mu.Unlock()
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	w.watcher = fw
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watchLoop(watchCtx)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	if fw != nil {
		_ = fw.Close()
	}
	w.wg.Wait()
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}

	target := filepath.Clean(w.path)
	var timerMu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			_ = w.reload()
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logErr("config: watcher error", err, "path", w.path)
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logErr("config: reload read failed", err, "path", w.path)
		if w.onReload != nil {
			w.onReload(err)
		}
		return err
	}
	raw, err := DecodeTOMLLayer(data)
	if err == nil {
		err = w.stack.SetLayer(LayerUser, raw)
	}
	if err != nil {
		w.logErr("config: reload failed", err, "path", w.path)
	} else {
		w.logf("config: user layer reloaded", "path", w.path)
	}
	if w.onReload != nil {
		w.onReload(err)
	}
	return err
}

package ruleset

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDefault coalesces bursts of file events (editors write several
// events per save) into one reload.
const debounceDefault = 500 * time.Millisecond

// Watcher reloads the rule set directory when its YAML files change.
// The active Table is swapped atomically, so running evaluations keep the
// rule set they started with.
type Watcher struct {
	dir      string
	table    *Table
	debounce time.Duration
	onError  func(error)
}

// NewWatcher creates a watcher that keeps table in sync with dir.
// onError receives reload failures (the previous table stays active).
func NewWatcher(dir string, table *Table, onError func(error)) *Watcher {
	if onError == nil {
		onError = func(err error) { fmt.Fprintf(os.Stderr, "cacmd: ruleset reload: %v\n", err) }
	}
	return &Watcher{
		dir:      dir,
		table:    table,
		debounce: debounceDefault,
		onError:  onError,
	}
}

// Run watches the ruleset directory. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	var mu sync.Mutex
	dirty := false
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRuleFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if !dirty {
				dirty = true
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case <-timer.C:
			mu.Lock()
			dirty = false
			mu.Unlock()
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.onError(err)
		}
	}
}

// reload loads the directory into a fresh map and swaps it in. A broken file
// keeps the previous table active: a half-edited rule set must never drive
// an evaluation.
func (w *Watcher) reload() {
	fresh, err := LoadDir(w.dir)
	if err != nil {
		w.onError(err)
		return
	}
	fresh.mu.RLock()
	sets := fresh.sets
	fresh.mu.RUnlock()
	w.table.Replace(sets)
}

func isRuleFile(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

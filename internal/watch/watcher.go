// Package watch triggers rebuilds when the content tree or the configuration
// file changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor save bursts into one rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Event describes one batch of changes.
type Event struct {
	Paths         []string // changed paths, sorted
	ConfigChanged bool
}

// Handler runs a rebuild. Errors are logged and watching continues.
type Handler func(ctx context.Context, ev Event) error

// Options configures a Watcher.
type Options struct {
	ContentDir string
	ConfigPath string   // optional
	Ignore     []string // directories whose events are dropped, typically the output directory
	Debounce   time.Duration
}

// Watcher monitors the content tree recursively and the directory containing
// the configuration file.
type Watcher struct {
	contentDir string
	configPath string
	ignore     []string
	debounce   time.Duration
	watcher    *fsnotify.Watcher
}

// New creates a watcher and registers every directory below ContentDir.
func New(opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	contentDir, err := filepath.Abs(opts.ContentDir)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to resolve content path: %w", err)
	}
	w := &Watcher{
		contentDir: contentDir,
		debounce:   opts.Debounce,
		watcher:    fw,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	for _, dir := range opts.Ignore {
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}

	if err := w.addTree(contentDir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if opts.ConfigPath != "" {
		configPath, err := filepath.Abs(opts.ConfigPath)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		w.configPath = configPath
		// Watching the directory survives editors that replace the file on save.
		if err := fw.Add(filepath.Dir(configPath)); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to watch config directory: %w", err)
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(p)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

func (w *Watcher) ignored(p string) bool {
	return slices.ContainsFunc(w.ignore, func(dir string) bool {
		return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
	})
}

func (w *Watcher) relevant(ev fsnotify.Event) (config bool, ok bool) {
	if ev.Op == fsnotify.Chmod {
		return false, false
	}
	if w.configPath != "" && ev.Name == w.configPath {
		return true, true
	}
	if w.ignored(ev.Name) || strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false, false
	}
	return false, ev.Name == w.contentDir || strings.HasPrefix(ev.Name, w.contentDir+string(filepath.Separator))
}

// Run delivers debounced batches to handler until ctx is done. Handler calls
// never overlap; changes arriving during a rebuild form the next batch.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	}()

	slog.Info("Watching for changes", "content", w.contentDir, "config", w.configPath)

	pending := map[string]struct{}{}
	configChanged := false
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			isConfig, keep := w.relevant(ev)
			if !keep {
				continue
			}
			if ev.Has(fsnotify.Create) && !isConfig {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						slog.Warn("Failed to watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			slog.Debug("Change detected", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = struct{}{}
			configChanged = configChanged || isConfig
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := Event{ConfigChanged: configChanged}
			for p := range pending {
				batch.Paths = append(batch.Paths, p)
			}
			slices.Sort(batch.Paths)
			pending = map[string]struct{}{}
			configChanged = false

			if err := handler(ctx, batch); err != nil {
				slog.Error("Rebuild failed", "error", err, "changes", len(batch.Paths))
			}
		}
	}
}

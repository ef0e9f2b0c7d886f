package supervise

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of filesystem events (editors write
// several times per save) into one reload tick.
const DefaultDebounce = 500 * time.Millisecond

// Watch recursively watches roots and emits a tick on the returned channel
// when a file with one of the given extensions changes. Empty exts matches
// every file. Directories created later are picked up; hidden directories
// are skipped. The channel closes when ctx is cancelled.
func Watch(ctx context.Context, roots []string, exts []string, debounce time.Duration) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, root := range roots {
		if err := addTree(w, root); err != nil {
			w.Close()
			return nil, err
		}
	}

	if debounce == 0 {
		debounce = DefaultDebounce
	}

	ticks := make(chan struct{}, 1)
	go func() {
		defer w.Close()
		defer close(ticks)

		timer := time.NewTimer(debounce)
		if !timer.Stop() {
			<-timer.C
		}
		pending := false

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op.Has(fsnotify.Create) {
					// New directories need their own watches.
					if err := addTree(w, ev.Name); err == nil {
						slog.Debug("watching new path", "path", ev.Name)
					}
				}
				if !relevant(ev, exts) {
					continue
				}
				slog.Debug("source change", "path", ev.Name, "op", ev.Op)
				if pending {
					if !timer.Stop() {
						<-timer.C
					}
				}
				timer.Reset(debounce)
				pending = true

			case <-timer.C:
				pending = false
				select {
				case ticks <- struct{}{}:
				default:
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Debug("watch error", "error", err)
			}
		}
	}()

	return ticks, nil
}

// addTree watches dir and all non-hidden subdirectories. Plain files are
// ignored; their parent directory's watch covers them.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && path != dir {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func relevant(ev fsnotify.Event, exts []string) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) && !ev.Op.Has(fsnotify.Remove) {
		return false
	}
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(ev.Name)
	for _, want := range exts {
		if ext == want {
			return true
		}
	}
	return false
}

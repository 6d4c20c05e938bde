package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/smartgrid/pkg/types"
)

const jsonlExt = ".jsonl"

// FileWatcher turns writes to the JSONL files of a data directory into
// change signals. Another process sharing the directory publishes simply
// by writing. Bursts of writes to one file collapse into one signal once
// the file has been quiet for the debounce interval.
type FileWatcher struct {
	dir      string
	debounce time.Duration
	log      *zap.Logger
}

// NewFileWatcher watches dir. A zero debounce uses types.DefaultDebounce.
func NewFileWatcher(dir string, debounce time.Duration, log *zap.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = types.DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileWatcher{dir: dir, debounce: debounce, log: log.With(zap.String("dir", dir))}
}

// Publish is a no-op: the file write is the publication.
func (w *FileWatcher) Publish(context.Context, types.Change) error { return nil }

// Close is a no-op; each subscription owns its own watcher.
func (w *FileWatcher) Close() error { return nil }

// Subscribe starts watching the directory.
func (w *FileWatcher) Subscribe(ctx context.Context) (types.Subscription, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", w.dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}

	s, subCtx := newSubscription(ctx)
	go w.run(subCtx, fw, s)
	w.log.Debug("watching data dir")
	return s, nil
}

func (w *FileWatcher) run(ctx context.Context, fw *fsnotify.Watcher, s *subscription) {
	defer s.finish()
	defer fw.Close()

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if table, ok := tableOf(ev); ok {
				pending[table] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
			s.fail(ctx, err)

		case now := <-ticker.C:
			for table, at := range pending {
				if now.Sub(at) < w.debounce {
					continue
				}
				delete(pending, table)
				w.log.Debug("table changed on disk", zap.String("table", table))
				s.send(ctx, types.Change{Table: table, At: now})
			}
		}
	}
}

func (w *FileWatcher) tick() time.Duration {
	t := w.debounce / 2
	if t < 10*time.Millisecond {
		t = 10 * time.Millisecond
	}
	return t
}

// tableOf maps a filesystem event to the table whose JSONL file changed.
// Temp files used for atomic writes and chmod events are ignored.
func tableOf(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(ev.Name)
	if !strings.HasSuffix(base, jsonlExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, jsonlExt), true
}

package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

// ManifestWatcher triggers a rebuild when the project manifest changes.
// Rapid successive writes (editor save, atomic rename) collapse into one
// trigger after the debounce window.
type ManifestWatcher struct {
	manifestPath string
	debounce     time.Duration
	onChange     func()
	watcher      *fsnotify.Watcher
	stop         chan struct{}
}

// NewManifestWatcher watches the directory containing manifestPath. Watching
// the directory instead of the file survives editors that replace the file.
func NewManifestWatcher(manifestPath string, debounce time.Duration, onChange func()) (*ManifestWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(manifestPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch manifest directory: %w", err)
	}

	return &ManifestWatcher{
		manifestPath: absPath,
		debounce:     debounce,
		onChange:     onChange,
		watcher:      watcher,
		stop:         make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *ManifestWatcher) Start(ctx context.Context) {
	observability.InfoContext(ctx, "watching manifest", logfields.Path(w.manifestPath))
	go w.watchLoop(ctx)
}

// Stop ends watching. Safe to call once.
func (w *ManifestWatcher) Stop() {
	close(w.stop)
	if err := w.watcher.Close(); err != nil {
		observability.WarnContext(context.Background(), "close file watcher failed", logfields.Error(err))
	}
}

func (w *ManifestWatcher) watchLoop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			observability.DebugContext(ctx, "manifest changed",
				logfields.Path(event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			observability.WarnContext(ctx, "file watcher error", logfields.Error(err))
		}
	}
}

// relevant filters directory noise down to writes of the manifest itself.
func (w *ManifestWatcher) relevant(event fsnotify.Event) bool {
	if event.Name != w.manifestPath {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

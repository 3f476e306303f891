// Package watcher watches the gateway configuration file and triggers hot
// reloads. It supports cross-platform fsnotify event handling.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/gitsphere-dev/gitsphere-gateway/internal/config"
)

const (
	// replaceCheckDelay is a short delay to allow atomic replace (rename) to
	// settle before deciding whether a Remove event indicates a real deletion.
	replaceCheckDelay    = 50 * time.Millisecond
	configReloadDebounce = 150 * time.Millisecond
)

// Watcher manages file watching for the configuration file.
type Watcher struct {
	configPath        string
	config            *config.Config
	configMu          sync.RWMutex
	configReloadMu    sync.Mutex
	configReloadTimer *time.Timer
	reloadCallback    func(*config.Config)
	watcher           *fsnotify.Watcher
	lastConfigHash    string
}

// NewWatcher creates a new file watcher instance.
func NewWatcher(configPath string, reloadCallback func(*config.Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		configPath:     configPath,
		reloadCallback: reloadCallback,
		watcher:        fsWatcher,
	}, nil
}

// SetConfig updates the configuration the watcher diffs reloads against.
func (w *Watcher) SetConfig(cfg *config.Config) {
	w.configMu.Lock()
	defer w.configMu.Unlock()
	w.config = cfg
}

// Start begins watching the configuration file's directory. Watching the
// directory instead of the file keeps events flowing across editors that
// replace the file atomically via rename.
func (w *Watcher) Start(ctx context.Context) error {
	configDir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(configDir); err != nil {
		return err
	}
	log.Debugf("watching config directory: %s", configDir)

	go w.run(ctx)
	return nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() error {
	w.stopConfigReloadTimer()
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
		return
	}
	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		w.scheduleConfigReload()
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Editors often replace the file via rename; give the new file a
		// moment to appear before treating this as a deletion.
		time.AfterFunc(replaceCheckDelay, w.scheduleConfigReload)
	}
}

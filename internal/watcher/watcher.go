package watcher

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docqa/internal/indexer"
)

// Reindexer is the slice of the orchestrator the watcher drives.
type Reindexer interface {
	ReindexFile(ctx context.Context, path string) error
	RemoveFile(path string)
}

// Watcher keeps the index in sync with the configured folders. Change
// events are debounced per path, since editors typically emit several
// writes per save.
type Watcher struct {
	fw       *fsnotify.Watcher
	reindex  Reindexer
	formats  map[string]bool
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer

	closeOnce sync.Once
	closed    chan struct{}
}

func New(reindex Reindexer, formats []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = time.Second
	}
	set := make(map[string]bool, len(formats))
	for _, f := range formats {
		set[strings.ToLower(f)] = true
	}
	return &Watcher{
		fw:       fw,
		reindex:  reindex,
		formats:  set,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
		closed:   make(chan struct{}),
	}, nil
}

// Watch registers folders (and their subdirectories) and starts the
// event loop. It returns immediately.
func (w *Watcher) Watch(ctx context.Context, folders []string) error {
	for _, folder := range folders {
		if err := w.addRecursive(folder); err != nil {
			log.Printf("[watcher] cannot watch %s: %v", folder, err)
		}
	}
	go w.loop(ctx)
	log.Printf("[watcher] watching %d folders", len(folders))
	return nil
}

// addRecursive watches a directory tree, pruning the same entries the
// index scan ignores.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && indexer.Ignored(d.Name()) {
			return fs.SkipDir
		}
		return w.fw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		case <-ctx.Done():
			return
		case <-w.closed:
			return
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if indexer.Ignored(name) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		// new subdirectories need their own watch
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				log.Printf("[watcher] cannot watch new dir %s: %v", event.Name, err)
			}
			return
		}
	}
	if !w.formats[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.scheduleReindex(ctx, event.Name)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cancelPending(event.Name)
		log.Printf("[watcher] removed: %s", event.Name)
		w.reindex.RemoveFile(event.Name)
	}
}

// scheduleReindex (re)arms the per-path debounce timer.
func (w *Watcher) scheduleReindex(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		log.Printf("[watcher] changed: %s", path)
		if err := w.reindex.ReindexFile(ctx, path); err != nil {
			log.Printf("[watcher] reindex %s failed: %v", path, err)
		}
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.closed) })
	return w.fw.Close()
}

package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/domain"
	"docqa/internal/events"
	"docqa/internal/parser"
	"docqa/internal/vectorstore"
)

// directories never worth scanning: build artifacts, VCS metadata,
// dependency caches, and our own data directory.
var ignoredDirs = map[string]bool{
	"node_modules": true, ".git": true, ".next": true, "dist": true,
	"build": true, "out": true, "target": true, "vendor": true,
	".venv": true, "env": true, "data": true,
}

// maxFilesPerScan bounds worst-case scan time on runaway folders.
const maxFilesPerScan = 1000

// Ignored reports whether a directory or file name is excluded from
// scanning: hidden entries and the fixed ignore list.
func Ignored(name string) bool {
	return strings.HasPrefix(name, ".") || ignoredDirs[name]
}

// Orchestrator drives the ingestion pipeline: folder discovery, parse,
// chunk, embed, insert. Exactly one bulk run may be active; pause and
// stop are advisory flags honored at yield points between files and
// between chunk embeddings.
type Orchestrator struct {
	store    *vectorstore.Store
	splitter *chunker.Splitter
	embedder domain.Embedder
	parsers  *parser.Registry
	bus      *events.Bus
	formats  map[string]bool

	mu      sync.Mutex
	state   domain.IndexState
	current int
	total   int
	errs    []domain.IndexingError
	paused  bool
	stopped bool

	// yield pacing, shortened in tests
	pollInterval time.Duration
	yieldShort   time.Duration
	yieldLong    time.Duration
}

func New(store *vectorstore.Store, splitter *chunker.Splitter, embedder domain.Embedder, parsers *parser.Registry, bus *events.Bus, formats []string) *Orchestrator {
	set := make(map[string]bool, len(formats))
	for _, f := range formats {
		set[strings.ToLower(f)] = true
	}
	return &Orchestrator{
		store:        store,
		splitter:     splitter,
		embedder:     embedder,
		parsers:      parsers,
		bus:          bus,
		formats:      set,
		state:        domain.StateIdle,
		pollInterval: 100 * time.Millisecond,
		yieldShort:   200 * time.Millisecond,
		yieldLong:    500 * time.Millisecond,
	}
}

// Pause defers the next indexing step until Resume. The in-flight
// embedding call is not interrupted.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	o.paused = true
	o.mu.Unlock()
}

// Resume clears the pause flag.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	o.paused = false
	o.mu.Unlock()
}

// Stop requests the active run to exit after its in-flight file.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.state == domain.StateIndexing {
		o.stopped = true
		log.Print("[indexing] stop requested")
	}
	o.mu.Unlock()
}

// Status reports the current run's state and progress.
func (o *Orchestrator) Status() domain.IndexingStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	errs := make([]domain.IndexingError, len(o.errs))
	copy(errs, o.errs)
	return domain.IndexingStatus{State: o.state, Current: o.current, Total: o.total, Errors: errs}
}

// IndexFolders runs a bulk index over the folders. A second call while
// a run is active is rejected with ErrIndexingInProgress; the caller
// can read Status for the active run's progress.
func (o *Orchestrator) IndexFolders(ctx context.Context, folders []string) (err error) {
	o.mu.Lock()
	if o.state == domain.StateIndexing {
		o.mu.Unlock()
		return domain.ErrIndexingInProgress
	}
	o.state = domain.StateIndexing
	o.current, o.total = 0, 0
	o.errs = nil
	o.stopped = false
	o.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("indexing panicked: %v", r)
		}
		o.mu.Lock()
		if err != nil {
			o.state = domain.StateError
		} else {
			o.state = domain.StateIdle
		}
		o.stopped = false
		o.mu.Unlock()
		if err != nil {
			o.bus.Publish(events.Event{Type: events.TypeError, Message: err.Error()})
		}
	}()

	files := o.discover(folders)
	o.mu.Lock()
	o.total = len(files)
	o.mu.Unlock()
	log.Printf("[indexing] found %d supported files in %d folders", len(files), len(folders))

	for _, file := range files {
		if o.stopRequested() {
			log.Print("[indexing] aborted by user")
			break
		}
		o.waitWhilePaused(ctx)
		if o.stopRequested() || ctx.Err() != nil {
			break
		}
		if ferr := o.IndexFile(ctx, file, false); ferr != nil {
			log.Printf("[indexing] skipping %s: %v", file, ferr)
			o.recordError(file, ferr)
		}
		o.mu.Lock()
		o.current++
		current, total := o.current, o.total
		o.mu.Unlock()
		o.bus.Publish(events.Event{Type: events.TypeIndexProgress, File: file, Current: current, Total: total})

		// brief yield so chat traffic gets a turn; longer when the
		// backlog is small enough that overhead doesn't matter
		pause := o.yieldLong
		if len(files) > 500 {
			pause = o.yieldShort
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}

	if serr := o.store.Save(true); serr != nil {
		return serr
	}
	status := o.Status()
	o.bus.Publish(events.Event{Type: events.TypeIndexComplete, Current: status.Current, Total: status.Total})
	log.Print("[indexing] completed")
	return nil
}

// IndexFile ingests a single file. A missing file is a silent skip;
// parse failures propagate so explicit single-file callers see them.
func (o *Orchestrator) IndexFile(ctx context.Context, path string, persist bool) error {
	if _, err := os.Stat(path); err != nil {
		log.Printf("[indexing] file not found, skipping: %s", path)
		return nil
	}
	chunks, err := o.prepare(path)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := o.store.AddDocuments(ctx, chunks, o.embedder, persist, o.yield); err != nil {
		return err
	}
	log.Printf("[indexing] indexed %s (%d chunks)", filepath.Base(path), len(chunks))
	return nil
}

// ReindexFile atomically replaces a changed file's chunks.
func (o *Orchestrator) ReindexFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		log.Printf("[indexing] file not found, skipping: %s", path)
		return nil
	}
	chunks, err := o.prepare(path)
	if err != nil {
		return err
	}
	if err := o.store.ReplaceFile(ctx, path, chunks, o.embedder, o.yield); err != nil {
		return err
	}
	o.bus.Publish(events.Event{Type: events.TypeFileChanged, File: path})
	return o.store.Save(false)
}

// RemoveFile drops all chunks for a deleted file.
func (o *Orchestrator) RemoveFile(path string) {
	removed := o.store.DeleteByFilePath(path)
	if removed > 0 {
		log.Printf("[indexing] removed %d chunks for %s", removed, path)
		_ = o.store.Save(false)
	}
	o.bus.Publish(events.Event{Type: events.TypeFileChanged, File: path})
}

// prepare parses and chunks one file.
func (o *Orchestrator) prepare(path string) ([]domain.Chunk, error) {
	text, err := o.parsers.Parse(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	base := domain.Metadata{
		FilePath: path,
		FileName: filepath.Base(path),
		FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Extra:    map[string]string{"indexedAt": time.Now().UTC().Format(time.RFC3339)},
	}
	return o.splitter.Split(text, base), nil
}

// discover enumerates eligible files under the folders, pruning hidden
// entries and ignorable directories, capped at maxFilesPerScan.
func (o *Orchestrator) discover(folders []string) []string {
	var files []string
	for _, folder := range folders {
		if _, err := os.Stat(folder); err != nil {
			log.Printf("[indexing] skipping inaccessible folder: %s", folder)
			continue
		}
		_ = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Printf("[indexing] cannot read %s: %v", path, err)
				return nil
			}
			if len(files) >= maxFilesPerScan {
				return fs.SkipAll
			}
			if path != folder && Ignored(d.Name()) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if o.formats[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
	}
	return files
}

// yield is the suspension point between chunk embeddings: it blocks
// while paused but does not honor stop, since stop halts between files,
// not mid-file.
func (o *Orchestrator) yield(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.mu.Lock()
		paused, stopped := o.paused, o.stopped
		o.mu.Unlock()
		if !paused || stopped {
			return nil
		}
		time.Sleep(o.pollInterval)
	}
}

func (o *Orchestrator) waitWhilePaused(ctx context.Context) {
	for {
		o.mu.Lock()
		paused, stopped := o.paused, o.stopped
		o.mu.Unlock()
		if !paused || stopped || ctx.Err() != nil {
			return
		}
		time.Sleep(o.pollInterval)
	}
}

func (o *Orchestrator) stopRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopped
}

func (o *Orchestrator) recordError(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, domain.IndexingError{FilePath: path, Message: err.Error(), Time: time.Now()})
}

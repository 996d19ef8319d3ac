package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"docqa/internal/domain"
)

// snapshotFile is the on-disk form of the store. Chunks are listed in
// insertion order so a reload reproduces ranking tie-breaks.
type snapshotFile struct {
	SavedAt time.Time      `json:"savedAt"`
	Chunks  []domain.Chunk `json:"chunks"`
}

// Load rebuilds the store from its snapshot. A missing or corrupt
// snapshot means "start empty", not an error: the snapshot is a cache
// of work already done, and indexing can always redo it.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[store] snapshot %s is corrupt, starting empty: %v", s.path, err)
		return nil
	}
	s.mu.Lock()
	s.chunks = make(map[string]domain.Chunk, len(snap.Chunks))
	s.order = make([]string, 0, len(snap.Chunks))
	for _, c := range snap.Chunks {
		if c.ID == "" {
			continue
		}
		if _, exists := s.chunks[c.ID]; !exists {
			s.order = append(s.order, c.ID)
		}
		s.chunks[c.ID] = c
	}
	s.mu.Unlock()
	log.Printf("[store] loaded %d chunks from %s", len(snap.Chunks), s.path)
	return nil
}

// Save persists the store to the snapshot file. Without force the write
// is debounced: repeated calls within the quiet window coalesce into a
// single flush. force writes now, but still waits for any in-flight
// write to finish first.
func (s *Store) Save(force bool) error {
	if !force {
		s.markDirty()
		return nil
	}
	s.timerMu.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.timerMu.Unlock()
	return s.flush()
}

// Close flushes any pending debounced save.
func (s *Store) Close() error {
	s.timerMu.Lock()
	pending := s.dirty
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.timerMu.Unlock()
	if !pending {
		return nil
	}
	return s.flush()
}

// markDirty records a mutation and arms the debounce timer if no flush
// is already pending.
func (s *Store) markDirty() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.dirty = true
	if s.saveTimer != nil {
		return
	}
	s.saveTimer = time.AfterFunc(s.debounce, func() {
		s.timerMu.Lock()
		s.saveTimer = nil
		s.timerMu.Unlock()
		if err := s.flush(); err != nil {
			log.Printf("[store] debounced save failed: %v", err)
		}
	})
}

// flush serializes the current state. saveMu guarantees one in-flight
// writer; the file lock keeps a second process off the same snapshot.
func (s *Store) flush() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snap := snapshotFile{SavedAt: time.Now().UTC(), Chunks: make([]domain.Chunk, 0, len(s.order))}
	for _, id := range s.order {
		snap.Chunks = append(snap.Chunks, s.chunks[id])
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("cannot create snapshot dir: %w", err)
	}

	l := flock.New(s.path + ".lock")
	deadline := time.Now().Add(5 * time.Second)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return fmt.Errorf("cannot acquire snapshot lock: %w", err)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("snapshot is locked by another process (lock: %s)", s.path+".lock")
		}
		time.Sleep(100 * time.Millisecond)
	}
	defer l.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cannot write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cannot replace snapshot: %w", err)
	}

	s.timerMu.Lock()
	s.dirty = false
	s.timerMu.Unlock()
	log.Printf("[store] saved %d chunks to %s", len(snap.Chunks), s.path)
	return nil
}

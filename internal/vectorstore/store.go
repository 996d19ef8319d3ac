package vectorstore

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

// Store is the in-memory chunk index. All reads and writes go through a
// single mutex; durability comes from the JSON snapshot (see snapshot.go),
// never from rescanning source files.
type Store struct {
	mu     sync.Mutex
	chunks map[string]domain.Chunk
	order  []string // insertion order, for stable ranking ties

	path     string
	debounce time.Duration

	saveMu    sync.Mutex // serializes snapshot writers
	timerMu   sync.Mutex
	saveTimer *time.Timer
	dirty     bool
}

func New(snapshotPath string) *Store {
	return &Store{
		chunks:   make(map[string]domain.Chunk),
		path:     snapshotPath,
		debounce: 3 * time.Second,
	}
}

// AddDocuments embeds each chunk and inserts it. Chunks that fail to
// embed are logged and skipped; the batch never aborts on one bad item,
// but an unreachable embedding endpoint stops the whole operation since
// every remaining item would fail the same way. yield, if non-nil, runs
// between items so a higher-priority task can interleave.
func (s *Store) AddDocuments(ctx context.Context, chunks []domain.Chunk, embedder domain.Embedder, persist bool, yield domain.Yield) error {
	for i := range chunks {
		if yield != nil {
			if err := yield(ctx); err != nil {
				return err
			}
		}
		vec, err := embedder.Embed(ctx, chunks[i].Content)
		if err != nil {
			var unreachable *domain.UnreachableError
			if errors.As(err, &unreachable) {
				return err
			}
			log.Printf("[store] skipping chunk %d of %s: %v", chunks[i].Metadata.ChunkIndex, chunks[i].Metadata.FilePath, err)
			continue
		}
		c := chunks[i]
		c.Embedding = vec
		s.insert(c)
	}
	if persist {
		return s.Save(false)
	}
	s.markDirty()
	return nil
}

func (s *Store) insert(c domain.Chunk) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.mu.Lock()
	if _, exists := s.chunks[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.chunks[c.ID] = c
	s.mu.Unlock()
}

// Search returns the top-k chunks by cosine similarity to query,
// descending, ties broken by insertion order. Chunks without an
// embedding are excluded. A stored vector of a different dimensionality
// fails fast rather than scoring garbage.
func (s *Store) Search(query []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]domain.SearchResult, 0, len(s.order))
	for _, id := range s.order {
		c := s.chunks[id]
		if len(c.Embedding) == 0 {
			continue
		}
		sim, err := Cosine(query, c.Embedding)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(sim) {
			sim = -1 // zero vectors rank last
		}
		results = append(results, domain.SearchResult{Content: c.Content, Metadata: c.Metadata, Similarity: sim})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// DeleteByFilePath removes every chunk whose metadata file path matches.
// It returns the number of chunks removed.
func (s *Store) DeleteByFilePath(path string) int {
	s.mu.Lock()
	removed := s.deleteByPathLocked(path)
	s.mu.Unlock()
	if removed > 0 {
		s.markDirty()
	}
	return removed
}

func (s *Store) deleteByPathLocked(path string) int {
	removed := 0
	kept := s.order[:0]
	for _, id := range s.order {
		if s.chunks[id].Metadata.FilePath == path {
			delete(s.chunks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

// ReplaceFile swaps all chunks for path with the given set in one lock
// acquisition, so readers never see old and new chunks for the same
// file at once. Chunks are embedded before the swap; items that fail to
// embed are skipped as in AddDocuments.
func (s *Store) ReplaceFile(ctx context.Context, path string, chunks []domain.Chunk, embedder domain.Embedder, yield domain.Yield) error {
	embedded := make([]domain.Chunk, 0, len(chunks))
	for i := range chunks {
		if yield != nil {
			if err := yield(ctx); err != nil {
				return err
			}
		}
		vec, err := embedder.Embed(ctx, chunks[i].Content)
		if err != nil {
			var unreachable *domain.UnreachableError
			if errors.As(err, &unreachable) {
				return err
			}
			log.Printf("[store] skipping chunk %d of %s: %v", chunks[i].Metadata.ChunkIndex, path, err)
			continue
		}
		c := chunks[i]
		c.Embedding = vec
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		embedded = append(embedded, c)
	}

	s.mu.Lock()
	s.deleteByPathLocked(path)
	for _, c := range embedded {
		if _, exists := s.chunks[c.ID]; !exists {
			s.order = append(s.order, c.ID)
		}
		s.chunks[c.ID] = c
	}
	s.mu.Unlock()
	s.markDirty()
	return nil
}

// Clear removes all chunks. Safe to call repeatedly.
func (s *Store) Clear() {
	s.mu.Lock()
	s.chunks = make(map[string]domain.Chunk)
	s.order = nil
	s.mu.Unlock()
	s.markDirty()
}

// Count reports the number of stored chunks.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Cosine computes cosine similarity between two vectors of equal length.
// The result is NaN when either vector is all-zero.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrVectorLengthMismatch
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

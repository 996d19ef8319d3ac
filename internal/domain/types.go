package domain

import "time"

// Metadata identifies where a chunk came from. FilePath is the stable
// identity key; Extra carries any additional fields and round-trips
// through the snapshot untouched.
type Metadata struct {
	FilePath   string            `json:"filePath"`
	FileName   string            `json:"fileName"`
	ChunkIndex int               `json:"chunkIndex"`
	FileType   string            `json:"fileType"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Chunk is the atomic indexed unit: a bounded substring of a source
// document plus its embedding. Embedding is nil until computed.
type Chunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata"`
}

// SearchResult is an ephemeral retrieval hit. Similarity is a ranking
// score: cosine similarity for vector search, a normalized match score
// for keyword search.
type SearchResult struct {
	Content    string
	Metadata   Metadata
	Similarity float64
}

// Source is one citation per distinct source file in an answer.
type Source struct {
	FilePath   string  `json:"filePath"`
	FileName   string  `json:"fileName"`
	ChunkIndex int     `json:"chunkIndex"`
	Relevance  float64 `json:"relevance"`
}

// IndexState describes the lifecycle of an indexing run.
type IndexState string

const (
	StateIdle     IndexState = "idle"
	StateIndexing IndexState = "indexing"
	StateError    IndexState = "error"
)

// IndexingError records one file that failed during a bulk run.
type IndexingError struct {
	FilePath string    `json:"filePath"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// IndexingStatus is a point-in-time snapshot of the orchestrator.
type IndexingStatus struct {
	State   IndexState      `json:"state"`
	Current int             `json:"current"`
	Total   int             `json:"total"`
	Errors  []IndexingError `json:"errors,omitempty"`
}

// Message is one chat exchange entry.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a persisted message thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

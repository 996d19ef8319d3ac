package chunker

import (
	"strings"

	"docqa/internal/domain"
)

// separators, coarsest first. The empty string terminates recursion: a
// piece that no separator can split is emitted whole, even oversized.
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// Splitter splits document text into overlapping chunks bounded by a
// character budget. Splitting is recursive: coarse separators are tried
// first and finer ones only where a piece still exceeds the budget, so
// paragraph and sentence boundaries survive where possible.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Split chunks text, stamping each output chunk's metadata with its
// 0-based position. Empty or whitespace-only input yields no chunks.
// Identical input always yields an identical sequence.
func (s *Splitter) Split(text string, base domain.Metadata) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.merge(s.split(text, 0), base)
}

// split breaks text into pieces each within the chunk budget, except
// atoms that no separator below level can divide.
func (s *Splitter) split(text string, level int) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	sep := separators[level]
	if sep == "" {
		// unsplittable atom, emitted oversized
		return []string{text}
	}
	parts := strings.SplitAfter(text, sep)
	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(part) > s.chunkSize {
			out = append(out, s.split(part, level+1)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// merge packs pieces into chunks up to chunkSize, carrying a soft
// overlap of trailing whole pieces into each following chunk. A chunk
// is only emitted when it contains material not already emitted.
func (s *Splitter) merge(pieces []string, base domain.Metadata) []domain.Chunk {
	var chunks []domain.Chunk
	emit := func(content string) {
		if strings.TrimSpace(content) == "" {
			return
		}
		md := base
		md.ChunkIndex = len(chunks)
		chunks = append(chunks, domain.Chunk{Content: content, Metadata: md})
	}

	var current []string
	currentLen := 0
	hasNew := false

	for _, piece := range pieces {
		if len(piece) > s.chunkSize {
			if hasNew {
				emit(strings.Join(current, ""))
			}
			emit(piece)
			current, currentLen, hasNew = nil, 0, false
			continue
		}
		if currentLen+len(piece) > s.chunkSize {
			if hasNew {
				emit(strings.Join(current, ""))
				current = s.overlapTail(current)
				currentLen = 0
				for _, p := range current {
					currentLen += len(p)
				}
				hasNew = false
			}
			// shrink the carried overlap until the new piece fits
			for len(current) > 0 && currentLen+len(piece) > s.chunkSize {
				currentLen -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentLen += len(piece)
		hasNew = true
	}
	if hasNew {
		emit(strings.Join(current, ""))
	}
	return chunks
}

// overlapTail keeps trailing whole tokens of the finished chunk, up to
// the overlap budget, to seed the next chunk. Pieces larger than the
// budget are re-split on spaces so a long sentence still contributes
// its final words.
func (s *Splitter) overlapTail(pieces []string) []string {
	if s.chunkOverlap == 0 {
		return nil
	}
	var toks []string
	for _, p := range pieces {
		if len(p) > s.chunkOverlap {
			for _, w := range strings.SplitAfter(p, " ") {
				if w != "" {
					toks = append(toks, w)
				}
			}
		} else {
			toks = append(toks, p)
		}
	}
	total := 0
	start := len(toks)
	for i := len(toks) - 1; i >= 0; i-- {
		if total+len(toks[i]) > s.chunkOverlap {
			break
		}
		total += len(toks[i])
		start = i
	}
	return append([]string(nil), toks[start:]...)
}

package chunker

import (
	"strings"
	"testing"

	"docqa/internal/domain"
)

func baseMeta() domain.Metadata {
	return domain.Metadata{FilePath: "/docs/notes.txt", FileName: "notes.txt", FileType: "txt"}
}

func TestSplit_EmptyInput(t *testing.T) {
	s := NewSplitter(100, 20)
	if got := s.Split("", baseMeta()); got != nil {
		t.Fatalf("expected nil for empty input, got %d chunks", len(got))
	}
	if got := s.Split("   \n\t  ", baseMeta()); got != nil {
		t.Fatalf("expected nil for whitespace input, got %d chunks", len(got))
	}
}

func TestSplit_SmallTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	chunks := s.Split("hello world", baseMeta())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "hello world" {
		t.Fatalf("unexpected content: %q", chunks[0].Content)
	}
	if chunks[0].Metadata.ChunkIndex != 0 {
		t.Fatalf("unexpected chunk index: %d", chunks[0].Metadata.ChunkIndex)
	}
}

func TestSplit_SizeBoundAndOrdering(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("sentence number ")
		b.WriteByte(byte('a' + i%26))
		b.WriteString(" carries some unique payload. ")
	}
	s := NewSplitter(120, 30)
	chunks := s.Split(b.String(), baseMeta())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Content) > 120 {
			t.Fatalf("chunk %d exceeds size bound: %d chars", i, len(c.Content))
		}
		if c.Metadata.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, c.Metadata.ChunkIndex)
		}
		if c.Metadata.FilePath != "/docs/notes.txt" {
			t.Fatalf("base metadata not carried through: %+v", c.Metadata)
		}
	}
}

func TestSplit_OverlapSharedBoundary(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("alpha beta gamma delta epsilon zeta eta theta. ")
	}
	s := NewSplitter(100, 40)
	chunks := s.Split(b.String(), baseMeta())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev, next := chunks[i-1].Content, chunks[i].Content
		shared := 0
		max := min(len(prev), len(next))
		for k := 1; k <= max; k++ {
			if strings.HasSuffix(prev, next[:k]) {
				shared = k
			}
		}
		if shared == 0 {
			t.Fatalf("chunks %d and %d share no boundary text", i-1, i)
		}
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	text := "The quarterly report is due March 15.\n\n" +
		"Budget review happens every second Tuesday of the month, " +
		"and all department heads must attend with their numbers prepared.\n" +
		"Travel requests go through the portal. Reimbursements take ten days.\n\n" +
		"Office hours are nine to five, with the building locked at eight."
	s := NewSplitter(80, 20)
	chunks := s.Split(text, baseMeta())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	rebuilt := chunks[0].Content
	for i := 1; i < len(chunks); i++ {
		next := chunks[i].Content
		shared := 0
		max := min(len(rebuilt), len(next))
		for k := 1; k <= max; k++ {
			if strings.HasSuffix(rebuilt, next[:k]) {
				shared = k
			}
		}
		rebuilt += next[shared:]
	}
	if rebuilt != text {
		t.Fatalf("round-trip mismatch:\nwant %q\ngot  %q", text, rebuilt)
	}
}

func TestSplit_OversizedAtom(t *testing.T) {
	atom := strings.Repeat("x", 250)
	text := "short lead. " + atom + " short tail."
	s := NewSplitter(100, 10)
	chunks := s.Split(text, baseMeta())
	found := false
	for _, c := range chunks {
		if len(c.Content) > 100 {
			if !strings.Contains(c.Content, atom) {
				t.Fatalf("oversized chunk is not the atom: %q", c.Content)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("expected the unsplittable atom to form an oversized chunk")
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("one two three four five six seven eight nine ten. ", 25)
	s := NewSplitter(90, 25)
	a := s.Split(text, baseMeta())
	b := s.Split(text, baseMeta())
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Content != b[i].Content || a[i].Metadata.ChunkIndex != b[i].Metadata.ChunkIndex {
			t.Fatalf("non-deterministic chunk %d", i)
		}
	}
}

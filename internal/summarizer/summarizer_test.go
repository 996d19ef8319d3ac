package summarizer

import (
	"strings"
	"testing"
)

func TestSummarize_PicksFrequentTopicSentences(t *testing.T) {
	text := "The migration plan covers the database. The migration requires a maintenance window. " +
		"Lunch is at noon on Fridays. The database migration finishes in April."
	s := NewExtractive()
	summary := s.Summarize(text, 2)

	if !strings.Contains(summary, "migration") {
		t.Fatalf("summary dropped the dominant topic: %q", summary)
	}
	if strings.Contains(summary, "Lunch") {
		t.Fatalf("summary kept an off-topic sentence: %q", summary)
	}
	if n := strings.Count(summary, "."); n > 2 {
		t.Fatalf("summary has %d sentences, want at most 2: %q", n, summary)
	}
}

func TestSummarize_PreservesOriginalOrder(t *testing.T) {
	text := "Alpha release ships the core engine. Beta release adds the alpha engine dashboard. Release candidate freezes the engine."
	s := NewExtractive()
	summary := s.Summarize(text, 3)

	alpha := strings.Index(summary, "Alpha")
	beta := strings.Index(summary, "Beta")
	if alpha == -1 || beta == -1 || alpha > beta {
		t.Fatalf("sentence order not preserved: %q", summary)
	}
}

func TestSummarize_NoSentenceBoundaries(t *testing.T) {
	s := NewExtractive()
	if got := s.Summarize("  just a fragment without punctuation  ", 3); got != "just a fragment without punctuation" {
		t.Fatalf("fragment should be returned trimmed: %q", got)
	}
}

func TestSummarizeChunks_JoinsInOrder(t *testing.T) {
	s := NewExtractive()
	chunks := []string{
		"The backup job runs nightly. The backup target is S3.",
		"Restores are tested monthly. The backup retention is 30 days.",
	}
	summary := s.SummarizeChunks(chunks, 2)
	if !strings.Contains(summary, "backup") {
		t.Fatalf("summary missed the dominant topic: %q", summary)
	}
}

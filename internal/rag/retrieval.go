package rag

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// Hybrid retrieval tuning. Keyword hits carry more fusion weight than
// vector hits: exact term matches are trusted over embedding proximity.
const (
	rrfK          = 60
	keywordWeight = 1.2
	vectorWeight  = 1.0
	vectorFloor   = 0.45 // vector hits below this similarity never enter fusion
	searchDepth   = 8    // per-method candidate list length
	maxPerFile    = 3
	maxResults    = 5
)

var (
	greetingRe = regexp.MustCompile(`(?i)^\s*(?:(?:hi|hiya|hello|hey|yo|howdy|good\s*(?:morning|afternoon|evening|night)|how\s*are\s*you|thanks|thank\s*you|thx|bye|goodbye|see\s*you)\b|안녕|하이|반가워|감사|고마워)`)

	// words that suggest the user actually wants something looked up
	docSeekingRe = regexp.MustCompile(`(?i)(document|file|folder|search|find|look|show|list|tell|what|where|when|who|why|how|which|policy|procedure|report|note|문서|파일|검색|찾아|알려|뭐야|무엇|어디|언제|누구|방법|규정)`)

	terminalPunctRe = regexp.MustCompile(`[?？!！.。,，]`)

	// "2025년 3월" -> "2025.03" and a bare "3월" -> "03", so date-like
	// queries match the sortable tokens documents tend to contain
	yearMonthRe = regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월`)
	monthRe     = regexp.MustCompile(`(\d{1,2})월`)
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"about": true, "with": true, "and": true, "or": true, "my": true,
	"me": true, "please": true, "can": true, "you": true, "do": true,
	"does": true, "it": true, "this": true, "that": true, "there": true,
	"what": true, "how": true, "why": true, "where": true, "when": true,
	"which": true, "who": true,
	"내용": true, "알려줘": true, "뭐야": true, "있어": true, "대한": true,
	"관련": true, "주세요": true, "해줘": true, "찾아줘": true, "폴더": true,
	"파일": true, "문서": true, "에서": true, "대해": true, "대해서": true,
	"어떤": true, "무슨": true, "보여줘": true, "검색": true, "무엇": true,
	"어떻게": true, "왜": true,
}

// questionKind drives the three-way prompt branch.
type questionKind int

const (
	kindGreeting questionKind = iota
	kindSmallTalk
	kindRetrieval
)

// classify decides whether a question needs retrieval at all. Greetings
// and very short inputs without any document-seeking word go straight to
// generation with empty context.
func classify(question string) questionKind {
	if greetingRe.MatchString(question) {
		return kindGreeting
	}
	if len([]rune(strings.TrimSpace(question))) < 10 && !docSeekingRe.MatchString(question) {
		return kindSmallTalk
	}
	return kindRetrieval
}

// extractKeywords normalizes the question and tokenizes it for keyword
// search: terminal punctuation stripped, date-like patterns canonicalized,
// stop words and sub-2-rune tokens dropped.
func extractKeywords(question string) []string {
	q := terminalPunctRe.ReplaceAllString(question, "")
	q = yearMonthRe.ReplaceAllStringFunc(q, func(m string) string {
		parts := yearMonthRe.FindStringSubmatch(m)
		return parts[1] + "." + pad2(parts[2])
	})
	q = monthRe.ReplaceAllStringFunc(q, func(m string) string {
		return pad2(monthRe.FindStringSubmatch(m)[1])
	})

	var keywords []string
	for _, tok := range strings.Fields(q) {
		if len([]rune(tok)) < 2 {
			continue
		}
		if stopWords[strings.ToLower(tok)] {
			continue
		}
		keywords = append(keywords, tok)
	}
	return keywords
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// fuse merges a keyword-ranked and a vector-ranked list with Reciprocal
// Rank Fusion. A chunk found by both methods accumulates both
// contributions; low-similarity vector hits are excluded entirely. The
// fused list is capped per source file and truncated to maxResults.
func fuse(keywordResults, vectorResults []domain.SearchResult) []domain.SearchResult {
	type fused struct {
		score  float64
		result domain.SearchResult
	}
	scores := make(map[string]*fused)
	var keys []string // insertion order, for deterministic ties

	add := func(r domain.SearchResult, rank int, weight float64) {
		key := fmt.Sprintf("%s_%d", r.Metadata.FilePath, r.Metadata.ChunkIndex)
		contribution := weight / float64(rrfK+rank+1)
		if f, ok := scores[key]; ok {
			f.score += contribution
			return
		}
		scores[key] = &fused{score: contribution, result: r}
		keys = append(keys, key)
	}

	for rank, r := range keywordResults {
		add(r, rank, keywordWeight)
	}
	for rank, r := range vectorResults {
		if r.Similarity < vectorFloor {
			continue
		}
		add(r, rank, vectorWeight)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return scores[keys[i]].score > scores[keys[j]].score
	})

	perFile := make(map[string]int)
	var out []domain.SearchResult
	for _, key := range keys {
		f := scores[key]
		file := f.result.Metadata.FilePath
		if perFile[file] >= maxPerFile {
			continue
		}
		perFile[file]++
		r := f.result
		r.Similarity = f.score
		out = append(out, r)
		if len(out) >= maxResults {
			break
		}
	}
	return out
}

// extractSources yields one citation per distinct source file, keeping
// the first-seen (highest-ranked) chunk for each.
func extractSources(results []domain.SearchResult) []domain.Source {
	seen := make(map[string]bool)
	var sources []domain.Source
	for _, r := range results {
		if r.Metadata.FilePath == "" || seen[r.Metadata.FilePath] {
			continue
		}
		seen[r.Metadata.FilePath] = true
		sources = append(sources, domain.Source{
			FilePath:   r.Metadata.FilePath,
			FileName:   r.Metadata.FileName,
			ChunkIndex: r.Metadata.ChunkIndex,
			Relevance:  r.Similarity,
		})
	}
	return sources
}

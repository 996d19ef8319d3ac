package vectorstore

import (
	"math"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// keyword scoring weights. Filename matches are trusted most; content
// term frequency is log-damped so repetition yields diminishing returns.
const (
	fileNameWeight = 3.0
	filePathWeight = 1.5
	joinedBonus    = 2.0
)

// SearchByKeyword scores every chunk against the keywords and returns
// the top-k, similarity normalized so the best hit is always 1.0. An
// empty keyword set yields no results.
func (s *Store) SearchByKeyword(keywords []string, k int) []domain.SearchResult {
	if len(keywords) == 0 {
		return nil
	}
	if k <= 0 {
		k = 5
	}
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	if len(lowered) == 0 {
		return nil
	}
	// "monthly report" should also hit "monthlyreport.txt"
	joined := strings.Join(lowered, "")

	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		result domain.SearchResult
		score  float64
	}
	var hits []scored
	maxScore := 0.0
	for _, id := range s.order {
		c := s.chunks[id]
		name := strings.ToLower(c.Metadata.FileName)
		path := strings.ToLower(c.Metadata.FilePath)
		content := strings.ToLower(c.Content)

		score := 0.0
		for _, kw := range lowered {
			switch {
			case strings.Contains(name, kw):
				score += fileNameWeight
			case strings.Contains(path, kw):
				score += filePathWeight
			}
			if tf := strings.Count(content, kw); tf > 0 {
				score += math.Log1p(float64(tf))
			}
		}
		if len(lowered) > 1 && (strings.Contains(name, joined) || strings.Contains(path, joined)) {
			score += joinedBonus
		}
		if score <= 0 {
			continue
		}
		if score > maxScore {
			maxScore = score
		}
		hits = append(hits, scored{
			result: domain.SearchResult{Content: c.Content, Metadata: c.Metadata},
			score:  score,
		})
	}
	if len(hits) == 0 {
		return nil
	}
	for i := range hits {
		hits[i].result.Similarity = hits[i].score / maxScore
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if k > len(hits) {
		k = len(hits)
	}
	out := make([]domain.SearchResult, k)
	for i := 0; i < k; i++ {
		out[i] = hits[i].result
	}
	return out
}

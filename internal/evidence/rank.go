// Package evidence gathers candidate evidence for a claim: it fans queries
// out across retrieval channels, merges and deduplicates the results, ranks
// them by lexical relevance, filters out unreachable URLs and enriches the
// top hits with page-extracted snippets.
package evidence

import (
	"sort"
	"strings"
	"unicode"

	"github.com/checkai/checkai/internal/model"
)

// Tokenize lowercases the text, replaces every non-alphanumeric rune with a
// space, splits on whitespace and discards tokens shorter than two runes.
func Tokenize(text string) map[string]bool {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	tokens := make(map[string]bool)
	for _, t := range strings.Fields(mapped) {
		if len([]rune(t)) >= 2 {
			tokens[t] = true
		}
	}
	return tokens
}

// OverlapScore measures lexical overlap between two texts as
// |A ∩ B| / min(|A|, |B|). Identical non-trivial texts score 1; disjoint
// texts score 0.
func OverlapScore(a, b string) float64 {
	ta := Tokenize(a)
	tb := Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if tb[t] {
			inter++
		}
	}
	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(inter) / float64(smaller)
}

// rankByRelevance sorts candidates by overlap between the claim text and
// title+quote, descending. The sort is stable so ties keep merge order.
func rankByRelevance(claimText string, candidates []model.EvidenceCandidate) []model.EvidenceCandidate {
	type scored struct {
		candidate model.EvidenceCandidate
		score     float64
	}
	items := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, scored{
			candidate: c,
			score:     OverlapScore(claimText, c.Title+" "+c.Quote),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})
	out := make([]model.EvidenceCandidate, 0, len(items))
	for _, item := range items {
		out = append(out, item.candidate)
	}
	return out
}

// dedupeByURL keeps the first candidate per exact URL
func dedupeByURL(candidates []model.EvidenceCandidate) []model.EvidenceCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]model.EvidenceCandidate, 0, len(candidates))
	for _, c := range candidates {
		url := strings.TrimSpace(c.URL)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, c)
	}
	return out
}

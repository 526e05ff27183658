// Package claims turns gated sentences into sanitized, deduplicated Claim
// records, using the structured model backend when it is available and a
// deterministic heuristic when it is not.
package claims

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/checkai/checkai/internal/model"
)

// Sentence pairs a sentence with its location in the source document
type Sentence struct {
	Text string           `json:"text"`
	Span model.SourceSpan `json:"source_span"`
}

var sentenceSplitRe = regexp.MustCompile(`\s+|，|、|；|,`)

// HeuristicClaim builds a deterministic claim for a sentence: subject from
// the first token, predicate from the next one to three tokens, object from
// the full sentence. Confidence is derived from the gate score.
func HeuristicClaim(text string, span model.SourceSpan, score int) model.Claim {
	stripped := strings.NewReplacer("。", " ", "！", " ", "？", " ", "!", " ", "?", " ").Replace(text)
	var tokens []string
	for _, t := range sentenceSplitRe.Split(stripped, -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}

	subject := "主体未知"
	if len(tokens) > 0 {
		subject = tokens[0]
	}
	predicate := "提出主张"
	if len(tokens) > 1 {
		end := len(tokens)
		if end > 4 {
			end = 4
		}
		predicate = strings.Join(tokens[1:end], " ")
	}
	object := strings.TrimSpace(text)
	if object == "" {
		object = subject
	}

	return model.Claim{
		ID:   uuid.NewString(),
		Text: strings.TrimSpace(text),
		Normalized: model.NormalizedClaim{
			Subject:   subject,
			Predicate: predicate,
			Object:    object,
		},
		Checkworthy: true,
		Confidence:  confidenceFromScore(score),
		SourceSpan:  span,
	}
}

// confidenceFromScore maps a gate score onto [0.5, 0.95]
func confidenceFromScore(score int) float64 {
	if score > 6 {
		score = 6
	}
	base := 0.6 + float64(score)*0.05
	if base < 0.5 {
		return 0.5
	}
	if base > 0.95 {
		return 0.95
	}
	return base
}

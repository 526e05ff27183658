package claims

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/checkai/checkai/internal/gate"
	"github.com/checkai/checkai/internal/llm"
	"github.com/checkai/checkai/internal/model"
)

// minClaimFloor is the minimum number of claims the synthesizer tries to
// return when heuristic fallbacks are available to top up with
const minClaimFloor = 5

const (
	allowInstruction = "你是事实核查专家。收到的句子已通过可核查性初筛，请严格抽取可核查陈述。仅输出 JSON: {\"claims\":[Claim,...],\"uncertain_reason\":string|null}。Claim 字段必须包含 id,text,normalized,checkworthy,confidence,source_span；normalized 含 subject/predicate/object，time/unit/location/event/entities/numbers/qualifiers 可选；置信度 0-1。"
	reviewInstruction = "你是事实核查专家。收到的句子可能不适合核查，请先判断每句是否为可核查陈述，只为可核查的句子输出 Claim。仅输出 JSON: {\"claims\":[Claim,...],\"uncertain_reason\":string|null}。Claim 字段必须包含 id,text,normalized,checkworthy,confidence,source_span；normalized 含 subject/predicate/object，time/unit/location/event/entities/numbers/qualifiers 可选；置信度 0-1。"
)

// Synthesizer turns gated sentence batches into sanitized claims
type Synthesizer struct {
	client    *llm.Client
	modelName string
	logger    *slog.Logger
	newID     func() string
}

// NewSynthesizer creates a claim synthesizer. A nil client is valid and
// means every batch resolves to its heuristic fallback.
func NewSynthesizer(client *llm.Client, modelName string, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{client: client, modelName: modelName, logger: logger}
}

// gatedSentence is a sentence that survived the gate, with its score kept
// for fallback confidence derivation
type gatedSentence struct {
	Sentence
	score int
}

// Extract runs the gate over all sentences, synthesizes claims for the
// ALLOW and REVIEW batches, and returns the merged, deduplicated result
// sorted by source span. Rejected sentences never reach the model.
func (s *Synthesizer) Extract(ctx context.Context, sentences []Sentence, docContext string) []model.Claim {
	var allow, review []gatedSentence
	for _, sent := range sentences {
		res := gate.Evaluate(sent.Text)
		switch res.Decision {
		case gate.Allow:
			allow = append(allow, gatedSentence{Sentence: sent, score: res.Score})
		case gate.Review:
			review = append(review, gatedSentence{Sentence: sent, score: res.Score})
		}
	}

	var merged []model.Claim
	var allFallback []model.Claim
	for _, batch := range []struct {
		sentences   []gatedSentence
		instruction string
	}{
		{allow, allowInstruction},
		{review, reviewInstruction},
	} {
		if len(batch.sentences) == 0 {
			continue
		}
		claims, fallback := s.extractBatch(ctx, batch.sentences, batch.instruction, docContext)
		merged = append(merged, claims...)
		allFallback = append(allFallback, fallback...)
	}

	merged = dedupeBySpan(merged)
	merged = topUp(merged, allFallback)
	sortBySpan(merged)
	return merged
}

// extractBatch synthesizes claims for one batch and returns both the
// sanitized result and the heuristic fallback list used for top-up
func (s *Synthesizer) extractBatch(ctx context.Context, batch []gatedSentence, instruction, docContext string) ([]model.Claim, []model.Claim) {
	fallback := make([]model.Claim, 0, len(batch))
	for _, gs := range batch {
		fallback = append(fallback, HeuristicClaim(gs.Text, gs.Span, gs.score))
	}

	if !s.client.Configured() {
		return fallback, fallback
	}

	payload, err := json.Marshal(map[string]any{
		"sentences": toSentences(batch),
		"context":   nullable(docContext),
	})
	if err != nil {
		s.logger.Warn("encode extraction payload", slog.Any("error", err))
		return fallback, fallback
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: instruction},
		{Role: llm.RoleUser, Content: string(payload)},
	}

	fallbackResp := extractionResponse{}
	resp := llm.CallJSON(ctx, s.client, messages, fallbackResp, s.modelName)
	if len(resp.Claims) == 0 {
		return fallback, fallback
	}

	sanitized := sanitizeClaims(resp.Claims, fallback, s.newID)
	if len(sanitized) == 0 {
		return fallback, fallback
	}
	return sanitized, fallback
}

// dedupeBySpan keeps the first claim per (paragraph, sentence) span
func dedupeBySpan(claims []model.Claim) []model.Claim {
	seen := make(map[[2]int]bool)
	out := claims[:0]
	for _, c := range claims {
		key := c.SpanKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// topUp appends fallback claims for spans not already present until the
// floor is reached
func topUp(claims, fallback []model.Claim) []model.Claim {
	if len(claims) >= minClaimFloor || len(fallback) == 0 {
		return claims
	}
	present := make(map[[2]int]bool, len(claims))
	for _, c := range claims {
		present[c.SpanKey()] = true
	}
	for _, fb := range fallback {
		if len(claims) >= minClaimFloor {
			break
		}
		key := fb.SpanKey()
		if present[key] {
			continue
		}
		present[key] = true
		claims = append(claims, fb)
	}
	return claims
}

func sortBySpan(claims []model.Claim) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i].SourceSpan, claims[j].SourceSpan
		if a.ParagraphIndex != b.ParagraphIndex {
			return a.ParagraphIndex < b.ParagraphIndex
		}
		return a.SentenceIndex < b.SentenceIndex
	})
}

func toSentences(batch []gatedSentence) []Sentence {
	out := make([]Sentence, 0, len(batch))
	for _, gs := range batch {
		out = append(out, gs.Sentence)
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

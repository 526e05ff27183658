package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/checkai/checkai/internal/llm"
	"github.com/checkai/checkai/internal/model"
)

const verdictInstruction = "你是联网事实核查裁定器。结合提供的证据，输出 JSON {\"label\":\"SUPPORTED|REFUTED|DISPUTED|INSUFFICIENT\",\"confidence\":0-1,\"reason\":string,\"citations\":[{\"url\":string,\"title\":string}]}，理由需引用证据编号或来源名。不得臆造引用。"

type verdictCitation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type verdictResponse struct {
	Label      string            `json:"label"`
	Confidence float64           `json:"confidence"`
	Reason     string            `json:"reason"`
	Citations  []verdictCitation `json:"citations"`
}

// Fuser produces the final verification for a claim. It prefers a single
// model-generated verdict and falls back to weighted entailment fusion when
// the model is unconfigured or fails.
type Fuser struct {
	client    *llm.Client
	modelName string
	scorer    EntailmentScorer
	policy    model.VerifyConfig
	logger    *slog.Logger
}

// NewFuser creates a verification fuser
func NewFuser(client *llm.Client, modelName string, scorer EntailmentScorer, policy model.VerifyConfig, logger *slog.Logger) *Fuser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fuser{
		client:    client,
		modelName: modelName,
		scorer:    scorer,
		policy:    policy,
		logger:    logger,
	}
}

// Verify derives a verdict for the claim from the supplied evidence.
// Evidence beyond the configured maximum is ignored. With no evidence at
// all it returns INSUFFICIENT immediately without scoring anything.
func (f *Fuser) Verify(ctx context.Context, claim model.Claim, evidences []model.EvidenceCandidate, docContext string) model.Verification {
	if max := f.policy.MaxEvidence; max > 0 && len(evidences) > max {
		evidences = evidences[:max]
	}

	if len(evidences) == 0 {
		return model.Verification{
			ClaimID:    claim.ID,
			Label:      model.LabelInsufficient,
			Confidence: 0.4,
			Reason:     noEvidenceReason,
			Citations:  []string{},
		}
	}

	if verdict, ok := f.modelVerdict(ctx, claim, evidences, docContext); ok {
		return verdict
	}

	return f.fuse(ctx, claim, evidences)
}

// modelVerdict asks the model for a direct ruling over the numbered
// evidence list. ok is false when the model is unconfigured or the reply
// was unusable.
func (f *Fuser) modelVerdict(ctx context.Context, claim model.Claim, evidences []model.EvidenceCandidate, docContext string) (model.Verification, bool) {
	if !f.client.Configured() {
		return model.Verification{}, false
	}

	type numberedEvidence struct {
		ID          int     `json:"id"`
		Title       string  `json:"title"`
		Quote       string  `json:"quote"`
		URL         string  `json:"url"`
		Authority   float64 `json:"authority"`
		PublishedAt string  `json:"published_at,omitempty"`
	}
	numbered := make([]numberedEvidence, 0, len(evidences))
	for i, e := range evidences {
		numbered = append(numbered, numberedEvidence{
			ID:          i + 1,
			Title:       e.Title,
			Quote:       e.Quote,
			URL:         e.URL,
			Authority:   e.Authority,
			PublishedAt: e.PublishedAt,
		})
	}

	payload, err := json.Marshal(map[string]any{
		"claim":      claim.Text,
		"normalized": claim.Normalized,
		"context":    docContext,
		"evidences":  numbered,
	})
	if err != nil {
		f.logger.Warn("encode verdict payload", slog.Any("error", err))
		return model.Verification{}, false
	}

	resp := llm.CallJSON(ctx, f.client, []llm.Message{
		{Role: llm.RoleSystem, Content: verdictInstruction},
		{Role: llm.RoleUser, Content: string(payload)},
	}, verdictResponse{}, f.modelName)

	// An empty label means the call fell through to its fallback
	if strings.TrimSpace(resp.Label) == "" {
		return model.Verification{}, false
	}

	citations := make([]string, 0, len(resp.Citations))
	for _, c := range resp.Citations {
		if url := strings.TrimSpace(c.URL); url != "" {
			citations = append(citations, url)
		}
	}

	return model.Verification{
		ClaimID:    claim.ID,
		Label:      model.NormalizeLabel(resp.Label),
		Confidence: clampVerdictConfidence(resp.Confidence),
		Reason:     cleanReason(resp.Reason),
		Citations:  capCitations(dedupeStrings(citations)),
	}, true
}

// fuse runs the weighted entailment fallback over the first few evidence
// items
func (f *Fuser) fuse(ctx context.Context, claim model.Claim, evidences []model.EvidenceCandidate) model.Verification {
	if max := f.policy.MaxEntailEvidence; max > 0 && len(evidences) > max {
		evidences = evidences[:max]
	}

	scored := make([]ScoredEvidence, 0, len(evidences))
	for _, e := range evidences {
		premise := e.Quote
		if premise == "" {
			premise = e.Title
		}
		scored = append(scored, ScoredEvidence{
			Evidence: e,
			Score:    f.scorer.Score(ctx, claim.Text, premise),
		})
	}
	return FuseScores(claim.ID, scored, f.policy)
}

// clampVerdictConfidence keeps model-reported confidence in [0.1, 1],
// collapsing non-finite values to the moderate default
func clampVerdictConfidence(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.4
	}
	if v < 0.1 {
		return 0.1
	}
	if v > 1 {
		return 1
	}
	return v
}

var (
	codeRefRe   = regexp.MustCompile(`\(?(?:id|ID)\s*:\s*[^)]+\)?`)
	inlineTagRe = regexp.MustCompile("`{1,3}[^`]+`{1,3}")
	multiWSRe   = regexp.MustCompile(`\s{2,}`)
)

// cleanReason strips code-reference artifacts the model sometimes leaves in
// its explanation. An empty result falls back to the no-evidence reason.
func cleanReason(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return noEvidenceReason
	}
	cleaned := codeRefRe.ReplaceAllString(trimmed, "")
	cleaned = inlineTagRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(multiWSRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return noEvidenceReason
	}
	return cleaned
}

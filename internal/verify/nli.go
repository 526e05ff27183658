// Package verify turns a claim plus its gathered evidence into a single
// labeled verdict. The preferred path asks the model for a verdict directly;
// when that is unavailable it fuses per-evidence entailment triples weighted
// by source authority.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/checkai/checkai/internal/llm"
)

// Triple is the three-way entailment distribution relating one evidence
// snippet to a claim. The components always sum to 1 after Normalize.
type Triple struct {
	Entail     float64 `json:"entail"`
	Contradict float64 `json:"contradict"`
	Neutral    float64 `json:"neutral"`
}

// Normalize rescales the triple so its components sum to 1. An all-zero
// triple is left as-is rather than divided by zero.
func (t Triple) Normalize() Triple {
	total := t.Entail + t.Contradict + t.Neutral
	if total == 0 {
		total = 1
	}
	return Triple{
		Entail:     t.Entail / total,
		Contradict: t.Contradict / total,
		Neutral:    t.Neutral / total,
	}
}

// uncertainTriple is the terminal fallback when neither the NLI endpoint
// nor the model can score a pair
var uncertainTriple = Triple{Entail: 0.34, Contradict: 0.33, Neutral: 0.33}

// EntailmentScorer scores how an evidence snippet relates to a claim.
// Implementations never fail; they degrade to an uncertain triple.
type EntailmentScorer interface {
	Score(ctx context.Context, claimText, evidenceText string) Triple
}

// HFClassifier calls a HuggingFace inference endpoint hosting an NLI model.
// It is optional; without an API key every call reports unconfigured.
type HFClassifier struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
}

// NewHFClassifier creates an NLI classifier client
func NewHFClassifier(httpClient *http.Client, endpoint, apiKey, model string) *HFClassifier {
	return &HFClassifier{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Configured reports whether the classifier can be called
func (h *HFClassifier) Configured() bool { return h.apiKey != "" }

// Score classifies the (evidence, claim) pair as (premise, hypothesis).
// The returned triple is normalized. ok is false on any failure.
func (h *HFClassifier) Score(ctx context.Context, claimText, evidenceText string) (Triple, bool) {
	if !h.Configured() {
		return Triple{}, false
	}

	body, err := json.Marshal(map[string]any{
		"inputs": map[string]string{
			"premise":    evidenceText,
			"hypothesis": claimText,
		},
	})
	if err != nil {
		return Triple{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+"/"+h.model, bytes.NewReader(body))
	if err != nil {
		return Triple{}, false
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return Triple{}, false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Triple{}, false
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1_000_000))
	if err != nil {
		return Triple{}, false
	}

	probs, ok := decodeHFLabels(raw)
	if !ok {
		return Triple{}, false
	}

	var t Triple
	for _, p := range probs {
		label := strings.ToLower(p.Label)
		switch {
		case strings.Contains(label, "entail"):
			t.Entail = p.Score
		case strings.Contains(label, "contrad"):
			t.Contradict = p.Score
		case strings.Contains(label, "neutral"):
			t.Neutral = p.Score
		}
	}
	return t.Normalize(), true
}

type hfLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// decodeHFLabels accepts both the flat and the nested array shapes the
// inference API is known to emit
func decodeHFLabels(raw []byte) ([]hfLabel, bool) {
	var flat []hfLabel
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 && flat[0].Label != "" {
		return flat, true
	}
	var nested [][]hfLabel
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], true
	}
	return nil, false
}

const nliInstruction = "你是事实核查 NLI 模型。收到 claim 与 evidence，输出 JSON: {\"entail\":0-1,\"contradict\":0-1,\"neutral\":0-1,\"uncertain_reason\":string|null}，三者相加=1。"

type nliResponse struct {
	Entail          float64 `json:"entail"`
	Contradict      float64 `json:"contradict"`
	Neutral         float64 `json:"neutral"`
	UncertainReason string  `json:"uncertain_reason"`
}

// Scorer is the layered entailment scorer: the external NLI classifier
// when configured, then a model-based estimate, then the uncertain triple.
type Scorer struct {
	classifier *HFClassifier
	client     *llm.Client
	modelName  string
	logger     *slog.Logger
}

// NewScorer creates the layered scorer. classifier may be nil.
func NewScorer(classifier *HFClassifier, client *llm.Client, modelName string, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{classifier: classifier, client: client, modelName: modelName, logger: logger}
}

// Score implements EntailmentScorer
func (s *Scorer) Score(ctx context.Context, claimText, evidenceText string) Triple {
	if s.classifier != nil {
		if t, ok := s.classifier.Score(ctx, claimText, evidenceText); ok {
			return t
		}
	}

	if !s.client.Configured() {
		return uncertainTriple
	}

	payload, err := json.Marshal(map[string]string{
		"claim":    claimText,
		"evidence": evidenceText,
	})
	if err != nil {
		s.logger.Warn("encode entailment payload", slog.Any("error", err))
		return uncertainTriple
	}

	fallback := nliResponse{
		Entail:          uncertainTriple.Entail,
		Contradict:      uncertainTriple.Contradict,
		Neutral:         uncertainTriple.Neutral,
		UncertainReason: "model_unavailable",
	}
	resp := llm.CallJSON(ctx, s.client, []llm.Message{
		{Role: llm.RoleSystem, Content: nliInstruction},
		{Role: llm.RoleUser, Content: string(payload)},
	}, fallback, s.modelName)

	t := Triple{Entail: resp.Entail, Contradict: resp.Contradict, Neutral: resp.Neutral}
	if t.Entail < 0 || t.Contradict < 0 || t.Neutral < 0 {
		return uncertainTriple
	}
	return t.Normalize()
}

var _ EntailmentScorer = (*Scorer)(nil)

// formatScore renders a probability the way reasons quote it
func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

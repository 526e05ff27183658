package verify

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/checkai/checkai/internal/llm"
	"github.com/checkai/checkai/internal/model"
)

// fixedCompleter implements llm.Completer with one canned reply
type fixedCompleter struct {
	configured bool
	reply      string
	calls      int
}

func (f *fixedCompleter) Name() string     { return "fixed" }
func (f *fixedCompleter) Configured() bool { return f.configured }

func (f *fixedCompleter) Complete(ctx context.Context, messages []llm.Message, modelName string) (string, error) {
	f.calls++
	return f.reply, nil
}

// countingScorer implements EntailmentScorer with a fixed triple
type countingScorer struct {
	triple Triple
	calls  int
}

func (s *countingScorer) Score(ctx context.Context, claimText, evidenceText string) Triple {
	s.calls++
	return s.triple
}

func fuserClaim() model.Claim {
	return model.Claim{
		ID:   "claim-1",
		Text: "2023年全球经济增长了3%",
		Normalized: model.NormalizedClaim{
			Subject:   "全球经济",
			Predicate: "增长",
			Object:    "3%",
		},
	}
}

func someEvidence(n int) []model.EvidenceCandidate {
	out := make([]model.EvidenceCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.EvidenceCandidate{
			ID:        "e" + string(rune('0'+i)),
			URL:       "https://example.com/" + string(rune('a'+i)),
			Title:     "Evidence",
			Quote:     "the economy grew",
			Authority: 0.8,
		})
	}
	return out
}

func TestVerify_NoEvidence(t *testing.T) {
	scorer := &countingScorer{triple: uncertainTriple}
	backend := &fixedCompleter{configured: true, reply: `{"label": "SUPPORTED"}`}
	f := NewFuser(llm.NewClient(backend, 0, nil), "m", scorer, testPolicy(), nil)

	v := f.Verify(context.Background(), fuserClaim(), nil, "")
	if v.Label != model.LabelInsufficient {
		t.Errorf("expected INSUFFICIENT, got %s", v.Label)
	}
	if v.Confidence > 0.5 {
		t.Errorf("expected confidence <= 0.5, got %v", v.Confidence)
	}
	if len(v.Citations) != 0 {
		t.Errorf("expected no citations, got %v", v.Citations)
	}
	if scorer.calls != 0 {
		t.Errorf("expected no NLI calls for zero evidence, got %d", scorer.calls)
	}
	if backend.calls != 0 {
		t.Errorf("expected no model calls for zero evidence, got %d", backend.calls)
	}
}

func TestVerify_ModelVerdictPreferred(t *testing.T) {
	scorer := &countingScorer{triple: uncertainTriple}
	backend := &fixedCompleter{
		configured: true,
		reply:      `{"label": "supported by evidence", "confidence": 0.88, "reason": "证据1与陈述一致", "citations": [{"url": "https://example.com/a", "title": "Evidence"}]}`,
	}
	f := NewFuser(llm.NewClient(backend, 0, nil), "m", scorer, testPolicy(), nil)

	v := f.Verify(context.Background(), fuserClaim(), someEvidence(2), "context")
	if v.Label != model.LabelSupported {
		t.Errorf("expected SUPPORTED from substring match, got %s", v.Label)
	}
	if v.Confidence != 0.88 {
		t.Errorf("expected model confidence kept, got %v", v.Confidence)
	}
	if len(v.Citations) != 1 || v.Citations[0] != "https://example.com/a" {
		t.Errorf("unexpected citations: %v", v.Citations)
	}
	if scorer.calls != 0 {
		t.Errorf("model verdict should skip entailment scoring, got %d calls", scorer.calls)
	}
}

func TestVerify_FallsBackToFusionOnModelFailure(t *testing.T) {
	scorer := &countingScorer{triple: Triple{Entail: 0.9, Contradict: 0.05, Neutral: 0.05}}
	backend := &fixedCompleter{configured: true, reply: "total garbage, not json"}
	f := NewFuser(llm.NewClient(backend, 0, nil), "m", scorer, testPolicy(), nil)

	v := f.Verify(context.Background(), fuserClaim(), someEvidence(2), "")
	if v.Label != model.LabelSupported {
		t.Errorf("expected SUPPORTED from fusion, got %s", v.Label)
	}
	if scorer.calls != 2 {
		t.Errorf("expected one NLI call per evidence, got %d", scorer.calls)
	}
}

func TestVerify_UnconfiguredModelUsesFusion(t *testing.T) {
	scorer := &countingScorer{triple: Triple{Entail: 0.1, Contradict: 0.8, Neutral: 0.1}}
	backend := &fixedCompleter{configured: false}
	f := NewFuser(llm.NewClient(backend, 0, nil), "m", scorer, testPolicy(), nil)

	v := f.Verify(context.Background(), fuserClaim(), someEvidence(1), "")
	if v.Label != model.LabelRefuted {
		t.Errorf("expected REFUTED, got %s", v.Label)
	}
	if backend.calls != 0 {
		t.Errorf("unconfigured backend must not be called, got %d", backend.calls)
	}
}

func TestVerify_EvidenceTruncatedForFusion(t *testing.T) {
	scorer := &countingScorer{triple: uncertainTriple}
	backend := &fixedCompleter{configured: false}
	policy := testPolicy() // MaxEvidence 6, MaxEntailEvidence 5
	f := NewFuser(llm.NewClient(backend, 0, nil), "m", scorer, policy, nil)

	f.Verify(context.Background(), fuserClaim(), someEvidence(9), "")
	if scorer.calls != policy.MaxEntailEvidence {
		t.Errorf("expected %d NLI calls, got %d", policy.MaxEntailEvidence, scorer.calls)
	}
}

func TestClampVerdictConfidence(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{0, 0.1},
		{-2, 0.1},
		{1.5, 1},
		{math.NaN(), 0.4},
		{math.Inf(1), 0.4},
	}
	for _, c := range cases {
		if got := clampVerdictConfidence(c.in); got != c.want {
			t.Errorf("clampVerdictConfidence(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCleanReason(t *testing.T) {
	cases := []struct {
		in       string
		contains string
		excludes string
	}{
		{"证据 (id: e1) 支持该陈述", "支持该陈述", "id:"},
		{"引用 `code ref` 的理由", "的理由", "`"},
		{"   ", noEvidenceReason, ""},
	}
	for _, c := range cases {
		got := cleanReason(c.in)
		if !strings.Contains(got, c.contains) {
			t.Errorf("cleanReason(%q) = %q, expected to contain %q", c.in, got, c.contains)
		}
		if c.excludes != "" && strings.Contains(got, c.excludes) {
			t.Errorf("cleanReason(%q) = %q, expected %q removed", c.in, got, c.excludes)
		}
	}
}

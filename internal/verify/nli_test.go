package verify

import (
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/checkai/checkai/internal/llm"
)

func TestTripleNormalize(t *testing.T) {
	n := Triple{Entail: 2, Contradict: 1, Neutral: 1}.Normalize()
	if sum := n.Entail + n.Contradict + n.Neutral; math.Abs(sum-1) > 1e-9 {
		t.Errorf("expected components to sum to 1, got %v", sum)
	}
	if n.Entail != 0.5 {
		t.Errorf("expected entail 0.5, got %v", n.Entail)
	}

	zero := Triple{}.Normalize()
	if zero.Entail != 0 || zero.Contradict != 0 || zero.Neutral != 0 {
		t.Errorf("all-zero triple must stay zero, got %+v", zero)
	}
}

func TestDecodeHFLabels(t *testing.T) {
	flat := `[{"label": "ENTAILMENT", "score": 0.8}, {"label": "NEUTRAL", "score": 0.15}, {"label": "CONTRADICTION", "score": 0.05}]`
	if labels, ok := decodeHFLabels([]byte(flat)); !ok || len(labels) != 3 {
		t.Errorf("expected flat shape decoded, got ok=%v len=%d", ok, len(labels))
	}

	nested := `[[{"label": "ENTAILMENT", "score": 0.8}]]`
	if labels, ok := decodeHFLabels([]byte(nested)); !ok || len(labels) != 1 {
		t.Errorf("expected nested shape decoded, got ok=%v len=%d", ok, len(labels))
	}

	for _, bad := range []string{`{}`, `[]`, `not json`} {
		if _, ok := decodeHFLabels([]byte(bad)); ok {
			t.Errorf("decodeHFLabels(%q): expected failure", bad)
		}
	}
}

// nliRoundTrip stubs the HF inference endpoint
type nliRoundTrip struct {
	status int
	body   string
	seen   *string
}

func (rt nliRoundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.seen != nil {
		raw, _ := io.ReadAll(req.Body)
		*rt.seen = string(raw)
	}
	return &http.Response{
		StatusCode: rt.status,
		Body:       io.NopCloser(strings.NewReader(rt.body)),
	}, nil
}

func TestHFClassifier_Score(t *testing.T) {
	var seen string
	client := &http.Client{Transport: nliRoundTrip{
		status: http.StatusOK,
		body:   `[[{"label": "ENTAILMENT", "score": 0.7}, {"label": "CONTRADICTION", "score": 0.2}, {"label": "NEUTRAL", "score": 0.1}]]`,
		seen:   &seen,
	}}

	h := NewHFClassifier(client, "https://api-inference.huggingface.co/models", "hf-key", "roberta-large-mnli")
	triple, ok := h.Score(context.Background(), "the claim", "the evidence")
	if !ok {
		t.Fatal("expected scoring to succeed")
	}
	if math.Abs(triple.Entail-0.7) > 1e-9 {
		t.Errorf("expected entail 0.7, got %v", triple.Entail)
	}
	// Evidence is the premise, claim is the hypothesis
	if !strings.Contains(seen, `"premise":"the evidence"`) || !strings.Contains(seen, `"hypothesis":"the claim"`) {
		t.Errorf("unexpected request payload: %s", seen)
	}
}

func TestHFClassifier_Unconfigured(t *testing.T) {
	h := NewHFClassifier(http.DefaultClient, "https://api-inference.huggingface.co/models", "", "roberta-large-mnli")
	if _, ok := h.Score(context.Background(), "c", "e"); ok {
		t.Error("expected failure without API key")
	}
}

func TestHFClassifier_ErrorStatus(t *testing.T) {
	client := &http.Client{Transport: nliRoundTrip{status: http.StatusServiceUnavailable, body: "loading"}}
	h := NewHFClassifier(client, "https://api-inference.huggingface.co/models", "hf-key", "roberta-large-mnli")
	if _, ok := h.Score(context.Background(), "c", "e"); ok {
		t.Error("expected failure on non-2xx status")
	}
}

func TestScorer_TerminalFallback(t *testing.T) {
	backend := &fixedCompleter{configured: false}
	s := NewScorer(nil, llm.NewClient(backend, 0, nil), "m", nil)

	triple := s.Score(context.Background(), "claim", "evidence")
	if triple != uncertainTriple {
		t.Errorf("expected uncertain triple, got %+v", triple)
	}
}

func TestScorer_ModelEstimate(t *testing.T) {
	backend := &fixedCompleter{
		configured: true,
		reply:      `{"entail": 0.6, "contradict": 0.2, "neutral": 0.2, "uncertain_reason": null}`,
	}
	s := NewScorer(nil, llm.NewClient(backend, 0, nil), "m", nil)

	triple := s.Score(context.Background(), "claim", "evidence")
	if math.Abs(triple.Entail-0.6) > 1e-9 {
		t.Errorf("expected entail 0.6, got %v", triple.Entail)
	}
	if sum := triple.Entail + triple.Contradict + triple.Neutral; math.Abs(sum-1) > 1e-9 {
		t.Errorf("expected normalized triple, got sum %v", sum)
	}
}

func TestScorer_PrefersClassifier(t *testing.T) {
	client := &http.Client{Transport: nliRoundTrip{
		status: http.StatusOK,
		body:   `[{"label": "CONTRADICTION", "score": 1.0}]`,
	}}
	classifier := NewHFClassifier(client, "https://api-inference.huggingface.co/models", "hf-key", "roberta-large-mnli")
	backend := &fixedCompleter{configured: true, reply: `{"entail": 1, "contradict": 0, "neutral": 0}`}
	s := NewScorer(classifier, llm.NewClient(backend, 0, nil), "m", nil)

	triple := s.Score(context.Background(), "claim", "evidence")
	if triple.Contradict != 1 {
		t.Errorf("expected classifier result preferred, got %+v", triple)
	}
	if backend.calls != 0 {
		t.Errorf("model should not be consulted when the classifier answers, got %d calls", backend.calls)
	}
}

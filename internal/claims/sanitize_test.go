package claims

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/checkai/checkai/internal/model"
)

// counterID returns a deterministic id generator for purity tests
func counterID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func decodeRawClaims(t *testing.T, payload string) []rawClaim {
	t.Helper()
	var resp extractionResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("decode raw claims: %v", err)
	}
	return resp.Claims
}

func fallbackClaims() []model.Claim {
	return []model.Claim{
		HeuristicClaim("2023年全球经济增长了3%", model.SourceSpan{ParagraphIndex: 0, SentenceIndex: 0}, 4),
		HeuristicClaim("公司总部位于北京", model.SourceSpan{ParagraphIndex: 0, SentenceIndex: 1}, 2),
	}
}

func TestSanitizeClaims_CoercesLooseTypes(t *testing.T) {
	payload := `{"claims": [{
		"id": 123,
		"text": "2023年全球经济增长了3%",
		"normalized": {"subject": "全球经济", "predicate": "增长", "object": 3, "time": 2023},
		"checkworthy": true,
		"confidence": "0.85",
		"source_span": {"paragraphIndex": "0", "sentenceIndex": 0}
	}]}`

	out := sanitizeClaims(decodeRawClaims(t, payload), fallbackClaims(), counterID())
	if len(out) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(out))
	}
	c := out[0]
	if c.ID != "123" {
		t.Errorf("expected numeric id coerced to string, got %q", c.ID)
	}
	if c.Normalized.Object != "3" {
		t.Errorf("expected numeric object coerced, got %q", c.Normalized.Object)
	}
	if c.Normalized.Time != "2023" {
		t.Errorf("expected numeric time coerced, got %q", c.Normalized.Time)
	}
	if c.Confidence != 0.85 {
		t.Errorf("expected confidence from numeric string, got %v", c.Confidence)
	}
	if c.SourceSpan != (model.SourceSpan{ParagraphIndex: 0, SentenceIndex: 0}) {
		t.Errorf("unexpected span: %+v", c.SourceSpan)
	}
}

func TestSanitizeClaims_RequiredFieldsFromFallback(t *testing.T) {
	payload := `{"claims": [{"text": "这条陈述缺少结构化字段", "normalized": {}}]}`
	fb := fallbackClaims()

	out := sanitizeClaims(decodeRawClaims(t, payload), fb, counterID())
	if len(out) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(out))
	}
	c := out[0]
	if c.Normalized.Subject != fb[0].Normalized.Subject {
		t.Errorf("expected subject from fallback, got %q", c.Normalized.Subject)
	}
	if c.Normalized.Predicate != fb[0].Normalized.Predicate {
		t.Errorf("expected predicate from fallback, got %q", c.Normalized.Predicate)
	}
	if c.Confidence != fb[0].Confidence {
		t.Errorf("expected confidence from fallback, got %v", c.Confidence)
	}
}

func TestSanitizeClaims_ConfidenceClamped(t *testing.T) {
	payload := `{"claims": [
		{"text": "可信度超界的陈述一", "confidence": 1.7},
		{"text": "可信度超界的陈述二", "confidence": -3}
	]}`

	out := sanitizeClaims(decodeRawClaims(t, payload), fallbackClaims(), counterID())
	if len(out) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(out))
	}
	if out[0].Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", out[0].Confidence)
	}
	if out[1].Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %v", out[1].Confidence)
	}
}

func TestSanitizeClaims_RejectsBadText(t *testing.T) {
	payload := `{"claims": [
		{"text": "https://example.com/page"},
		{"text": ""},
		{"text": "12 34"},
		{"text": "北京是中国的首都"}
	]}`

	out := sanitizeClaims(decodeRawClaims(t, payload), fallbackClaims(), counterID())
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving claims, got %d", len(out))
	}
	// The empty text falls back to the heuristic claim text, which is valid
	if out[0].Text != fallbackClaims()[1].Text {
		t.Errorf("expected fallback text for empty claim, got %q", out[0].Text)
	}
	if out[1].Text != "北京是中国的首都" {
		t.Errorf("unexpected surviving claim: %q", out[1].Text)
	}
}

func TestSanitizeClaims_IDCollisionReassigned(t *testing.T) {
	payload := `{"claims": [
		{"id": "dup", "text": "第一条可核查的陈述"},
		{"id": "dup", "text": "第二条可核查的陈述"},
		{"text": "第三条没有编号的陈述"}
	]}`

	out := sanitizeClaims(decodeRawClaims(t, payload), fallbackClaims(), counterID())
	if len(out) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(out))
	}
	if out[0].ID != "dup" {
		t.Errorf("first occurrence should keep its id, got %q", out[0].ID)
	}
	if out[1].ID == "dup" || out[1].ID == "" {
		t.Errorf("colliding id should be reassigned, got %q", out[1].ID)
	}
	if out[2].ID == "" {
		t.Error("missing id should be assigned")
	}
	seen := map[string]bool{}
	for _, c := range out {
		if seen[c.ID] {
			t.Errorf("duplicate id in output: %q", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestSanitizeClaims_FiltersMalformedArrays(t *testing.T) {
	payload := `{"claims": [{
		"text": "带有数字事实的陈述",
		"normalized": {
			"entities": ["WHO", "", "  "],
			"numbers": [
				{"key": "growth", "value": 3.5, "qualifier": "APPROX", "unit": "%"},
				{"key": "bad", "qualifier": "APPROX"},
				{"value": "12亿", "qualifier": "NONSENSE"}
			]
		}
	}]}`

	out := sanitizeClaims(decodeRawClaims(t, payload), fallbackClaims(), counterID())
	if len(out) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(out))
	}
	c := out[0]
	if !reflect.DeepEqual(c.Normalized.Entities, []string{"WHO"}) {
		t.Errorf("expected empty entities filtered, got %v", c.Normalized.Entities)
	}
	if len(c.Normalized.Numbers) != 2 {
		t.Fatalf("expected 2 well-formed numbers, got %d", len(c.Normalized.Numbers))
	}
	if c.Normalized.Numbers[0].Qualifier != model.QualifierApprox {
		t.Errorf("expected APPROX qualifier kept, got %q", c.Normalized.Numbers[0].Qualifier)
	}
	if c.Normalized.Numbers[1].Value != 12 {
		t.Errorf("expected numeric string coerced to 12, got %v", c.Normalized.Numbers[1].Value)
	}
	if c.Normalized.Numbers[1].Qualifier != "" {
		t.Errorf("expected invalid qualifier dropped, got %q", c.Normalized.Numbers[1].Qualifier)
	}
}

func TestSanitizeClaims_Pure(t *testing.T) {
	payload := `{"claims": [
		{"id": "a", "text": "第一条可核查的陈述", "confidence": 0.9},
		{"text": "第二条可核查的陈述"},
		{"id": "a", "text": "第三条可核查的陈述"}
	]}`
	fb := fallbackClaims()

	first := sanitizeClaims(decodeRawClaims(t, payload), fb, counterID())
	second := sanitizeClaims(decodeRawClaims(t, payload), fb, counterID())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("sanitization is not deterministic:\n%+v\nvs\n%+v", first, second)
	}
}

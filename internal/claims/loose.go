package claims

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/checkai/checkai/internal/model"
)

// The model is asked for strict JSON but does not always deliver it: string
// fields come back as numbers, numbers come back as strings, booleans appear
// where text belongs. The loose types below absorb those shapes without
// failing the decode; sanitization later decides what survives.

// looseString decodes string, number and boolean JSON values to a string.
// Any other shape decodes to empty.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	switch val := v.(type) {
	case string:
		*s = looseString(val)
	case float64:
		*s = looseString(strconv.FormatFloat(val, 'f', -1, 64))
	case bool:
		*s = looseString(strconv.FormatBool(val))
	default:
		*s = ""
	}
	return nil
}

func (s looseString) trimmed() string {
	return strings.TrimSpace(string(s))
}

var numericJunkRe = regexp.MustCompile(`[^0-9.+-]`)

// looseFloat decodes a number or a numeric string. Set reports whether a
// finite value was obtained.
type looseFloat struct {
	Value float64
	Set   bool
}

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch val := v.(type) {
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			f.Value, f.Set = val, true
		}
	case string:
		cleaned := numericJunkRe.ReplaceAllString(val, "")
		if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			f.Value, f.Set = parsed, true
		}
	}
	return nil
}

// looseBool decodes a boolean. Set reports whether one was present.
type looseBool struct {
	Value bool
	Set   bool
}

func (lb *looseBool) UnmarshalJSON(b []byte) error {
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	lb.Value, lb.Set = v, true
	return nil
}

// looseSpan decodes a source span, tolerating garbage
type looseSpan struct {
	ParagraphIndex looseFloat `json:"paragraphIndex"`
	SentenceIndex  looseFloat `json:"sentenceIndex"`
}

func (ls looseSpan) valid() bool {
	return ls.ParagraphIndex.Set && ls.SentenceIndex.Set &&
		ls.ParagraphIndex.Value >= 0 && ls.SentenceIndex.Value >= 0
}

func (ls looseSpan) span() model.SourceSpan {
	return model.SourceSpan{
		ParagraphIndex: int(ls.ParagraphIndex.Value),
		SentenceIndex:  int(ls.SentenceIndex.Value),
	}
}

// rawNumber is a numeric claim fact as the model produced it
type rawNumber struct {
	Key       looseString `json:"key"`
	Value     looseFloat  `json:"value"`
	Qualifier looseString `json:"qualifier"`
	Unit      looseString `json:"unit"`
}

// rawNormalized is the structured claim body as the model produced it
type rawNormalized struct {
	Subject    looseString   `json:"subject"`
	Predicate  looseString   `json:"predicate"`
	Object     looseString   `json:"object"`
	Time       looseString   `json:"time"`
	Unit       looseString   `json:"unit"`
	Location   looseString   `json:"location"`
	Event      looseString   `json:"event"`
	Entities   []looseString `json:"entities"`
	Numbers    []rawNumber   `json:"numbers"`
	Qualifiers []looseString `json:"qualifiers"`
}

// rawClaim is one claim as the model produced it, before sanitization
type rawClaim struct {
	ID            looseString   `json:"id"`
	Text          looseString   `json:"text"`
	Normalized    rawNormalized `json:"normalized"`
	Checkworthy   looseBool     `json:"checkworthy"`
	Confidence    looseFloat    `json:"confidence"`
	SourceSpan    *looseSpan    `json:"source_span"`
	SearchQueries []looseString `json:"search_queries"`
}

// extractionResponse is the JSON shape the extraction prompt asks for
type extractionResponse struct {
	Claims          []rawClaim `json:"claims"`
	UncertainReason string     `json:"uncertain_reason"`
}

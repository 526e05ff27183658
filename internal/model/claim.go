package model

// SourceSpan locates a sentence within the source document.
// It is assigned by the upstream parser and never changes afterwards.
type SourceSpan struct {
	ParagraphIndex int `json:"paragraphIndex"`
	SentenceIndex  int `json:"sentenceIndex"`
}

// NumberQualifier describes how a numeric value in a claim is bounded
type NumberQualifier string

const (
	QualifierAtLeast NumberQualifier = "AT_LEAST"
	QualifierAtMost  NumberQualifier = "AT_MOST"
	QualifierApprox  NumberQualifier = "APPROX"
	QualifierGreater NumberQualifier = "GREATER"
	QualifierLess    NumberQualifier = "LESS"
	QualifierEqual   NumberQualifier = "EQUAL"
)

// IsValid reports whether q is one of the known qualifier values
func (q NumberQualifier) IsValid() bool {
	switch q {
	case QualifierAtLeast, QualifierAtMost, QualifierApprox,
		QualifierGreater, QualifierLess, QualifierEqual:
		return true
	}
	return false
}

// ClaimNumber is a numeric fact attached to a claim (e.g. fatalities, budget)
type ClaimNumber struct {
	Key       string          `json:"key,omitempty"`
	Value     float64         `json:"value"`
	Qualifier NumberQualifier `json:"qualifier,omitempty"`
	Unit      string          `json:"unit,omitempty"`
}

// NormalizedClaim is the structured form of a claim. Subject, predicate and
// object are always non-empty; the optional fields are kept only when the
// extractor actually produced them.
type NormalizedClaim struct {
	Subject    string        `json:"subject"`
	Predicate  string        `json:"predicate"`
	Object     string        `json:"object"`
	Time       string        `json:"time,omitempty"`
	Unit       string        `json:"unit,omitempty"`
	Location   string        `json:"location,omitempty"`
	Event      string        `json:"event,omitempty"`
	Entities   []string      `json:"entities,omitempty"`
	Numbers    []ClaimNumber `json:"numbers,omitempty"`
	Qualifiers []string      `json:"qualifiers,omitempty"`
}

// Claim represents a checkable assertion extracted from one sentence.
// Claims are immutable after creation and uniquely keyed by their source
// span for deduplication (first occurrence wins).
type Claim struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Normalized    NormalizedClaim `json:"normalized"`
	Checkworthy   bool            `json:"checkworthy"`
	Confidence    float64         `json:"confidence"`
	SourceSpan    SourceSpan      `json:"source_span"`
	SearchQueries []string        `json:"search_queries,omitempty"`
}

// SpanKey returns the dedup key for the claim's source span
func (c Claim) SpanKey() [2]int {
	return [2]int{c.SourceSpan.ParagraphIndex, c.SourceSpan.SentenceIndex}
}

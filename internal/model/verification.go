package model

import "strings"

// Label is the final verdict class for a claim
type Label string

const (
	LabelSupported    Label = "SUPPORTED"
	LabelRefuted      Label = "REFUTED"
	LabelDisputed     Label = "DISPUTED"
	LabelInsufficient Label = "INSUFFICIENT"
)

// NormalizeLabel maps a free-form model label onto the canonical enum by
// substring match. Anything unrecognized becomes INSUFFICIENT.
func NormalizeLabel(raw string) Label {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case strings.Contains(upper, "SUPPORT"):
		return LabelSupported
	case strings.Contains(upper, "REFUTE"), strings.Contains(upper, "FALSE"):
		return LabelRefuted
	case strings.Contains(upper, "DISPUTE"), strings.Contains(upper, "MIXED"):
		return LabelDisputed
	default:
		return LabelInsufficient
	}
}

// MaxCitations caps how many citation URLs a verification may carry
const MaxCitations = 10

// Verification is the labeled, confidence-scored verdict for one claim.
// Exactly one verification is produced per claim per verification call;
// re-running with the same claim and evidence is idempotent.
type Verification struct {
	ClaimID    string   `json:"claimId"`
	Label      Label    `json:"label"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
	Citations  []string `json:"citations"`
}

// ClampConfidence forces v into [0,1], collapsing non-numeric garbage to 0
func ClampConfidence(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

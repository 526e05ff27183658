package verify

import (
	"math"
	"strings"

	"github.com/checkai/checkai/internal/model"
)

const scoreEpsilon = 1e-6

// citationThreshold is the per-evidence score above which a URL is cited
const citationThreshold = 0.5

// noEvidenceReason is the fixed reason used when fusion had nothing to work
// with
const noEvidenceReason = "未获得可用证据"

// ScoredEvidence pairs one evidence candidate with its entailment triple
type ScoredEvidence struct {
	Evidence model.EvidenceCandidate
	Score    Triple
}

// FuseScores aggregates authority-weighted entailment triples into a single
// verification for the claim. It is deterministic given its input.
func FuseScores(claimID string, scored []ScoredEvidence, policy model.VerifyConfig) model.Verification {
	var support, refute, neutral float64
	var citations []string
	var descriptions []string

	for _, item := range scored {
		weight := item.Evidence.Authority
		support += weight * item.Score.Entail
		refute += weight * item.Score.Contradict
		neutral += weight * item.Score.Neutral

		if item.Score.Entail > citationThreshold || item.Score.Contradict > citationThreshold {
			citations = append(citations, item.Evidence.URL)
		}
		descriptions = append(descriptions,
			item.Evidence.Title+": "+formatScore(item.Score.Entail)+" entail / "+formatScore(item.Score.Contradict)+" contradict")
	}

	label := pickLabel(support, refute, policy)
	confidence := confidenceScore(support, refute, neutral, len(scored), policy)

	reason := strings.Join(descriptions, "\n")
	if reason == "" {
		reason = noEvidenceReason
	}

	return model.Verification{
		ClaimID:    claimID,
		Label:      label,
		Confidence: confidence,
		Reason:     reason,
		Citations:  capCitations(dedupeStrings(citations)),
	}
}

// pickLabel applies the threshold policy in fixed precedence order
func pickLabel(support, refute float64, policy model.VerifyConfig) model.Label {
	switch {
	case support >= policy.SupportThreshold && support >= refute*policy.DominanceRatio:
		return model.LabelSupported
	case refute >= policy.RefuteThreshold && refute >= support*policy.DominanceRatio:
		return model.LabelRefuted
	case support > policy.DisputeBand && refute > policy.DisputeBand:
		return model.LabelDisputed
	default:
		return model.LabelInsufficient
	}
}

// confidenceScore blends dominance of the winning side with evidence
// coverage
func confidenceScore(support, refute, neutral float64, evidenceCount int, policy model.VerifyConfig) float64 {
	dominant := math.Max(support, refute)
	total := support + refute + neutral + scoreEpsilon
	base := (dominant / total) * policy.ConfidenceWeight

	coverage := float64(evidenceCount) / policy.CoverageDivisor
	if coverage > 1 {
		coverage = 1
	}
	boost := coverage * (1 - policy.ConfidenceWeight)

	return model.ClampConfidence(base + boost)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func capCitations(urls []string) []string {
	if len(urls) > model.MaxCitations {
		return urls[:model.MaxCitations]
	}
	return urls
}

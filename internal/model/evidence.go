package model

import (
	"math"
	"strings"
)

// EvidenceSource classifies the retrieval channel an evidence candidate
// came from
type EvidenceSource string

const (
	SourceWeb       EvidenceSource = "web"
	SourceWikipedia EvidenceSource = "wikipedia"
	SourceWikidata  EvidenceSource = "wikidata"
)

// Authority bounds. Every authority value is clamped into this range no
// matter what a channel or model reported.
const (
	MinAuthority = 0.2
	MaxAuthority = 0.95
)

// EvidenceCandidate is a retrieved source proposed as support or refutation
// for a claim. Candidates live only for the duration of one aggregation call.
type EvidenceCandidate struct {
	ID          string         `json:"id"`
	Source      EvidenceSource `json:"source"`
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Quote       string         `json:"quote"`
	PublishedAt string         `json:"published_at,omitempty"`
	Authority   float64        `json:"authority"`
}

// ClampAuthority forces v into the [MinAuthority, MaxAuthority] range.
// Non-finite values collapse to the moderate default.
func ClampAuthority(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.6
	}
	if v < MinAuthority {
		return MinAuthority
	}
	if v > MaxAuthority {
		return MaxAuthority
	}
	return v
}

// InferSource guesses the evidence source from a URL
func InferSource(url string) EvidenceSource {
	switch {
	case strings.Contains(url, "wikipedia.org"):
		return SourceWikipedia
	case strings.Contains(url, "wikidata.org"):
		return SourceWikidata
	default:
		return SourceWeb
	}
}

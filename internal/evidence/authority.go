package evidence

import (
	"net/url"
	"strings"

	"github.com/checkai/checkai/internal/model"
)

// AuthorityScorer assigns a heuristic trust weight to a URL from its host.
// Channels that report their own authority bypass this; everything else
// gets a domain-derived score clamped into [0.2, 0.95].
type AuthorityScorer struct {
	preferred []string
	blocked   []string
}

// NewAuthorityScorer creates a scorer from the configured domain lists
func NewAuthorityScorer(preferred, blocked []string) *AuthorityScorer {
	return &AuthorityScorer{preferred: preferred, blocked: blocked}
}

// Score derives an authority value for the URL
func (a *AuthorityScorer) Score(rawURL string) float64 {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return model.ClampAuthority(0.5)
	}
	host := strings.ToLower(parsed.Hostname())

	for _, blocked := range a.blocked {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return model.MinAuthority
		}
	}
	for _, preferred := range a.preferred {
		if host == preferred || strings.HasSuffix(host, "."+preferred) {
			return model.MaxAuthority
		}
	}

	switch {
	case strings.HasSuffix(host, ".gov") || strings.Contains(host, ".gov."):
		return model.ClampAuthority(0.9)
	case strings.HasSuffix(host, ".edu") || strings.Contains(host, ".edu."):
		return model.ClampAuthority(0.85)
	case strings.HasSuffix(host, ".org"):
		return model.ClampAuthority(0.75)
	}
	return model.ClampAuthority(0.6)
}

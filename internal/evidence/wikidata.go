package evidence

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/checkai/checkai/internal/model"
)

const (
	wikidataAPI       = "https://www.wikidata.org/w/api.php"
	wikidataPageBase  = "https://www.wikidata.org/wiki/"
	wikidataAuthority = 0.75
)

// WikidataChannel looks up structured entities through the Wikidata entity
// search API. Matches are weaker than full-text hits, so its authority sits
// below Wikipedia's.
type WikidataChannel struct {
	httpClient *http.Client
	userAgent  string
	language   string
}

// NewWikidataChannel creates a Wikidata entity search channel
func NewWikidataChannel(httpClient *http.Client, userAgent, language string) *WikidataChannel {
	if language == "" {
		language = "en"
	}
	return &WikidataChannel{httpClient: httpClient, userAgent: userAgent, language: language}
}

// Name implements Channel
func (w *WikidataChannel) Name() string { return "wikidata" }

type wikidataResult struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
}

// Search implements Channel
func (w *WikidataChannel) Search(ctx context.Context, query string, limit int) ([]model.EvidenceCandidate, error) {
	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", query)
	params.Set("language", w.language)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wikidataAPI+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("wikidata: create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	var result wikidataResult
	if err := doJSON(w.httpClient, req, &result); err != nil {
		return nil, fmt.Errorf("wikidata: %w", err)
	}

	candidates := make([]model.EvidenceCandidate, 0, len(result.Search))
	for _, item := range result.Search {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		candidates = append(candidates, model.EvidenceCandidate{
			ID:        uuid.NewString(),
			Source:    model.SourceWikidata,
			URL:       wikidataPageBase + id,
			Title:     strings.TrimSpace(item.Label),
			Quote:     strings.TrimSpace(item.Description),
			Authority: model.ClampAuthority(wikidataAuthority),
		})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}

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
	wikipediaAPI       = "https://en.wikipedia.org/w/api.php"
	wikipediaPageBase  = "https://en.wikipedia.org/wiki/"
	wikipediaAuthority = 0.8
)

// WikipediaChannel retrieves evidence from Wikipedia full-text search via
// the public MediaWiki API. No credentials are required.
type WikipediaChannel struct {
	httpClient *http.Client
	userAgent  string
}

// NewWikipediaChannel creates a Wikipedia search channel
func NewWikipediaChannel(httpClient *http.Client, userAgent string) *WikipediaChannel {
	return &WikipediaChannel{httpClient: httpClient, userAgent: userAgent}
}

// Name implements Channel
func (w *WikipediaChannel) Name() string { return "wikipedia" }

type wikipediaResult struct {
	Query struct {
		Search []struct {
			Title     string `json:"title"`
			Snippet   string `json:"snippet"`
			Timestamp string `json:"timestamp"`
		} `json:"search"`
	} `json:"query"`
}

// Search implements Channel
func (w *WikipediaChannel) Search(ctx context.Context, query string, limit int) ([]model.EvidenceCandidate, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wikipediaAPI+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: create request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	var result wikipediaResult
	if err := doJSON(w.httpClient, req, &result); err != nil {
		return nil, fmt.Errorf("wikipedia: %w", err)
	}

	candidates := make([]model.EvidenceCandidate, 0, len(result.Query.Search))
	for _, item := range result.Query.Search {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		pageURL := wikipediaPageBase + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
		candidates = append(candidates, model.EvidenceCandidate{
			ID:          uuid.NewString(),
			Source:      model.SourceWikipedia,
			URL:         pageURL,
			Title:       title,
			Quote:       stripTags(item.Snippet),
			PublishedAt: item.Timestamp,
			Authority:   model.ClampAuthority(wikipediaAuthority),
		})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}

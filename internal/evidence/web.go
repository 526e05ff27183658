package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/checkai/checkai/internal/model"
)

const (
	serperEndpoint = "https://google.serper.dev/search"
	braveEndpoint  = "https://api.search.brave.com/res/v1/web/search"
)

// SerperChannel searches the web through the Serper Google proxy
type SerperChannel struct {
	httpClient *http.Client
	apiKey     string
	location   string
	language   string
	scorer     *AuthorityScorer
}

// NewSerperChannel creates a Serper-backed web channel
func NewSerperChannel(httpClient *http.Client, apiKey, location, language string, scorer *AuthorityScorer) *SerperChannel {
	return &SerperChannel{
		httpClient: httpClient,
		apiKey:     apiKey,
		location:   location,
		language:   language,
		scorer:     scorer,
	}
}

// Name implements Channel
func (s *SerperChannel) Name() string { return "serper" }

// Configured reports whether an API key is present
func (s *SerperChannel) Configured() bool { return s.apiKey != "" }

type serperResult struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic"`
}

// Search implements Channel
func (s *SerperChannel) Search(ctx context.Context, query string, limit int) ([]model.EvidenceCandidate, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("serper: no API key configured")
	}

	body, err := json.Marshal(map[string]any{
		"q":   query,
		"gl":  s.location,
		"hl":  s.language,
		"num": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("serper: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serper: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var result serperResult
	if err := doJSON(s.httpClient, req, &result); err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}

	candidates := make([]model.EvidenceCandidate, 0, len(result.Organic))
	for _, item := range result.Organic {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		candidates = append(candidates, model.EvidenceCandidate{
			ID:          uuid.NewString(),
			Source:      model.InferSource(link),
			URL:         link,
			Title:       strings.TrimSpace(item.Title),
			Quote:       strings.TrimSpace(item.Snippet),
			PublishedAt: strings.TrimSpace(item.Date),
			Authority:   s.scorer.Score(link),
		})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}

// BraveChannel searches the web through the Brave Search API
type BraveChannel struct {
	httpClient *http.Client
	apiKey     string
	scorer     *AuthorityScorer
}

// NewBraveChannel creates a Brave-backed web channel
func NewBraveChannel(httpClient *http.Client, apiKey string, scorer *AuthorityScorer) *BraveChannel {
	return &BraveChannel{httpClient: httpClient, apiKey: apiKey, scorer: scorer}
}

// Name implements Channel
func (b *BraveChannel) Name() string { return "brave" }

// Configured reports whether an API key is present
func (b *BraveChannel) Configured() bool { return b.apiKey != "" }

type braveResult struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			PageAge     string `json:"page_age"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements Channel
func (b *BraveChannel) Search(ctx context.Context, query string, limit int) ([]model.EvidenceCandidate, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("brave: no API key configured")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("brave: create request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", b.apiKey)
	req.Header.Set("Accept", "application/json")

	var result braveResult
	if err := doJSON(b.httpClient, req, &result); err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}

	candidates := make([]model.EvidenceCandidate, 0, len(result.Web.Results))
	for _, item := range result.Web.Results {
		link := strings.TrimSpace(item.URL)
		if link == "" {
			continue
		}
		candidates = append(candidates, model.EvidenceCandidate{
			ID:          uuid.NewString(),
			Source:      model.InferSource(link),
			URL:         link,
			Title:       strings.TrimSpace(item.Title),
			Quote:       stripTags(item.Description),
			PublishedAt: strings.TrimSpace(item.PageAge),
			Authority:   b.scorer.Score(link),
		})
		if len(candidates) >= limit {
			break
		}
	}
	return candidates, nil
}

// WebChannel chains web providers by priority: the secondary is consulted
// only when the primary errors or returns nothing.
type WebChannel struct {
	providers []Channel
	logger    *slog.Logger
}

// NewWebChannel creates a prioritized web channel. Providers earlier in the
// list win.
func NewWebChannel(logger *slog.Logger, providers ...Channel) *WebChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebChannel{providers: providers, logger: logger}
}

// Name implements Channel
func (w *WebChannel) Name() string { return "web" }

// Search implements Channel. It returns the first non-empty provider
// result, or the last error when every provider fails.
func (w *WebChannel) Search(ctx context.Context, query string, limit int) ([]model.EvidenceCandidate, error) {
	var lastErr error
	for _, provider := range w.providers {
		candidates, err := provider.Search(ctx, query, limit)
		if err != nil {
			w.logger.Debug("web provider failed",
				slog.String("provider", provider.Name()),
				slog.Any("error", err))
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// doJSON executes the request and decodes a JSON body into out
func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4_000_000))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// stripTags removes inline HTML markup that search APIs embed in snippets
func stripTags(s string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(s, ""))
}

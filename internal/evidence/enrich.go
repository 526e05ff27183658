package evidence

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/checkai/checkai/internal/model"
	"github.com/checkai/checkai/internal/util"
	"github.com/checkai/checkai/internal/worker"
)

// Sentence length bounds for snippet extraction
const (
	minSnippetSentence = 20
	maxSnippetSentence = 400
	snippetSentences   = 2
)

// Enricher replaces a candidate's search snippet with the most relevant
// sentences extracted from the page itself. Enrichment is best-effort: any
// failure leaves the original quote untouched.
type Enricher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	logger     *slog.Logger
}

// NewEnricher creates an enricher. robots and limiter may be nil, in which
// case politeness checks are skipped.
func NewEnricher(httpClient *http.Client, userAgent string, maxBytes int64, robots *util.RobotsChecker, limiter *worker.Limiter, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &Enricher{
		httpClient: httpClient,
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		robots:     robots,
		limiter:    limiter,
		logger:     logger,
	}
}

// Enrich fetches the candidate's page and swaps its quote for the top
// sentences by token overlap with the claim text. The candidate is returned
// unchanged when anything goes wrong.
func (e *Enricher) Enrich(ctx context.Context, claimText string, candidate model.EvidenceCandidate) model.EvidenceCandidate {
	if e.robots != nil && !e.robots.IsAllowed(ctx, candidate.URL) {
		return candidate
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, candidate.URL); err != nil {
			return candidate
		}
	}

	text, err := e.fetchMainText(ctx, candidate.URL)
	if err != nil {
		e.logger.Debug("enrichment fetch failed", slog.String("url", candidate.URL), slog.Any("error", err))
		return candidate
	}

	best := PickBestSentences(claimText, text, snippetSentences)
	if len(best) == 0 {
		return candidate
	}
	candidate.Quote = strings.Join(best, " ")
	return candidate
}

func (e *Enricher) fetchMainText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errUnexpectedStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return "", err
	}

	return ExtractMainText(string(body)), nil
}

type errUnexpectedStatus int

func (e errUnexpectedStatus) Error() string {
	return "unexpected status " + http.StatusText(int(e))
}

// ExtractMainText strips noise blocks from an HTML document and returns the
// visible text of its main content area. When article/main-like containers
// exist, the longest one wins; otherwise the whole body text is used.
func ExtractMainText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var candidates []*html.Node
	var body *html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "header", "footer", "nav", "aside":
				return
			case "article", "main":
				candidates = append(candidates, n)
			case "body":
				body = n
			case "div":
				if attrValue(n, "itemprop") == "articleBody" || attrValue(n, "id") == "content" {
					candidates = append(candidates, n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	longest := ""
	for _, c := range candidates {
		if text := visibleText(c); len(text) > len(longest) {
			longest = text
		}
	}
	if longest == "" && body != nil {
		longest = visibleText(body)
	}
	if longest == "" {
		longest = visibleText(doc)
	}
	return strings.Join(strings.Fields(longest), " ")
}

// PickBestSentences splits text into sentences of reasonable length and
// returns the top limit sentences by token overlap with the claim
func PickBestSentences(claimText, text string, limit int) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if n := len([]rune(s)); n > minSnippetSentence && n < maxSnippetSentence {
			sentences = append(sentences, s)
		}
	}
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			flush()
		}
	}
	flush()

	type scored struct {
		sentence string
		score    float64
	}
	items := make([]scored, 0, len(sentences))
	for _, s := range sentences {
		items = append(items, scored{sentence: s, score: OverlapScore(claimText, s)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	if limit > len(items) {
		limit = len(items)
	}
	out := make([]string, 0, limit)
	for _, item := range items[:limit] {
		if item.score == 0 {
			break
		}
		out = append(out, item.sentence)
	}
	return out
}

func visibleText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "header", "footer", "nav", "aside":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

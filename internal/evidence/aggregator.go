package evidence

import (
	"context"
	"log/slog"
	"sync"

	"github.com/checkai/checkai/internal/llm"
	"github.com/checkai/checkai/internal/model"
)

// Aggregator gathers evidence for a single claim. It picks search queries,
// fans them out across every configured channel, then merges, deduplicates,
// ranks, probes and enriches the results. Aggregation is best-effort and
// never fails: a claim with no reachable evidence simply gets an empty list.
type Aggregator struct {
	channels  []Channel
	prober    *Prober
	enricher  *Enricher
	client    *llm.Client
	modelName string
	logger    *slog.Logger

	defaultLimit int
	maxLimit     int
	enrichTop    int
}

// AggregatorOptions configures an Aggregator. Prober and Enricher are
// optional; when nil the corresponding stage is skipped.
type AggregatorOptions struct {
	Channels     []Channel
	Prober       *Prober
	Enricher     *Enricher
	Client       *llm.Client
	ModelName    string
	Logger       *slog.Logger
	DefaultLimit int
	MaxLimit     int
	EnrichTop    int
}

// NewAggregator creates an evidence aggregator
func NewAggregator(opts AggregatorOptions) *Aggregator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 20
	}
	return &Aggregator{
		channels:     opts.Channels,
		prober:       opts.Prober,
		enricher:     opts.Enricher,
		client:       opts.Client,
		modelName:    opts.ModelName,
		logger:       opts.Logger,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		enrichTop:    opts.EnrichTop,
	}
}

// Aggregate collects up to limit evidence candidates for the claim. A
// non-positive limit selects the default; anything above the cap is
// truncated to it.
func (a *Aggregator) Aggregate(ctx context.Context, claim model.Claim, docContext string, limit int) []model.EvidenceCandidate {
	if limit <= 0 {
		limit = a.defaultLimit
	}
	if limit > a.maxLimit {
		limit = a.maxLimit
	}

	queries := a.selectQueries(ctx, claim, docContext)
	if len(queries) == 0 {
		return nil
	}

	merged := a.scatterGather(ctx, queries, limit)
	merged = dedupeByURL(merged)
	ranked := rankByRelevance(claim.Text, merged)

	selected := a.fillReachable(ctx, ranked, limit)
	return a.enrichTopHits(ctx, claim.Text, selected)
}

// selectQueries prefers the queries attached to the claim during extraction
// and falls back to model expansion or deterministic synthesis
func (a *Aggregator) selectQueries(ctx context.Context, claim model.Claim, docContext string) []string {
	if queries := SanitizeQueries(claim.SearchQueries); len(queries) > 0 {
		return queries
	}
	return ExpandQueries(ctx, a.client, a.modelName, claim, docContext, a.logger)
}

// scatterGather runs every query on every channel concurrently. Channel
// errors are logged and dropped at the join; partial results survive.
func (a *Aggregator) scatterGather(ctx context.Context, queries []string, limit int) []model.EvidenceCandidate {
	type fetch struct {
		channel string
		items   []model.EvidenceCandidate
		err     error
	}

	results := make(chan fetch, len(a.channels)*len(queries))
	var wg sync.WaitGroup
	for _, ch := range a.channels {
		for _, q := range queries {
			wg.Add(1)
			go func(ch Channel, q string) {
				defer wg.Done()
				items, err := ch.Search(ctx, q, limit)
				results <- fetch{channel: ch.Name(), items: items, err: err}
			}(ch, q)
		}
	}
	wg.Wait()
	close(results)

	var merged []model.EvidenceCandidate
	for r := range results {
		if r.err != nil {
			a.logger.Debug("channel search failed",
				slog.String("channel", r.channel),
				slog.Any("error", r.err))
			continue
		}
		merged = append(merged, r.items...)
	}
	return merged
}

// fillReachable walks the ranked list in order, probing web candidates and
// keeping everything else as-is, until limit candidates are selected
func (a *Aggregator) fillReachable(ctx context.Context, ranked []model.EvidenceCandidate, limit int) []model.EvidenceCandidate {
	selected := make([]model.EvidenceCandidate, 0, limit)
	for _, c := range ranked {
		if len(selected) >= limit {
			break
		}
		if a.prober != nil && c.Source == model.SourceWeb && !a.prober.Reachable(ctx, c.URL) {
			a.logger.Debug("dropping unreachable candidate", slog.String("url", c.URL))
			continue
		}
		selected = append(selected, c)
	}
	return selected
}

// enrichTopHits replaces the snippets of the first few candidates with
// sentences pulled from the pages themselves
func (a *Aggregator) enrichTopHits(ctx context.Context, claimText string, candidates []model.EvidenceCandidate) []model.EvidenceCandidate {
	if a.enricher == nil || a.enrichTop <= 0 {
		return candidates
	}
	top := a.enrichTop
	if top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		candidates[i] = a.enricher.Enrich(ctx, claimText, candidates[i])
	}
	return candidates
}

// Package pipeline orchestrates the two-phase fact-checking run: claim
// extraction over the whole document first, then per-claim evidence
// gathering and verification on a bounded worker pool.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/checkai/checkai/internal/claims"
	"github.com/checkai/checkai/internal/evidence"
	"github.com/checkai/checkai/internal/model"
	"github.com/checkai/checkai/internal/verify"
	"github.com/checkai/checkai/internal/worker"
)

// Result is the full outcome of one document run. Evidence and
// verifications are keyed by claim ID; claims skipped by a stop request
// have no entries.
type Result struct {
	Claims        []model.Claim                        `json:"claims"`
	Evidence      map[string][]model.EvidenceCandidate `json:"evidence"`
	Verifications map[string]model.Verification        `json:"verifications"`
	Stats         Stats                                `json:"stats"`
}

// Stats summarizes a run
type Stats struct {
	Sentences       int           `json:"sentences"`
	ClaimsExtracted int           `json:"claims_extracted"`
	ClaimsVerified  int           `json:"claims_verified"`
	ClaimsSkipped   int           `json:"claims_skipped"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Aggregator is the evidence-gathering dependency of the pipeline
type Aggregator interface {
	Aggregate(ctx context.Context, claim model.Claim, docContext string, limit int) []model.EvidenceCandidate
}

// Verifier is the verdict-producing dependency of the pipeline
type Verifier interface {
	Verify(ctx context.Context, claim model.Claim, evidences []model.EvidenceCandidate, docContext string) model.Verification
}

var (
	_ Aggregator = (*evidence.Aggregator)(nil)
	_ Verifier   = (*verify.Fuser)(nil)
)

// Pipeline wires the extraction, aggregation and verification stages
type Pipeline struct {
	synthesizer *claims.Synthesizer
	aggregator  Aggregator
	verifier    Verifier
	workers     int
	logger      *slog.Logger
	stop        atomic.Bool
}

// Options configures a Pipeline
type Options struct {
	Synthesizer *claims.Synthesizer
	Aggregator  Aggregator
	Verifier    Verifier
	Workers     int
	MaxWorkers  int
	Logger      *slog.Logger
}

// New creates a pipeline. The worker count is bounded to at least one and
// at most MaxWorkers.
func New(opts Options) *Pipeline {
	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}
	if opts.MaxWorkers > 0 && workers > opts.MaxWorkers {
		workers = opts.MaxWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		synthesizer: opts.Synthesizer,
		aggregator:  opts.Aggregator,
		verifier:    opts.Verifier,
		workers:     workers,
		logger:      logger,
	}
}

// Stop requests a cooperative halt. In-flight claims finish; claims not yet
// started are skipped. Completed results are retained.
func (p *Pipeline) Stop() {
	p.stop.Store(true)
}

// verifyJob processes one claim end to end on a pool worker
type verifyJob struct {
	pipeline   *Pipeline
	claim      model.Claim
	docContext string
}

// verifyResult carries one claim's outcome back from the pool
type verifyResult struct {
	claimID      string
	evidence     []model.EvidenceCandidate
	verification model.Verification
	skipped      bool
}

// GetError implements worker.Result; per-claim processing never errors
func (r verifyResult) GetError() error { return nil }

// Execute implements worker.Job
func (j verifyJob) Execute(ctx context.Context) worker.Result {
	if j.pipeline.stop.Load() || ctx.Err() != nil {
		return verifyResult{claimID: j.claim.ID, skipped: true}
	}

	evidences := j.pipeline.aggregator.Aggregate(ctx, j.claim, j.docContext, 0)
	verification := j.pipeline.verifier.Verify(ctx, j.claim, evidences, j.docContext)

	return verifyResult{
		claimID:      j.claim.ID,
		evidence:     evidences,
		verification: verification,
	}
}

// Run processes one document. A document with no sentences yields an empty
// result without touching the aggregator or verifier.
func (p *Pipeline) Run(ctx context.Context, sentences []claims.Sentence, docContext string) *Result {
	started := time.Now()
	result := &Result{
		Evidence:      make(map[string][]model.EvidenceCandidate),
		Verifications: make(map[string]model.Verification),
		Stats:         Stats{Sentences: len(sentences)},
	}

	if len(sentences) == 0 {
		result.Stats.Elapsed = time.Since(started)
		return result
	}

	result.Claims = p.synthesizer.Extract(ctx, sentences, docContext)
	result.Stats.ClaimsExtracted = len(result.Claims)
	p.logger.Info("claims extracted",
		slog.Int("sentences", len(sentences)),
		slog.Int("claims", len(result.Claims)))

	if len(result.Claims) == 0 {
		result.Stats.Elapsed = time.Since(started)
		return result
	}

	pool := worker.NewPool(p.workers)
	pool.Start()

	// Cancel in-flight network calls when the caller's context ends
	var watchWG sync.WaitGroup
	watchDone := make(chan struct{})
	watchWG.Add(1)
	go func() {
		defer watchWG.Done()
		select {
		case <-ctx.Done():
			p.stop.Store(true)
			pool.Shutdown()
		case <-watchDone:
		}
	}()

	for _, claim := range result.Claims {
		pool.Submit(verifyJob{pipeline: p, claim: claim, docContext: docContext})
	}

	for _, res := range pool.Wait() {
		vr, ok := res.(verifyResult)
		if !ok || vr.skipped {
			continue
		}
		result.Evidence[vr.claimID] = vr.evidence
		result.Verifications[vr.claimID] = vr.verification
		result.Stats.ClaimsVerified++
	}
	// Every claim without a verification was skipped, whether its job ran
	// and bailed out or never made it into the pool before shutdown
	result.Stats.ClaimsSkipped = result.Stats.ClaimsExtracted - result.Stats.ClaimsVerified
	close(watchDone)
	watchWG.Wait()

	result.Stats.Elapsed = time.Since(started)
	p.logger.Info("verification finished",
		slog.Int("verified", result.Stats.ClaimsVerified),
		slog.Int("skipped", result.Stats.ClaimsSkipped),
		slog.Duration("elapsed", result.Stats.Elapsed))
	return result
}

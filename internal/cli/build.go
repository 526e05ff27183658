package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/viper"

	"github.com/checkai/checkai/internal/claims"
	"github.com/checkai/checkai/internal/evidence"
	"github.com/checkai/checkai/internal/llm"
	"github.com/checkai/checkai/internal/model"
	"github.com/checkai/checkai/internal/pipeline"
	"github.com/checkai/checkai/internal/util"
	"github.com/checkai/checkai/internal/verify"
	"github.com/checkai/checkai/internal/worker"
)

// loadConfig builds the effective configuration: defaults, overlaid by the
// config file and CHECKAI_* environment variables, with API keys also
// accepted from their conventional variable names.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.Search.SerperAPIKey == "" {
		cfg.Search.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}
	if cfg.Search.BraveAPIKey == "" {
		cfg.Search.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}
	if cfg.NLI.APIKey == "" {
		cfg.NLI.APIKey = os.Getenv("HF_API_KEY")
	}

	cfg.Output.Verbose = verbose
	return cfg, nil
}

// buildPipeline wires every component from the configuration. Components
// with missing credentials are constructed anyway and degrade to their
// deterministic fallbacks.
func buildPipeline(cfg *model.Config, logger *slog.Logger) *pipeline.Pipeline {
	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout}

	backend := llm.NewOpenAICompatible(cfg.LLM)
	client := llm.NewClient(backend, cfg.LLM.MaxRetries, logger)

	synthesizer := claims.NewSynthesizer(client, cfg.LLM.Model, logger)

	scorer := evidence.NewAuthorityScorer(cfg.Search.PreferredDomains, cfg.Search.BlockedDomains)
	channels := buildChannels(cfg, httpClient, scorer, logger)

	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	limiter := worker.NewLimiter(cfg.HTTP.RatePerHost, cfg.HTTP.RateBurst)
	enricher := evidence.NewEnricher(httpClient, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, robots, limiter, logger)
	prober := evidence.NewProber(cfg.HTTP.ProbeTimeout, cfg.HTTP.UserAgent)

	aggregator := evidence.NewAggregator(evidence.AggregatorOptions{
		Channels:     channels,
		Prober:       prober,
		Enricher:     enricher,
		Client:       client,
		ModelName:    cfg.LLM.Model,
		Logger:       logger,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		EnrichTop:    cfg.Search.EnrichTop,
	})

	nliClient := &http.Client{Timeout: cfg.NLI.Timeout}
	classifier := verify.NewHFClassifier(nliClient, cfg.NLI.Endpoint, cfg.NLI.APIKey, cfg.NLI.Model)
	entailScorer := verify.NewScorer(classifier, client, cfg.LLM.Model, logger)
	fuser := verify.NewFuser(client, cfg.LLM.Model, entailScorer, cfg.Verify, logger)

	return pipeline.New(pipeline.Options{
		Synthesizer: synthesizer,
		Aggregator:  aggregator,
		Verifier:    fuser,
		Workers:     cfg.Concurrency.VerifyWorkers,
		MaxWorkers:  cfg.Concurrency.MaxVerifyWorkers,
		Logger:      logger,
	})
}

// buildChannels assembles the retrieval channels named in the config.
// Unknown channel names are logged and skipped.
func buildChannels(cfg *model.Config, httpClient *http.Client, scorer *evidence.AuthorityScorer, logger *slog.Logger) []evidence.Channel {
	var channels []evidence.Channel
	for _, name := range cfg.Search.Channels {
		switch name {
		case "web":
			var providers []evidence.Channel
			serper := evidence.NewSerperChannel(httpClient, cfg.Search.SerperAPIKey, cfg.Search.Location, cfg.Search.Language, scorer)
			if serper.Configured() {
				providers = append(providers, serper)
			}
			brave := evidence.NewBraveChannel(httpClient, cfg.Search.BraveAPIKey, scorer)
			if brave.Configured() {
				providers = append(providers, brave)
			}
			if len(providers) == 0 {
				logger.Warn("web channel enabled but no search provider configured")
				continue
			}
			channels = append(channels, evidence.NewWebChannel(logger, providers...))
		case "wikipedia":
			channels = append(channels, evidence.NewWikipediaChannel(httpClient, cfg.HTTP.UserAgent))
		case "wikidata":
			channels = append(channels, evidence.NewWikidataChannel(httpClient, cfg.HTTP.UserAgent, cfg.Search.Language))
		default:
			logger.Warn("unknown evidence channel", slog.String("channel", name))
		}
	}
	return channels
}

package model

import "time"

// Config is the full process configuration tree. It is constructed once at
// startup and passed by reference into each component constructor; nothing
// in the core reads global state. Fields carry both mapstructure tags for
// viper and yaml tags for config rendering, with identical key names.
type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	LLM         LLMConfig         `mapstructure:"llm" yaml:"llm"`
	NLI         NLIConfig         `mapstructure:"nli" yaml:"nli"`
	Search      SearchConfig      `mapstructure:"search" yaml:"search"`
	Verify      VerifyConfig      `mapstructure:"verify" yaml:"verify"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
}

// HTTPConfig controls outbound page fetches and reachability probes
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	RatePerHost  float64       `mapstructure:"rate_per_host" yaml:"rate_per_host"`
	RateBurst    int           `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// LLMConfig configures the structured completion backend. An empty APIKey
// means the backend is unconfigured and every call returns its fallback.
type LLMConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Model      string        `mapstructure:"model" yaml:"model"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// NLIConfig configures the optional external entailment classifier
type NLIConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Model    string        `mapstructure:"model" yaml:"model"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SearchConfig configures the retrieval channels
type SearchConfig struct {
	SerperAPIKey     string   `mapstructure:"serper_api_key" yaml:"serper_api_key"`
	BraveAPIKey      string   `mapstructure:"brave_api_key" yaml:"brave_api_key"`
	Location         string   `mapstructure:"location" yaml:"location"`
	Language         string   `mapstructure:"language" yaml:"language"`
	DefaultLimit     int      `mapstructure:"default_limit" yaml:"default_limit"`
	MaxLimit         int      `mapstructure:"max_limit" yaml:"max_limit"`
	PreferredDomains []string `mapstructure:"preferred_domains" yaml:"preferred_domains"`
	BlockedDomains   []string `mapstructure:"blocked_domains" yaml:"blocked_domains"`
	Channels         []string `mapstructure:"channels" yaml:"channels"`
	EnrichTop        int      `mapstructure:"enrich_top" yaml:"enrich_top"`
}

// VerifyConfig holds the fusion policy knobs. These thresholds are policy
// parameters, not validated statistical constants.
type VerifyConfig struct {
	SupportThreshold  float64 `mapstructure:"support_threshold" yaml:"support_threshold"`
	RefuteThreshold   float64 `mapstructure:"refute_threshold" yaml:"refute_threshold"`
	DominanceRatio    float64 `mapstructure:"dominance_ratio" yaml:"dominance_ratio"`
	DisputeBand       float64 `mapstructure:"dispute_band" yaml:"dispute_band"`
	ConfidenceWeight  float64 `mapstructure:"confidence_weight" yaml:"confidence_weight"`
	CoverageDivisor   float64 `mapstructure:"coverage_divisor" yaml:"coverage_divisor"`
	MaxEvidence       int     `mapstructure:"max_evidence" yaml:"max_evidence"`
	MaxEntailEvidence int     `mapstructure:"max_entail_evidence" yaml:"max_entail_evidence"`
}

// ConcurrencyConfig bounds the phase-2 worker pool
type ConcurrencyConfig struct {
	VerifyWorkers    int `mapstructure:"verify_workers" yaml:"verify_workers"`
	MaxVerifyWorkers int `mapstructure:"max_verify_workers" yaml:"max_verify_workers"`
}

// OutputConfig controls CLI rendering
type OutputConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			ProbeTimeout: 2500 * time.Millisecond,
			UserAgent:    "CheckAI/0.1 (+https://github.com/checkai/checkai)",
			MaxBodyBytes: 2_000_000,
			RatePerHost:  2,
			RateBurst:    5,
		},
		LLM: LLMConfig{
			BaseURL:    "https://api.deepseek.com",
			Model:      "deepseek-chat",
			MaxRetries: 2,
			Timeout:    60 * time.Second,
		},
		NLI: NLIConfig{
			Endpoint: "https://api-inference.huggingface.co/models",
			Model:    "roberta-large-mnli",
			Timeout:  20 * time.Second,
		},
		Search: SearchConfig{
			Location:     "us",
			Language:     "en",
			DefaultLimit: 10,
			MaxLimit:     20,
			PreferredDomains: []string{
				"wikipedia.org", "wikidata.org", "reuters.com", "apnews.com",
				"bbc.com", "nytimes.com", "un.org", "who.int",
				"worldbank.org", "imf.org",
			},
			BlockedDomains: []string{"baidu.com", "baijiahao.baidu.com", "toutiao.com"},
			Channels:       []string{"web", "wikipedia"},
			EnrichTop:      3,
		},
		Verify: VerifyConfig{
			SupportThreshold:  0.5,
			RefuteThreshold:   0.5,
			DominanceRatio:    1.2,
			DisputeBand:       0.35,
			ConfidenceWeight:  0.7,
			CoverageDivisor:   6,
			MaxEvidence:       6,
			MaxEntailEvidence: 5,
		},
		Concurrency: ConcurrencyConfig{
			VerifyWorkers:    2,
			MaxVerifyWorkers: 6,
		},
	}
}

package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// pointViperAt mirrors initConfig's wiring against an explicit file
func pointViperAt(t *testing.T, path string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.SetConfigFile(path)
	viper.SetEnvPrefix("CHECKAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig_AppliesFileValues(t *testing.T) {
	t.Setenv("SERPER_API_KEY", "")
	pointViperAt(t, writeConfigFile(t, `
http:
  user_agent: test-agent
  probe_timeout: 1s
search:
  serper_api_key: sk-test
  default_limit: 7
  location: de
verify:
  support_threshold: 0.9
concurrency:
  verify_workers: 4
`))

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HTTP.UserAgent != "test-agent" {
		t.Errorf("user_agent not applied: %q", cfg.HTTP.UserAgent)
	}
	if cfg.HTTP.ProbeTimeout != time.Second {
		t.Errorf("probe_timeout not applied: %v", cfg.HTTP.ProbeTimeout)
	}
	if cfg.Search.SerperAPIKey != "sk-test" {
		t.Errorf("serper_api_key not applied: %q", cfg.Search.SerperAPIKey)
	}
	if cfg.Search.DefaultLimit != 7 {
		t.Errorf("default_limit not applied: %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.Location != "de" {
		t.Errorf("location not applied: %q", cfg.Search.Location)
	}
	if cfg.Verify.SupportThreshold != 0.9 {
		t.Errorf("support_threshold not applied: %v", cfg.Verify.SupportThreshold)
	}
	if cfg.Concurrency.VerifyWorkers != 4 {
		t.Errorf("verify_workers not applied: %d", cfg.Concurrency.VerifyWorkers)
	}
	// Unset keys keep their defaults
	if cfg.Search.MaxLimit != 20 {
		t.Errorf("expected default max_limit, got %d", cfg.Search.MaxLimit)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("CHECKAI_SEARCH_SERPER_API_KEY", "sk-env")
	t.Setenv("CHECKAI_SEARCH_LOCATION", "fr")
	pointViperAt(t, writeConfigFile(t, `
search:
  serper_api_key: sk-file
  location: de
`))

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.SerperAPIKey != "sk-env" {
		t.Errorf("env should override file for serper_api_key, got %q", cfg.Search.SerperAPIKey)
	}
	if cfg.Search.Location != "fr" {
		t.Errorf("env should override file for location, got %q", cfg.Search.Location)
	}
}

func TestLoadConfig_ConventionalKeyEnvFallback(t *testing.T) {
	t.Setenv("SERPER_API_KEY", "sk-conventional")
	pointViperAt(t, writeConfigFile(t, "search:\n  location: de\n"))

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.SerperAPIKey != "sk-conventional" {
		t.Errorf("expected conventional env fallback, got %q", cfg.Search.SerperAPIKey)
	}
}

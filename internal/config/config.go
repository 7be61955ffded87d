// Package config loads process configuration from the environment once at
// startup into an immutable value, the way cmd/autoscholar wires every
// other singleton: explicitly, in main, never through package-level state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the workflow needs. All
// fields are populated once by Load and never mutated afterward.
type Config struct {
	LLMAPIKey    string
	LLMBaseURL   string
	LLMModel     string

	SemanticScholarAPIKey string
	PubMedAPIKey          string
	UnpaywallEmail        string

	ListenAddr string

	LLMConcurrency              int
	FullTextConcurrency         int
	ClaimVerificationConcurrency int

	MinEntailmentRatio       float64
	MaxRetryCount            int
	MaxKeywords              int
	MaxConversationTurns     int
	PapersPerQuery           int
	ClaimVerificationEnabled bool

	SourceSkipWindow    time.Duration
	SourceSkipThreshold int

	HTTPPoolMaxConnsPerHost int
	HTTPDNSCacheTTL         time.Duration
	HTTPTimeout             time.Duration

	StreamFlushInterval time.Duration
}

// Load reads a .env file if present (missing files are not an error, the
// way godotenv.Load behaves when called against an optional path) and then
// populates Config from the environment, applying defaults for everything
// but LLM_API_KEY.
func Load() (*Config, error) {
	_ = godotenv.Load()

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("config: LLM_API_KEY is required")
	}

	cfg := &Config{
		LLMAPIKey:  apiKey,
		LLMBaseURL: envOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:   envOrDefault("LLM_MODEL", "gpt-4o-mini"),

		SemanticScholarAPIKey: os.Getenv("SEMANTIC_SCHOLAR_API_KEY"),
		PubMedAPIKey:          os.Getenv("PUBMED_API_KEY"),
		UnpaywallEmail:        envOrDefault("UNPAYWALL_EMAIL", "autoscholar@example.com"),

		ListenAddr: envOrDefault("LISTEN_ADDR", ":8080"),

		LLMConcurrency:               2,
		FullTextConcurrency:          3,
		ClaimVerificationConcurrency: 2,

		MinEntailmentRatio:       0.8,
		MaxRetryCount:            3,
		MaxKeywords:              5,
		MaxConversationTurns:     5,
		PapersPerQuery:           10,
		ClaimVerificationEnabled: envOrDefault("CLAIM_VERIFICATION_ENABLED", "true") == "true",

		SourceSkipWindow:    120 * time.Second,
		SourceSkipThreshold: 3,

		HTTPPoolMaxConnsPerHost: 50,
		HTTPDNSCacheTTL:         5 * time.Minute,
		HTTPTimeout:             60 * time.Second,

		StreamFlushInterval: 200 * time.Millisecond,
	}

	if v := os.Getenv("LLM_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: LLM_CONCURRENCY: %w", err)
		}
		cfg.LLMConcurrency = n
	}
	if v := os.Getenv("FULLTEXT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: FULLTEXT_CONCURRENCY: %w", err)
		}
		cfg.FullTextConcurrency = n
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package domain

import "time"

// KeyPrefix namespaces every key the service writes to the shared store.
const KeyPrefix = "marketlens:"

// SearchDefaults holds the resilient search client settings used when config is silent.
type SearchDefaults struct {
	Model        string
	MaxRetries   int
	BackoffBase  time.Duration
	CacheSize    int
	SystemPrompt string
}

// DefaultSearchConfig returns the Perplexity settings the pipeline was tuned with.
func DefaultSearchConfig() SearchDefaults {
	return SearchDefaults{
		Model:        "llama-3.1-sonar-huge-128k-online",
		MaxRetries:   3,
		BackoffBase:  time.Second,
		CacheSize:    100,
		SystemPrompt: "Be precise and concise.",
	}
}

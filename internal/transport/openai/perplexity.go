package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketlens/internal/domain"
	"github.com/kailas-cloud/marketlens/internal/metrics"
)

const searchProvider = "perplexity"

// Searcher is a single-shot search backend over the Perplexity OpenAI-compatible
// chat completions API. It does not retry; see usecase/search for that.
type Searcher struct {
	client       *openai.Client
	apiKey       string
	model        string
	systemPrompt string
	logger       *zap.Logger
}

// SearchConfig holds the search backend settings.
type SearchConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// NewSearcher creates a Perplexity search backend.
func NewSearcher(cfg *SearchConfig) *Searcher {
	defaults := domain.DefaultSearchConfig()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	model := cfg.Model
	if model == "" {
		model = defaults.Model
	}
	system := cfg.SystemPrompt
	if system == "" {
		system = defaults.SystemPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Searcher{
		client:       openai.NewClientWithConfig(clientCfg),
		apiKey:       cfg.APIKey,
		model:        model,
		systemPrompt: system,
		logger:       logger,
	}
}

// SearchPrompt is the user message sent for a query.
func SearchPrompt(query string) string {
	return fmt.Sprintf("Search for recent and accurate market data on: %s. "+
		"Focus on reputable sources and provide specific numbers and statistics when available.", query)
}

// Search implements domain.Searcher. Errors wrap domain.ErrSearchPermanent for
// rejected requests (400/401/403/404/422, missing key) and domain.ErrSearchTransient otherwise.
func (s *Searcher) Search(ctx context.Context, query string) (string, error) {
	if s.apiKey == "" {
		metrics.SearchAttemptsTotal.WithLabelValues(searchProvider, "error").Inc()
		return "", fmt.Errorf("search api key is not set: %w", domain.ErrSearchPermanent)
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: SearchPrompt(query)},
		},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	metrics.SearchRequestDuration.WithLabelValues(searchProvider).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SearchAttemptsTotal.WithLabelValues(searchProvider, "error").Inc()
		return "", classifySearchError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.SearchAttemptsTotal.WithLabelValues(searchProvider, "error").Inc()
		return "", fmt.Errorf("search response has no content: %w", domain.ErrSearchTransient)
	}

	metrics.SearchAttemptsTotal.WithLabelValues(searchProvider, "success").Inc()
	s.logger.Debug("search completed",
		zap.String("model", s.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

func classifySearchError(err error) error {
	code := statusCode(err)
	if code == 0 {
		return fmt.Errorf("search request failed: %w: %w", domain.ErrSearchTransient, err)
	}
	wrap := domain.ErrSearchTransient
	if isPermanentStatus(code) {
		wrap = domain.ErrSearchPermanent
	}
	return fmt.Errorf("search API error %d: %s: %w", code, errorDetail(err), wrap)
}

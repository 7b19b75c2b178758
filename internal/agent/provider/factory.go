package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// NewAnalyzer builds the client for the configured provider. cfg must come
// from config.Load so credentials are already checked.
func NewAnalyzer(ctx context.Context, cfg *config.DocfilerConfig, log logger.Logger) (Analyzer, error) {
	log.Info("Creating provider client",
		logger.String("provider", string(cfg.Provider)),
		logger.String("model", cfg.ActiveModel),
	)

	switch cfg.Provider {
	case models.ProviderClaude:
		return NewClaudeClient(cfg.ActiveAPIKey, cfg.ActiveModel, cfg.ClaudeBaseURL, log), nil
	case models.ProviderOpenAI:
		return NewOpenAIClient(cfg.ActiveAPIKey, cfg.ActiveModel, cfg.OpenAIBaseURL, log), nil
	case models.ProviderGemini:
		return NewGeminiClient(cfg.ActiveAPIKey, cfg.ActiveModel, cfg.GeminiBaseURL, log), nil
	case models.ProviderOllama:
		return NewOllamaAnalyzer(&OllamaConfig{
			Endpoint:    cfg.OllamaEndpoint,
			Model:       cfg.ActiveModel,
			MaxPoolSize: cfg.OllamaPoolSize,
			PoolTimeout: 30 * time.Second,
		}, log), nil
	case models.ProviderVertex:
		return NewVertexClient(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.ActiveModel, cfg.VertexCredentialsFile, log)
	default:
		return nil, fmt.Errorf("unknown provider: %s. Must be 'claude', 'openai', 'gemini', 'ollama', or 'vertex'", cfg.Provider)
	}
}

package contextgen

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/googleai/vertex"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/models"
)

// NewModel builds the text model for the configured provider, reusing the
// credentials and model names of the vision pipeline.
func NewModel(ctx context.Context, cfg *config.DocfilerConfig) (llms.Model, error) {
	switch cfg.Provider {
	case models.ProviderClaude:
		return anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.ClaudeModel),
			anthropic.WithBaseURL(cfg.ClaudeBaseURL+"/v1"),
		)
	case models.ProviderOpenAI:
		return openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.OpenAIModel),
			openai.WithBaseURL(cfg.OpenAIBaseURL),
		)
	case models.ProviderGemini:
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(cfg.GeminiModel),
		)
	case models.ProviderOllama:
		return ollama.New(
			ollama.WithServerURL(cfg.OllamaEndpoint),
			ollama.WithModel(cfg.OllamaModel),
		)
	case models.ProviderVertex:
		opts := []googleai.Option{
			googleai.WithCloudProject(cfg.VertexProject),
			googleai.WithCloudLocation(cfg.VertexRegion),
			googleai.WithDefaultModel(cfg.VertexModel),
		}
		if cfg.VertexCredentialsFile != "" {
			opts = append(opts, googleai.WithCredentialsFile(cfg.VertexCredentialsFile))
		}
		return vertex.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

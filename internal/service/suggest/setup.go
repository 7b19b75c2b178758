package suggest

import (
	"context"
	"fmt"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/agent"
	"github.com/feichai0017/docfiler/internal/agent/provider"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// NewFromConfig wires the page pipeline, the configured analyzer and the
// prompt files into a Service. Transcripts are written under prefix when
// transcripts is non-nil.
func NewFromConfig(ctx context.Context, cfg *config.DocfilerConfig, transcripts TranscriptStore, prefix string, log logger.Logger) (*Service, error) {
	factory, err := agent.NewProcessorFactory(log, agent.OptionsFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processor factory: %w", err)
	}

	sources, err := cfg.PromptSources()
	if err != nil {
		return nil, err
	}

	analyzer, err := provider.NewAnalyzer(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	}

	opts := Options{
		Template:          sources.Template,
		Context:           sources.Context,
		ExtraInstructions: sources.ExtraInstructions,
		MaxTokens:         cfg.MaxTokens,
	}
	if transcripts != nil {
		opts.Transcripts = NewTranscriptRecorder(transcripts, prefix, log)
	}

	svc, err := NewService(factory, analyzer, opts, log)
	if err != nil {
		analyzer.Close()
		return nil, err
	}
	return svc, nil
}

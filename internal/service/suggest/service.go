package suggest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/feichai0017/docfiler/internal/agent/provider"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// PageSource produces the normalized page images for a document.
type PageSource interface {
	ProcessDocument(ctx context.Context, path string) ([][]byte, error)
}

type Options struct {
	// Template, Context and ExtraInstructions fall back to the built-in
	// defaults when empty. ExtraInstructions has no default.
	Template          string
	Context           string
	ExtraInstructions string
	MaxTokens         int

	// Transcripts is optional.
	Transcripts *TranscriptRecorder
}

// Analysis is the detailed outcome of one document.
type Analysis struct {
	Document   models.DocumentRef      `json:"document"`
	Suggestion models.FilingSuggestion `json:"suggestion"`
	Raw        map[string]any          `json:"raw"`
	ImageCount int                     `json:"imageCount"`
	Prompt     string                  `json:"-"`
	Provider   string                  `json:"provider"`
	Model      string                  `json:"model"`
	Transcript string                  `json:"transcript,omitempty"`
	Duration   time.Duration           `json:"duration"`
}

type Service struct {
	pages       PageSource
	analyzer    provider.Analyzer
	checker     *ResultChecker
	transcripts *TranscriptRecorder
	prompt      string
	maxTokens   int
	logger      logger.Logger
}

func NewService(pages PageSource, analyzer provider.Analyzer, opts Options, log logger.Logger) (*Service, error) {
	if pages == nil || analyzer == nil {
		return nil, fmt.Errorf("page source and analyzer are required")
	}
	if opts.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive")
	}

	checker, err := NewResultChecker()
	if err != nil {
		return nil, err
	}

	template := opts.Template
	if template == "" {
		template = DefaultPrompt
	}
	docContext := opts.Context
	if docContext == "" {
		docContext = DefaultContext
	}

	return &Service{
		pages:       pages,
		analyzer:    analyzer,
		checker:     checker,
		transcripts: opts.Transcripts,
		prompt:      BuildPrompt(template, docContext, opts.ExtraInstructions),
		maxTokens:   opts.MaxTokens,
		logger:      log.Named("suggest"),
	}, nil
}

// Prompt returns the fully substituted prompt sent with every document.
func (s *Service) Prompt() string { return s.prompt }

// AnalyzeDocument returns the filing suggestion for the document at path.
func (s *Service) AnalyzeDocument(ctx context.Context, path string) (*models.FilingSuggestion, error) {
	a, err := s.Analyze(ctx, path)
	if err != nil {
		return nil, err
	}
	return &a.Suggestion, nil
}

// Analyze runs page selection, the provider call and result mapping. Errors
// from either stage are returned unchanged.
func (s *Service) Analyze(ctx context.Context, path string) (*Analysis, error) {
	start := time.Now()
	log := logger.NewContextLogger(s.logger).FromContext(logger.WithDocument(ctx, path))
	log.Info("Analyzing document")

	images, err := s.pages.ProcessDocument(ctx, path)
	if err != nil {
		log.Error("Failed to prepare document pages", logger.Error(err))
		return nil, err
	}
	log.Debug("Extracted page images", logger.Int("images", len(images)))

	raw, err := s.analyzer.AnalyzeDocument(ctx, s.prompt, images, s.maxTokens)
	transcript := s.transcripts.Record(ctx, path, s.prompt, raw, err)
	if err != nil {
		log.Error("Provider analysis failed",
			logger.String("provider", s.analyzer.Name()),
			logger.Error(err),
		)
		return nil, err
	}

	for _, w := range s.checker.Check(raw) {
		log.Warn("Provider reply deviates from suggestion schema", logger.String("violation", w))
	}

	// A custom PageSource may accept files outside the known extensions;
	// the reference then carries no kind.
	ref, ok := models.NewDocumentRef(path)
	if !ok {
		log.Debug("Document kind unknown for extension", logger.String("ext", filepath.Ext(path)))
	}
	suggestion := ToSuggestion(raw)
	a := &Analysis{
		Document:   ref,
		Suggestion: suggestion,
		Raw:        raw,
		ImageCount: len(images),
		Prompt:     s.prompt,
		Provider:   s.analyzer.Name(),
		Model:      s.analyzer.Model(),
		Transcript: transcript,
		Duration:   time.Since(start),
	}

	log.Info("Suggestion ready",
		logger.String("suggestion", suggestion.String()),
		logger.Float64("confidence", suggestion.Confidence),
		logger.Duration("duration", a.Duration),
	)
	return a, nil
}

func (s *Service) Close() error {
	return s.analyzer.Close()
}

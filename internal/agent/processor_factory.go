package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/agent/document"
	docimage "github.com/feichai0017/docfiler/internal/agent/document/image"
	"github.com/feichai0017/docfiler/internal/agent/document/pdf"
	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// ProcessOptions configures page selection and normalization.
type ProcessOptions struct {
	DPI              int
	MaxDimension     int
	MaxPages         int
	PdftoppmPath     string
	EmbeddedFallback bool
	// Runner overrides how pdftoppm is executed.
	Runner pdf.Runner
}

// OptionsFromConfig maps the loaded configuration onto ProcessOptions.
func OptionsFromConfig(c *config.DocfilerConfig) ProcessOptions {
	return ProcessOptions{
		DPI:              c.ImageDPI,
		MaxDimension:     c.MaxImageDimension,
		MaxPages:         c.PDFPagesToExtract,
		PdftoppmPath:     c.PdftoppmPath,
		EmbeddedFallback: c.PDFEmbeddedFallback,
	}
}

// ProcessorFactory routes a document to the processor for its kind.
type ProcessorFactory struct {
	processors map[models.DocumentKind]document.Processor
	logger     logger.Logger
}

func NewProcessorFactory(log logger.Logger, opts ProcessOptions) (*ProcessorFactory, error) {
	if opts.DPI <= 0 || opts.MaxDimension <= 0 {
		return nil, fmt.Errorf("dpi and max dimension must be positive")
	}

	normalizer := docimage.NewNormalizer(opts.MaxDimension, opts.DPI)
	imageProcessor, err := docimage.NewProcessor(log, normalizer)
	if err != nil {
		return nil, fmt.Errorf("failed to create image processor: %w", err)
	}
	pdfProcessor := pdf.NewProcessor(log, normalizer, pdf.Options{
		DPI:              opts.DPI,
		MaxPages:         opts.MaxPages,
		PdftoppmPath:     opts.PdftoppmPath,
		EmbeddedFallback: opts.EmbeddedFallback,
		Runner:           opts.Runner,
	})

	return &ProcessorFactory{
		processors: map[models.DocumentKind]document.Processor{
			models.KindPDF:   pdfProcessor,
			models.KindImage: imageProcessor,
		},
		logger: log.Named("selector"),
	}, nil
}

// GetProcessor picks the processor for path by its extension.
func (f *ProcessorFactory) GetProcessor(path string) (document.Processor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	kind, ok := models.KindForExtension(ext)
	if !ok {
		return nil, &common.UnsupportedFormatError{Path: path, Extension: ext}
	}

	processor, ok := f.processors[kind]
	if !ok || !processor.CanProcess(kind) {
		return nil, fmt.Errorf("no processor found for document kind: %s", kind)
	}
	return processor, nil
}

// ProcessDocument returns the normalized page images for path. It fails
// with NotFoundError before looking at the extension.
func (f *ProcessorFactory) ProcessDocument(ctx context.Context, path string) ([][]byte, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &common.NotFoundError{Path: path}
	}

	processor, err := f.GetProcessor(path)
	if err != nil {
		f.logger.Error("Unsupported document", logger.String("path", path), logger.Error(err))
		return nil, err
	}

	images, err := processor.Process(ctx, path)
	if err != nil {
		return nil, err
	}
	f.logger.Info("Document pages prepared",
		logger.String("path", path),
		logger.Int("images", len(images)),
	)
	return images, nil
}

func (f *ProcessorFactory) Close() error {
	var firstErr error
	for _, p := range f.processors {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

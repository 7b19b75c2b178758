package pdf

import (
	"context"
	"fmt"
	"image"

	docimage "github.com/feichai0017/docfiler/internal/agent/document/image"
	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

type Options struct {
	DPI          int
	MaxPages     int
	PdftoppmPath string
	// EmbeddedFallback adds the pdfcpu embedded-image rasterizer after pdftoppm.
	EmbeddedFallback bool
	Runner           Runner
}

type Processor struct {
	logger      logger.Logger
	normalizer  *docimage.Normalizer
	rasterizers []Rasterizer
	dpi         int
	maxPages    int
	countPages  func(path string) (int, error)
}

func NewProcessor(log logger.Logger, normalizer *docimage.Normalizer, opts Options) *Processor {
	log = log.Named("pdf")
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{Logger: log}
	}
	rasterizers := []Rasterizer{NewPopplerRasterizer(opts.PdftoppmPath, runner)}
	if opts.EmbeddedFallback {
		rasterizers = append(rasterizers, EmbeddedImageRasterizer{})
	}
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = normalizer.DPI()
	}

	return &Processor{
		logger:      log,
		normalizer:  normalizer,
		rasterizers: rasterizers,
		dpi:         dpi,
		maxPages:    opts.MaxPages,
		countPages:  PageCount,
	}
}

func (p *Processor) CanProcess(kind models.DocumentKind) bool {
	return kind == models.KindPDF
}

// Process renders the selected pages in order. A page that fails is logged
// and skipped; the call fails only when no page survives.
func (p *Processor) Process(ctx context.Context, path string) ([][]byte, error) {
	total, err := p.countPages(path)
	if err != nil {
		return nil, &common.ExtractionFailure{Path: path, Cause: err}
	}

	indices := capIndices(SelectPageIndices(total), p.maxPages)
	p.logger.Info("Extracting PDF pages",
		logger.String("path", path),
		logger.Int("totalPages", total),
		logger.Ints("pages", indices),
	)

	images := make([][]byte, 0, len(indices))
	var lastErr error
	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := p.rasterize(ctx, path, idx)
		if err == nil {
			var data []byte
			if data, err = p.normalizer.Normalize(img); err == nil {
				images = append(images, data)
				continue
			}
		}

		lastErr = err
		p.logger.Warn("Failed to extract page",
			logger.String("path", path),
			logger.Int("page", idx+1),
			logger.Error(err),
		)
	}

	if len(images) == 0 {
		return nil, &common.ExtractionFailure{Path: path, Pages: indices, Cause: lastErr}
	}
	return images, nil
}

func (p *Processor) rasterize(ctx context.Context, path string, pageIndex int) (image.Image, error) {
	var errs []error
	for _, r := range p.rasterizers {
		img, err := r.RasterizePage(ctx, path, pageIndex, p.dpi)
		if err == nil {
			return img, nil
		}
		p.logger.Debug("Rasterizer failed",
			logger.String("rasterizer", r.Name()),
			logger.Int("page", pageIndex+1),
			logger.Error(err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
	}
	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, fmt.Errorf("all rasterizers failed on page %d: %v", pageIndex+1, errs)
}

func (p *Processor) Close() error { return nil }

package image

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// Processor loads a single raster file and normalizes it.
type Processor struct {
	logger     logger.Logger
	normalizer *Normalizer
}

func NewProcessor(log logger.Logger, normalizer *Normalizer) (*Processor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	return &Processor{logger: log.Named("image"), normalizer: normalizer}, nil
}

func (p *Processor) CanProcess(kind models.DocumentKind) bool {
	return kind == models.KindImage
}

// Process returns exactly one normalized PNG for the file at path. Decode
// and encode failures are reported as *common.ExtractionFailure.
func (p *Processor) Process(ctx context.Context, path string) ([][]byte, error) {
	img, err := LoadFrame(path, 0)
	if err != nil {
		p.logger.Warn("Failed to decode image", logger.String("path", path), logger.Error(err))
		return nil, &common.ExtractionFailure{Path: path, Pages: []int{0}, Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := p.normalizer.Normalize(img)
	if err != nil {
		return nil, &common.ExtractionFailure{Path: path, Pages: []int{0}, Cause: fmt.Errorf("failed to normalize: %w", err)}
	}

	b := img.Bounds()
	p.logger.Debug("Normalized image",
		logger.String("path", path),
		logger.Int("width", b.Dx()),
		logger.Int("height", b.Dy()),
		logger.Int("bytes", len(data)),
	)
	return [][]byte{data}, nil
}

// LoadFrame decodes the first frame of a raster file. Raster files have a
// single page, so any other index is rejected.
func LoadFrame(path string, pageIndex int) (image.Image, error) {
	if pageIndex != 0 {
		return nil, fmt.Errorf("page index %d out of range for raster image", pageIndex)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

func (p *Processor) Close() error { return nil }

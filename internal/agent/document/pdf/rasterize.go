package pdf

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Rasterizer renders one zero-based page of a PDF.
type Rasterizer interface {
	Name() string
	RasterizePage(ctx context.Context, path string, pageIndex, dpi int) (image.Image, error)
}

// PopplerRasterizer shells out to pdftoppm.
type PopplerRasterizer struct {
	binary string
	runner Runner
}

func NewPopplerRasterizer(binary string, runner Runner) *PopplerRasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &PopplerRasterizer{binary: binary, runner: runner}
}

func (r *PopplerRasterizer) Name() string { return "pdftoppm" }

func (r *PopplerRasterizer) RasterizePage(ctx context.Context, path string, pageIndex, dpi int) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "docfiler-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	page := strconv.Itoa(pageIndex + 1)
	_, stderr, err := r.runner.Run(ctx, r.binary,
		"-r", strconv.Itoa(dpi),
		"-f", page, "-l", page,
		"-png", "-singlefile",
		path, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed on page %s: %w: %s", page, err, strings.TrimSpace(string(stderr)))
	}

	img, err := imaging.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page %s: %w", page, err)
	}
	return img, nil
}

// EmbeddedImageRasterizer returns the largest image embedded on the page.
// It is a fallback for scanned PDFs when pdftoppm is unavailable.
type EmbeddedImageRasterizer struct{}

func (EmbeddedImageRasterizer) Name() string { return "pdfcpu-embedded" }

func (EmbeddedImageRasterizer) RasterizePage(ctx context.Context, path string, pageIndex, dpi int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "docfiler-embedded-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	page := strconv.Itoa(pageIndex + 1)
	if err := api.ExtractImagesFile(path, tmpDir, []string{page}, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images from page %s: %w", page, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, err
	}

	var best image.Image
	bestArea := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		img, err := imaging.Open(filepath.Join(tmpDir, e.Name()))
		if err != nil {
			continue
		}
		b := img.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no decodable embedded image on page %s", page)
	}
	return best, nil
}

package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Normalizer turns decoded frames into bounded PNG bytes.
type Normalizer struct {
	maxDimension int
	dpi          int
}

func NewNormalizer(maxDimension, dpi int) *Normalizer {
	return &Normalizer{maxDimension: maxDimension, dpi: dpi}
}

func (n *Normalizer) MaxDimension() int { return n.maxDimension }
func (n *Normalizer) DPI() int          { return n.dpi }

// Normalize converts img to a gray or RGB model, shrinks it to fit within
// the maximum dimension and encodes it as PNG tagged with the DPI.
func (n *Normalizer) Normalize(img image.Image) ([]byte, error) {
	return Normalize(img, n.maxDimension, n.dpi)
}

func Normalize(img image.Image, maxDimension, dpi int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	out := Fit(canonicalMode(img), maxDimension)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return withPNGDensity(buf.Bytes(), dpi)
}

// Fit downsamples img with Lanczos so neither side exceeds maxDimension.
// Images already within bounds are returned as is.
func Fit(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	if maxDimension <= 0 || (b.Dx() <= maxDimension && b.Dy() <= maxDimension) {
		return img
	}

	resized := imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	if isGray(img) {
		return toGray(resized)
	}
	return resized
}

// canonicalMode keeps single-channel images gray and flattens everything
// else onto an opaque white RGB canvas.
func canonicalMode(img image.Image) image.Image {
	switch src := img.(type) {
	case *image.Gray:
		return src
	case *image.Gray16:
		return toGray(src)
	}

	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

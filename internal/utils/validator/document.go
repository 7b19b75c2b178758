package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// DocumentValidator checks uploads before they are stored and queued.
type DocumentValidator struct {
	logger logger.Logger
	config *ValidatorConfig
}

type ValidatorConfig struct {
	MaxFileSize  int64               // bytes
	AllowedTypes map[string][]string // extension -> sniffed MIME types
	MinDimension int                 // smallest accepted image side, in pixels
	MaxPageCount int
}

type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	FileInfo FileInfo          `json:"fileInfo"`
}

type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type FileInfo struct {
	Filename  string         `json:"filename"`
	Size      int64          `json:"size"`
	MimeType  string         `json:"mimeType"`
	Extension string         `json:"extension"`
	Hash      string         `json:"hash"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Upload is the subset of multipart.File the validator needs.
type Upload interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

func DefaultConfig() *ValidatorConfig {
	return &ValidatorConfig{
		MaxFileSize: 50 * 1024 * 1024,
		AllowedTypes: map[string][]string{
			".pdf":  {"application/pdf"},
			".png":  {"image/png"},
			".jpg":  {"image/jpeg"},
			".jpeg": {"image/jpeg"},
			".tiff": {"image/tiff"},
			".tif":  {"image/tiff"},
			".bmp":  {"image/bmp"},
		},
		MinDimension: 100,
		MaxPageCount: 1000,
	}
}

func NewDocumentValidator(log logger.Logger, config *ValidatorConfig) *DocumentValidator {
	if config == nil {
		config = DefaultConfig()
	}
	return &DocumentValidator{
		logger: log.Named("validator"),
		config: config,
	}
}

// ValidateFile validates one multipart upload.
func (v *DocumentValidator) ValidateFile(file *multipart.FileHeader) (*ValidationResult, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return v.Validate(file.Filename, file.Size, f)
}

// Validate runs every check against r. Check failures are reported in the
// result; the error is reserved for read failures.
func (v *DocumentValidator) Validate(filename string, size int64, r Upload) (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid: true,
		FileInfo: FileInfo{
			Filename:  filename,
			Size:      size,
			Extension: strings.ToLower(filepath.Ext(filename)),
			Metadata:  make(map[string]any),
		},
	}

	hash, err := calculateHash(r)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}
	result.FileInfo.Hash = hash

	mimeType, err := detectMimeType(r)
	if err != nil {
		return nil, fmt.Errorf("failed to detect mime type: %w", err)
	}
	result.FileInfo.MimeType = mimeType

	result.add(v.performBasicValidation(result.FileInfo)...)
	if _, ok := v.config.AllowedTypes[result.FileInfo.Extension]; ok {
		result.add(v.validateMimeType(result.FileInfo)...)
	}
	if result.IsValid {
		result.add(v.performTypeSpecificValidation(r, &result.FileInfo)...)
	}

	if !result.IsValid {
		v.logger.Info("Upload rejected",
			logger.String("filename", filename),
			logger.Any("errors", result.Errors),
		)
	}
	return result, nil
}

// ValidateFiles validates uploads concurrently and keeps their order.
func (v *DocumentValidator) ValidateFiles(files []*multipart.FileHeader) ([]*ValidationResult, error) {
	results := make([]*ValidationResult, len(files))
	var g errgroup.Group
	for i, file := range files {
		g.Go(func() error {
			result, err := v.ValidateFile(file)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ValidationResult) add(errs ...ValidationError) {
	if len(errs) == 0 {
		return
	}
	r.IsValid = false
	r.Errors = append(r.Errors, errs...)
}

// FirstError summarizes the result for API replies.
func (r *ValidationResult) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

func (v *DocumentValidator) performBasicValidation(info FileInfo) []ValidationError {
	var errs []ValidationError

	if info.Size <= 0 {
		errs = append(errs, ValidationError{
			Code:    "EMPTY_FILE",
			Message: "File is empty",
			Field:   "size",
		})
	}
	if info.Size > v.config.MaxFileSize {
		errs = append(errs, ValidationError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum limit of %d bytes", v.config.MaxFileSize),
			Field:   "size",
		})
	}
	if _, ok := v.config.AllowedTypes[info.Extension]; !ok {
		errs = append(errs, ValidationError{
			Code:    "INVALID_FILE_TYPE",
			Message: fmt.Sprintf("File type %s is not allowed", info.Extension),
			Field:   "extension",
		})
	}
	return errs
}

func (v *DocumentValidator) validateMimeType(info FileInfo) []ValidationError {
	for _, mime := range v.config.AllowedTypes[info.Extension] {
		if mime == info.MimeType {
			return nil
		}
	}
	return []ValidationError{{
		Code:    "INVALID_MIME_TYPE",
		Message: fmt.Sprintf("Invalid MIME type %s for extension %s", info.MimeType, info.Extension),
		Field:   "mimeType",
	}}
}

func (v *DocumentValidator) performTypeSpecificValidation(r Upload, info *FileInfo) []ValidationError {
	kind, _ := models.KindForExtension(info.Extension)
	switch kind {
	case models.KindPDF:
		return v.validatePDF(r, info)
	case models.KindImage:
		return v.validateImage(r, info)
	}
	return nil
}

func (v *DocumentValidator) validatePDF(r Upload, info *FileInfo) []ValidationError {
	pages, err := countPages(r, info.Size)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return []ValidationError{{
				Code:    "PDF_ENCRYPTED",
				Message: "Encrypted PDF files are not supported",
			}}
		}
		// pdftoppm copes with files the reader rejects, so only log.
		v.logger.Debug("PDF page tree unreadable", logger.String("filename", info.Filename), logger.Error(err))
		return nil
	}

	info.Metadata["pageCount"] = pages
	if pages == 0 {
		return []ValidationError{{Code: "PDF_EMPTY", Message: "PDF has no pages"}}
	}
	if v.config.MaxPageCount > 0 && pages > v.config.MaxPageCount {
		return []ValidationError{{
			Code:    "TOO_MANY_PAGES",
			Message: fmt.Sprintf("PDF has %d pages, maximum is %d", pages, v.config.MaxPageCount),
		}}
	}
	return nil
}

func countPages(r io.ReaderAt, size int64) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			n, err = 0, fmt.Errorf("pdf reader panic: %v", p)
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}

func (v *DocumentValidator) validateImage(r Upload, info *FileInfo) []ValidationError {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return []ValidationError{{Code: "IMAGE_UNREADABLE", Message: err.Error()}}
	}
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return []ValidationError{{
			Code:    "IMAGE_UNREADABLE",
			Message: fmt.Sprintf("Cannot decode image: %v", err),
		}}
	}

	info.Metadata["width"] = cfg.Width
	info.Metadata["height"] = cfg.Height
	info.Metadata["format"] = format

	if cfg.Width < v.config.MinDimension || cfg.Height < v.config.MinDimension {
		return []ValidationError{{
			Code:    "IMAGE_TOO_SMALL",
			Message: fmt.Sprintf("Image is %dx%d, minimum side is %d", cfg.Width, cfg.Height, v.config.MinDimension),
			Field:   "dimensions",
		}}
	}
	return nil
}

// detectMimeType sniffs the header and rewinds r.
func detectMimeType(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	buffer = buffer[:n]
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	// http.DetectContentType has no TIFF signature.
	if bytes.HasPrefix(buffer, []byte("II*\x00")) || bytes.HasPrefix(buffer, []byte("MM\x00*")) {
		return "image/tiff", nil
	}
	mime := http.DetectContentType(buffer)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime, nil
}

func calculateHash(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

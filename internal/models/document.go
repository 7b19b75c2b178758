package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentKind is derived from the file extension.
type DocumentKind string

const (
	KindPDF   DocumentKind = "pdf"
	KindImage DocumentKind = "image"
)

var extToKind = map[string]DocumentKind{
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".tiff": KindImage,
	".tif":  KindImage,
	".bmp":  KindImage,
}

// SupportedExtensions lists every extension the pipeline accepts, lowercased.
func SupportedExtensions() []string {
	return []string{".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}
}

// KindForExtension reports the document kind for ext (case-insensitive).
func KindForExtension(ext string) (DocumentKind, bool) {
	kind, ok := extToKind[strings.ToLower(ext)]
	return kind, ok
}

// DocumentRef points at a source file handed to the pipeline.
type DocumentRef struct {
	Path string       `json:"path"`
	Kind DocumentKind `json:"kind"`
}

// NewDocumentRef derives the kind from path. ok is false when the extension
// is not supported.
func NewDocumentRef(path string) (DocumentRef, bool) {
	kind, ok := KindForExtension(filepath.Ext(path))
	return DocumentRef{Path: path, Kind: kind}, ok
}

func (d DocumentRef) Name() string { return filepath.Base(d.Path) }

// ProviderType selects a vision backend.
type ProviderType string

const (
	ProviderClaude ProviderType = "claude"
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderVertex ProviderType = "vertex"
)

func ParseProviderType(s string) (ProviderType, error) {
	switch p := ProviderType(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderClaude, ProviderOpenAI, ProviderGemini, ProviderOllama, ProviderVertex:
		return p, nil
	default:
		return "", fmt.Errorf("invalid VLM_PROVIDER: %s. Must be 'claude', 'openai', 'gemini', 'ollama', or 'vertex'", s)
	}
}

// FilingSuggestion is the proposed name and folder for one document.
type FilingSuggestion struct {
	Filename    string  `json:"filename"`
	Destination string  `json:"destination"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

func (s FilingSuggestion) String() string {
	return fmt.Sprintf("%s/%s", s.Destination, s.Filename)
}

type ProcessingTask struct {
	ID        string            `json:"id"`
	Status    ProcessingStatus  `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)

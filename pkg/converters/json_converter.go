package converters

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/suggest"
)

// AnalysisConverter turns an orchestrator outcome into the persisted result.
type AnalysisConverter interface {
	Convert(taskID string, analysis *suggest.Analysis, meta DocumentMetadata) (*AnalysisResult, error)
}

// AnalysisResult is stored per task and served by the result endpoint.
type AnalysisResult struct {
	TaskID      string                  `json:"taskId"`
	Status      string                  `json:"status"`
	Suggestion  models.FilingSuggestion `json:"suggestion"`
	Target      string                  `json:"target"`
	Raw         map[string]any          `json:"raw,omitempty"`
	Metadata    DocumentMetadata        `json:"metadata"`
	ProcessedAt time.Time               `json:"processedAt"`
}

type DocumentMetadata struct {
	FileName     string `json:"fileName"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize"`
	Kind         string `json:"kind"`
	ImageCount   int    `json:"imageCount"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Transcript   string `json:"transcript,omitempty"`
	ProcessingMs int64  `json:"processingMs"`
}

type JSONConverter struct {
	now func() time.Time
}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{now: time.Now}
}

// Convert fills meta with the analysis details. Caller-supplied file
// fields are kept.
func (c *JSONConverter) Convert(taskID string, analysis *suggest.Analysis, meta DocumentMetadata) (*AnalysisResult, error) {
	if analysis == nil {
		return nil, fmt.Errorf("no analysis to convert")
	}

	meta.Kind = string(analysis.Document.Kind)
	meta.ImageCount = analysis.ImageCount
	meta.Provider = analysis.Provider
	meta.Model = analysis.Model
	meta.Transcript = analysis.Transcript
	meta.ProcessingMs = analysis.Duration.Milliseconds()
	if meta.FileName == "" {
		meta.FileName = analysis.Document.Name()
	}

	return &AnalysisResult{
		TaskID:      taskID,
		Status:      string(models.StatusCompleted),
		Suggestion:  analysis.Suggestion,
		Target:      analysis.Suggestion.String(),
		Raw:         analysis.Raw,
		Metadata:    meta,
		ProcessedAt: c.now(),
	}, nil
}

// Encode writes result as indented JSON.
func (c *JSONConverter) Encode(w io.Writer, result *AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// Decode reads a result written by Encode.
func (c *JSONConverter) Decode(r io.Reader) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.NewDecoder(r).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

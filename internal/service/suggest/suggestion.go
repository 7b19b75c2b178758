package suggest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/feichai0017/docfiler/internal/models"
)

const (
	DefaultFilename    = "untitled.pdf"
	DefaultDestination = "unsorted"
	DefaultReasoning   = "No reasoning provided"
)

// ToSuggestion maps a provider reply onto a FilingSuggestion. Missing keys
// take their defaults and extra keys are ignored.
func ToSuggestion(raw map[string]any) models.FilingSuggestion {
	return models.FilingSuggestion{
		Filename:    stringField(raw, "filename", DefaultFilename),
		Destination: stringField(raw, "destination", DefaultDestination),
		Confidence:  confidenceField(raw),
		Reasoning:   stringField(raw, "reasoning", DefaultReasoning),
	}
}

func stringField(raw map[string]any, key, def string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// confidenceField passes numbers through unchanged and parses numeric
// strings. Anything else is 0.
func confidenceField(raw map[string]any) float64 {
	switch v := raw["confidence"].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

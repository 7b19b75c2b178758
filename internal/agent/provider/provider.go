package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feichai0017/docfiler/internal/common"
)

// Analyzer sends page images and a prompt to a vision model and returns the
// JSON object found in its reply.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, prompt string, images [][]byte, maxTokens int) (map[string]any, error)
	Name() string
	Model() string
	Close() error
}

// APIError is a non-2xx reply from a provider endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, truncate(e.Body, 512))
}

const defaultTimeout = 120 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// ParseJSONResponse strips an optional markdown code fence and decodes the
// remaining text as a JSON object.
func ParseJSONResponse(text string) (map[string]any, error) {
	body := strings.TrimSpace(text)

	var fenced bool
	if strings.HasPrefix(body, "```json") {
		body, fenced = body[len("```json"):], true
	} else if strings.HasPrefix(body, "```") {
		body, fenced = body[len("```"):], true
	}
	if fenced {
		body = strings.TrimSuffix(body, "```")
		body = strings.TrimSpace(body)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return nil, &common.MalformedResponseError{Raw: text, Cause: err}
	}
	if result == nil {
		return nil, &common.MalformedResponseError{Raw: text, Cause: fmt.Errorf("reply is not a JSON object")}
	}
	return result, nil
}

// postJSON sends payload and decodes a 2xx reply into out. The raw reply
// body is returned for diagnostics. Transport errors are returned as is.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload, out any) ([]byte, error) {
	reqData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return body, fmt.Errorf("failed to decode %s response: %w", provider, err)
	}
	return body, nil
}

func emptyReply(raw []byte, what string) error {
	return &common.MalformedResponseError{Raw: string(raw), Cause: fmt.Errorf("reply has no %s", what)}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

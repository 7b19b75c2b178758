package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/feichai0017/docfiler/pkg/logger"
)

// OllamaResponse is the non-streaming /api/generate reply.
type OllamaResponse struct {
	Response        string `json:"response"`
	Model           string `json:"model"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type OllamaConfig struct {
	Endpoint    string
	Model       string
	MaxPoolSize int
	PoolTimeout time.Duration
}

type OllamaClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(config *OllamaConfig) *OllamaClient {
	return &OllamaClient{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		model:      config.Model,
		httpClient: newHTTPClient(),
	}
}

// Generate sends images and prompt to /api/generate and returns the reply text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, images [][]byte, maxTokens int) (string, error) {
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	req := ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		Images:  encoded,
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"num_predict": maxTokens},
	}

	var result OllamaResponse
	if _, err := postJSON(ctx, c.httpClient, "ollama", c.endpoint+"/api/generate", nil, req, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}
	return result.Response, nil
}

func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// OllamaClientPool bounds the number of concurrent requests to a local
// Ollama server.
type OllamaClientPool struct {
	clients chan *OllamaClient
	config  *OllamaConfig

	mu     sync.Mutex
	closed bool
}

func NewOllamaClientPool(config *OllamaConfig) *OllamaClientPool {
	size := config.MaxPoolSize
	if size <= 0 {
		size = 1
	}
	pool := &OllamaClientPool{
		clients: make(chan *OllamaClient, size),
		config:  config,
	}
	for i := 0; i < size; i++ {
		pool.clients <- NewOllamaClient(config)
	}
	return pool
}

func (p *OllamaClientPool) Get(ctx context.Context) (*OllamaClient, error) {
	timeout := p.config.PoolTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case client, ok := <-p.clients:
		if !ok {
			return nil, fmt.Errorf("ollama client pool is closed")
		}
		return client, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for available client")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns client to the pool. Clients handed back after Close are
// closed instead.
func (p *OllamaClientPool) Put(client *OllamaClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		client.Close()
		return
	}
	select {
	case p.clients <- client:
	default:
		// pool full
		client.Close()
	}
}

func (p *OllamaClientPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.clients)
	for client := range p.clients {
		client.Close()
	}
	return nil
}

// OllamaAnalyzer runs documents against a local vision model.
type OllamaAnalyzer struct {
	pool   *OllamaClientPool
	model  string
	logger logger.Logger
}

func NewOllamaAnalyzer(config *OllamaConfig, log logger.Logger) *OllamaAnalyzer {
	return &OllamaAnalyzer{
		pool:   NewOllamaClientPool(config),
		model:  config.Model,
		logger: log.Named("ollama"),
	}
}

func (a *OllamaAnalyzer) Name() string  { return "ollama" }
func (a *OllamaAnalyzer) Model() string { return a.model }

func (a *OllamaAnalyzer) AnalyzeDocument(ctx context.Context, prompt string, images [][]byte, maxTokens int) (map[string]any, error) {
	client, err := a.pool.Get(ctx)
	if err != nil {
		a.logger.Error("Failed to get Ollama client", logger.Error(err))
		return nil, err
	}
	defer a.pool.Put(client)

	a.logger.Info("Sending request to Ollama", logger.String("model", a.model), logger.Int("images", len(images)))
	text, err := client.Generate(ctx, prompt, images, maxTokens)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Ollama response", logger.String("text", text))
	return ParseJSONResponse(text)
}

func (a *OllamaAnalyzer) Close() error {
	return a.pool.Close()
}

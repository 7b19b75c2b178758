package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
)

var (
	docfilerOnce   sync.Once
	docfilerConfig *DocfilerConfig
	docfilerErr    error
)

// DocfilerConfig holds resolved settings for the analysis pipeline.
type DocfilerConfig struct {
	Provider models.ProviderType `yaml:"provider"`

	AnthropicAPIKey string `yaml:"anthropicApiKey"`
	OpenAIAPIKey    string `yaml:"openaiApiKey"`
	GeminiAPIKey    string `yaml:"geminiApiKey"`

	ClaudeModel string `yaml:"claudeModel"`
	OpenAIModel string `yaml:"openaiModel"`
	GeminiModel string `yaml:"geminiModel"`

	ClaudeBaseURL string `yaml:"claudeBaseUrl"`
	OpenAIBaseURL string `yaml:"openaiBaseUrl"`
	GeminiBaseURL string `yaml:"geminiBaseUrl"`

	OllamaEndpoint string `yaml:"ollamaEndpoint"`
	OllamaModel    string `yaml:"ollamaModel"`
	OllamaPoolSize int    `yaml:"ollamaPoolSize"`

	VertexProject         string `yaml:"vertexProject"`
	VertexRegion          string `yaml:"vertexRegion"`
	VertexModel           string `yaml:"vertexModel"`
	VertexCredentialsFile string `yaml:"vertexCredentialsFile"`

	MaxTokens int `yaml:"maxTokens"`

	ImageDPI            int    `yaml:"imageDpi"`
	MaxImageDimension   int    `yaml:"maxImageDimension"`
	PDFPagesToExtract   int    `yaml:"pdfPagesToExtract"`
	PdftoppmPath        string `yaml:"pdftoppmPath"`
	PDFEmbeddedFallback bool   `yaml:"pdfEmbeddedFallback"`

	SourceDir       string `yaml:"sourceDir"`
	DefaultDestBase string `yaml:"defaultDestBase"`

	PromptFile            string `yaml:"promptFile"`
	ContextFile           string `yaml:"contextFile"`
	ExtraInstructionsFile string `yaml:"extraInstructionsFile"`
	TranscriptDir         string `yaml:"transcriptDir"`

	LogLevel string `yaml:"logLevel"`

	// Resolved from Provider during Load.
	ActiveAPIKey string `yaml:"-"`
	ActiveModel  string `yaml:"-"`
}

// PromptSources carries the optional prompt texts read from disk. Empty
// fields mean the built-in defaults apply.
type PromptSources struct {
	Template          string
	Context           string
	ExtraInstructions string
}

func defaultDocfilerConfig() *DocfilerConfig {
	return &DocfilerConfig{
		Provider:          models.ProviderClaude,
		ClaudeModel:       "claude-3-5-sonnet-20241022",
		OpenAIModel:       "gpt-4o",
		GeminiModel:       "gemini-2.0-flash-exp",
		ClaudeBaseURL:     "https://api.anthropic.com",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		GeminiBaseURL:     "https://generativelanguage.googleapis.com",
		OllamaEndpoint:    "http://localhost:11434",
		OllamaModel:       "llama3.2-vision",
		OllamaPoolSize:    4,
		VertexRegion:      "us-central1",
		VertexModel:       "gemini-1.5-pro",
		MaxTokens:         1024,
		ImageDPI:          300,
		MaxImageDimension: 2048,
		PDFPagesToExtract: 3,
		PdftoppmPath:      "pdftoppm",
		TranscriptDir:     "logs",
		LogLevel:          "INFO",
	}
}

// GetDocfilerConfig loads the configuration once for the binaries.
func GetDocfilerConfig() (*DocfilerConfig, error) {
	docfilerOnce.Do(func() {
		docfilerConfig, docfilerErr = Load("")
	})
	return docfilerConfig, docfilerErr
}

// Load reads settings from envPath (or the project .env when empty), an
// optional YAML file named by DOCFILER_CONFIG, and the environment, in
// increasing order of precedence.
func Load(envPath string) (*DocfilerConfig, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envPath, err)
		}
	} else {
		loadDotEnv()
	}

	cfg := defaultDocfilerConfig()
	if path := getEnv("DOCFILER_CONFIG", ""); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.resolveActive(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *DocfilerConfig) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *DocfilerConfig) applyEnv() error {
	provider, err := models.ParseProviderType(getEnv("VLM_PROVIDER", string(c.Provider)))
	if err != nil {
		return err
	}
	c.Provider = provider

	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)

	c.ClaudeModel = getEnv("CLAUDE_MODEL", c.ClaudeModel)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.ClaudeBaseURL = getEnv("CLAUDE_BASE_URL", c.ClaudeBaseURL)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.GeminiBaseURL = getEnv("GEMINI_BASE_URL", c.GeminiBaseURL)

	c.OllamaEndpoint = getEnv("OLLAMA_ENDPOINT", c.OllamaEndpoint)
	c.OllamaModel = getEnv("OLLAMA_MODEL", c.OllamaModel)

	c.VertexProject = getEnv("VERTEX_PROJECT", c.VertexProject)
	c.VertexRegion = getEnv("VERTEX_REGION", c.VertexRegion)
	c.VertexModel = getEnv("VERTEX_MODEL", c.VertexModel)
	c.VertexCredentialsFile = getEnv("VERTEX_CREDENTIALS_FILE", c.VertexCredentialsFile)

	ints := []struct {
		key string
		dst *int
	}{
		{"VLM_MAX_TOKENS", &c.MaxTokens},
		{"IMAGE_DPI", &c.ImageDPI},
		{"MAX_IMAGE_DIMENSION", &c.MaxImageDimension},
		{"PDF_PAGES_TO_EXTRACT", &c.PDFPagesToExtract},
		{"OLLAMA_POOL_SIZE", &c.OllamaPoolSize},
	}
	for _, it := range ints {
		v, err := getEnvAsInt(it.key, *it.dst)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", it.key, err)
		}
		*it.dst = v
	}

	c.PdftoppmPath = getEnv("PDFTOPPM_PATH", c.PdftoppmPath)
	c.PDFEmbeddedFallback = getEnvAsBool("PDF_EMBEDDED_FALLBACK", c.PDFEmbeddedFallback)

	c.SourceDir = getEnv("SOURCE_DIR", c.SourceDir)
	c.DefaultDestBase = getEnv("DEFAULT_DEST_BASE", c.DefaultDestBase)
	c.PromptFile = getEnv("PROMPT_FILE", c.PromptFile)
	c.ContextFile = getEnv("CONTEXT_FILE", c.ContextFile)
	c.ExtraInstructionsFile = getEnv("EXTRA_INSTRUCTIONS_FILE", c.ExtraInstructionsFile)
	c.TranscriptDir = getEnv("TRANSCRIPT_DIR", c.TranscriptDir)

	c.LogLevel = strings.ToUpper(getEnv("LOG_LEVEL", c.LogLevel))
	return nil
}

// Validate checks numeric limits and the log level.
func (c *DocfilerConfig) Validate() error {
	positives := []struct {
		name  string
		value int
	}{
		{"VLM_MAX_TOKENS", c.MaxTokens},
		{"IMAGE_DPI", c.ImageDPI},
		{"MAX_IMAGE_DIMENSION", c.MaxImageDimension},
		{"PDF_PAGES_TO_EXTRACT", c.PDFPagesToExtract},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("invalid %s: %s must be positive", p.name, p.name)
		}
	}
	if c.Provider == models.ProviderOllama && c.OllamaPoolSize <= 0 {
		return fmt.Errorf("invalid OLLAMA_POOL_SIZE: must be positive")
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %s. Must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL", c.LogLevel)
	}
	return nil
}

func (c *DocfilerConfig) resolveActive() error {
	switch c.Provider {
	case models.ProviderClaude:
		c.ActiveAPIKey, c.ActiveModel = c.AnthropicAPIKey, c.ClaudeModel
		if c.ActiveAPIKey == "" {
			return &common.MissingCredentialError{Provider: string(c.Provider), Setting: "ANTHROPIC_API_KEY"}
		}
	case models.ProviderOpenAI:
		c.ActiveAPIKey, c.ActiveModel = c.OpenAIAPIKey, c.OpenAIModel
		if c.ActiveAPIKey == "" {
			return &common.MissingCredentialError{Provider: string(c.Provider), Setting: "OPENAI_API_KEY"}
		}
	case models.ProviderGemini:
		c.ActiveAPIKey, c.ActiveModel = c.GeminiAPIKey, c.GeminiModel
		if c.ActiveAPIKey == "" {
			return &common.MissingCredentialError{Provider: string(c.Provider), Setting: "GEMINI_API_KEY"}
		}
	case models.ProviderOllama:
		c.ActiveModel = c.OllamaModel
	case models.ProviderVertex:
		c.ActiveModel = c.VertexModel
		if c.VertexProject == "" {
			return &common.MissingCredentialError{Provider: string(c.Provider), Setting: "VERTEX_PROJECT"}
		}
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
	return nil
}

// PromptSources reads the optional prompt, context and extra-instruction
// files. Missing files are not an error.
func (c *DocfilerConfig) PromptSources() (PromptSources, error) {
	var src PromptSources
	var err error
	if src.Template, err = readOptional(c.PromptFile); err != nil {
		return src, err
	}
	if src.Context, err = readOptional(c.ContextFile); err != nil {
		return src, err
	}
	if src.ExtraInstructions, err = readOptional(c.ExtraInstructionsFile); err != nil {
		return src, err
	}
	return src, nil
}

func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"statementqa/internal/domain"
)

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxRetries  int    `yaml:"max_retries"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty"`
	BatchSize   int     `yaml:"batch_size"`
	Concurrency int     `yaml:"concurrency"`
	Dimension   int     `yaml:"dimension,omitempty"`
	RatePerSec  float64 `yaml:"rate_per_sec,omitempty"` // requests per second, 0 = unlimited
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Separators   []string `yaml:"separators"`
}

// RetrievalConfig configures nearest-k retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// WebSearchConfig configures the live web search collaborator.
type WebSearchConfig struct {
	Disabled     bool    `yaml:"disabled"`
	Endpoint     string  `yaml:"endpoint"`
	HTMLEndpoint string  `yaml:"html_endpoint"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
	MaxResults   int     `yaml:"max_results"`
	RatePerSec   float64 `yaml:"rate_per_sec,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := presetConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/statementqa/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case "google", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	switch c.Embedder.Type {
	case "google", "openai", "hashing":
	default:
		return fmt.Errorf("unknown embedder: %q", c.Embedder.Type)
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be >= 0")
	}
	if c.Chunker.ChunkSize <= 0 {
		return errors.New("chunker.chunk_size must be > 0")
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		return errors.New("chunker.chunk_overlap must be >= 0 and < chunk_size")
	}
	return nil
}

// APIKey resolves the LLM credential from the environment.
func (c *AppConfig) APIKey() (string, error) {
	return lookupKey(c.LLM.APIKeyEnv)
}

// EmbedderAPIKey resolves the embedder credential, falling back to the LLM one.
func (c *AppConfig) EmbedderAPIKey() (string, error) {
	env := c.Embedder.APIKeyEnv
	if env == "" {
		env = c.LLM.APIKeyEnv
	}
	return lookupKey(env)
}

func lookupKey(env string) (string, error) {
	key := strings.TrimSpace(os.Getenv(env))
	if key == "" {
		return "", &domain.CredentialMissingError{EnvVar: env}
	}
	return key, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "statementqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := presetConfig()
	cfg.LLM.Provider = "google"
	cfg.Embedder.Type = "google"
	applyConfigDefaults(&cfg)
	return &cfg
}

// presetConfig seeds the defaults for which zero is a valid setting. The
// decoder only overwrites keys present in the file, so an explicit 0 stays.
func presetConfig() AppConfig {
	return AppConfig{
		LLM:     LLMConfig{MaxRetries: 2},
		Chunker: ChunkerConfig{ChunkOverlap: 100},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "google"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.Model = "gpt-4o-mini"
		case "anthropic":
			cfg.LLM.Model = "claude-3-5-haiku-latest"
		default:
			cfg.LLM.Model = "gemini-2.0-flash"
		}
	}
	if cfg.LLM.APIKeyEnv == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		case "anthropic":
			cfg.LLM.APIKeyEnv = "ANTHROPIC_API_KEY"
		default:
			cfg.LLM.APIKeyEnv = "GOOGLE_API_KEY"
		}
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "google"
	}
	if cfg.Embedder.Model == "" {
		switch cfg.Embedder.Type {
		case "openai":
			cfg.Embedder.Model = "text-embedding-3-small"
		case "google":
			cfg.Embedder.Model = "text-embedding-004"
		}
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 512
	}

	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if len(cfg.Chunker.Separators) == 0 {
		cfg.Chunker.Separators = []string{"\n\n", "\n", " ", ""}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}

	if cfg.WebSearch.Endpoint == "" {
		cfg.WebSearch.Endpoint = "https://api.duckduckgo.com/"
	}
	if cfg.WebSearch.HTMLEndpoint == "" {
		cfg.WebSearch.HTMLEndpoint = "https://html.duckduckgo.com/html/"
	}
	if cfg.WebSearch.TimeoutSecs == 0 {
		cfg.WebSearch.TimeoutSecs = 15
	}
	if cfg.WebSearch.MaxResults == 0 {
		cfg.WebSearch.MaxResults = 5
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

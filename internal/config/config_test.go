package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementqa/internal/domain"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, "text-embedding-004", cfg.Embedder.Model)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 100, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, []string{"\n\n", "\n", " ", ""}, cfg.Chunker.Separators)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.False(t, cfg.WebSearch.Disabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_AppliesProviderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "llm:\n  provider: openai\nembedder:\n  type: hashing\nchunker:\n  chunk_size: 200\n  chunk_overlap: 20\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, 512, cfg.Embedder.Dimension)
	assert.Equal(t, 200, cfg.Chunker.ChunkSize)
	assert.Equal(t, 20, cfg.Chunker.ChunkOverlap)
}

func TestLoad_KeepsExplicitZeros(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "llm:\n  max_retries: 0\nchunker:\n  chunk_overlap: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.LLM.MaxRetries)
	assert.Equal(t, 0, cfg.Chunker.ChunkOverlap)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	require.NoError(t, cfg.Validate())

	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gemini-1.5-pro\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, 100, cfg.Chunker.ChunkOverlap)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 7

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retrieval.TopK)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Chunker.ChunkOverlap = cfg.Chunker.ChunkSize
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.LLM.Provider = "mystery"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Embedder.Type = "tfidf"
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.LLM.MaxRetries = -1
	assert.Error(t, cfg.Validate())
}

func TestAPIKey_MissingCredential(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.APIKeyEnv = "STATEMENTQA_TEST_MISSING_KEY"
	t.Setenv("STATEMENTQA_TEST_MISSING_KEY", "")

	_, err := cfg.APIKey()
	var missing *domain.CredentialMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "STATEMENTQA_TEST_MISSING_KEY", missing.EnvVar)
}

func TestEmbedderAPIKey_FallsBackToLLMKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.APIKeyEnv = "STATEMENTQA_TEST_KEY"
	t.Setenv("STATEMENTQA_TEST_KEY", "  secret ")

	key, err := cfg.EmbedderAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

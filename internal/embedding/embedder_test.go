package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementqa/internal/config"
)

func TestNew_Hashing(t *testing.T) {
	e, err := New(context.Background(), config.EmbedderConfig{Type: "hashing", Dimension: 16}, "")
	require.NoError(t, err)
	assert.Equal(t, "hashing", e.Name())

	v, err := e.Embed(context.Background(), "opening balance")
	require.NoError(t, err)
	assert.Len(t, v, 16)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(context.Background(), config.EmbedderConfig{Type: "word2vec"}, "")
	assert.Error(t, err)
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	_, err := New(context.Background(), config.EmbedderConfig{Type: "openai"}, "")
	assert.Error(t, err)
}

func TestWithRateLimit(t *testing.T) {
	e, err := New(context.Background(), config.EmbedderConfig{Type: "hashing", Dimension: 4, RatePerSec: 20}, "")
	require.NoError(t, err)
	_, ok := e.(*RateLimited)
	require.True(t, ok)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := e.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EmbedBatch(ctx, []string{"y"})
	assert.Error(t, err)
}

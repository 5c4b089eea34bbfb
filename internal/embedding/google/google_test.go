package google

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyKey(t *testing.T) {
	_, err := New(context.Background(), "", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty API key")
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(context.Background(), "test-key", "", 5)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, "google:text-embedding-004", e.Name())
	assert.Equal(t, 5, e.policy.Retries)
}

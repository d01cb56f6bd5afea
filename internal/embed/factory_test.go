package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for NewProvider:
// - "mock" and "" / "local" select the expected concrete provider types
// - an unknown provider name is rejected

func TestNewProvider_Mock(t *testing.T) {
	t.Parallel()
	p, err := NewProvider(Config{Provider: "mock"})
	require.NoError(t, err)
	_, ok := p.(*MockProvider)
	assert.True(t, ok)
}

func TestNewProvider_DefaultsToLocal(t *testing.T) {
	t.Parallel()
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	_, ok := p.(*localProvider)
	assert.True(t, ok)
}

func TestNewProvider_OpenAI(t *testing.T) {
	t.Parallel()
	p, err := NewProvider(Config{Provider: "openai"})
	require.NoError(t, err)
	_, ok := p.(*openAIProvider)
	assert.True(t, ok)
}

func TestNewProvider_Unknown(t *testing.T) {
	t.Parallel()
	_, err := NewProvider(Config{Provider: "bogus"})
	assert.Error(t, err)
}

package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/logger"
)

func TestNew_Ollama(t *testing.T) {
	emb, err := New(config.EmbedderConfig{
		Type:   "ollama",
		Ollama: &config.OllamaEmbedderConfig{Model: "mxbai-embed-large"},
	}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mxbai-embed-large", emb.ModelName())
}

func TestNew_DefaultsToOllama(t *testing.T) {
	emb, err := New(config.EmbedderConfig{}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", emb.ModelName())
}

func TestNew_OpenAI(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "sk-x")
	emb, err := New(config.EmbedderConfig{
		Type:   "openai",
		OpenAI: &config.OpenAIEmbedderConfig{APIKeyEnv: "DOCQA_TEST_KEY", Model: "m"},
	}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "m", emb.ModelName())
}

func TestNew_OpenAIMissingConfig(t *testing.T) {
	_, err := New(config.EmbedderConfig{Type: "openai"}, logger.Nop())
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(config.EmbedderConfig{Type: "word2vec"}, logger.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "word2vec")
}

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/logger"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

func TestNewChunker(t *testing.T) {
	ch, err := newChunker(config.ChunkerConfig{Type: "recursive", ChunkSize: 2000})
	require.NoError(t, err)
	assert.IsType(t, &chunker.Recursive{}, ch)

	ch, err = newChunker(config.ChunkerConfig{Type: "sentence", SentencesPerChunk: 2})
	require.NoError(t, err)
	assert.IsType(t, &chunker.SentenceChunker{}, ch)

	_, err = newChunker(config.ChunkerConfig{Type: "semantic"})
	assert.EqualError(t, err, "unknown chunker: semantic")
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "document_vector")

	st, err := newStore(ctx, config.VectorStoreConfig{Type: "sqlite", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, st)

	st, err = newStore(ctx, config.VectorStoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, st)

	st, err = newStore(ctx, config.VectorStoreConfig{Type: "qdrant", Qdrant: &config.QdrantConfig{URL: "http://localhost:6333", Collection: "c"}})
	require.NoError(t, err)
	assert.IsType(t, &qdrant.Storage{}, st)

	_, err = newStore(ctx, config.VectorStoreConfig{Type: "qdrant"})
	assert.Error(t, err)
	_, err = newStore(ctx, config.VectorStoreConfig{Type: "pgvector"})
	assert.Error(t, err)
	_, err = newStore(ctx, config.VectorStoreConfig{Type: "faiss"})
	assert.EqualError(t, err, "unknown vector store: faiss")
}

func TestNewSummarizer(t *testing.T) {
	_, err := newSummarizer(config.SummarizerConfig{Type: "frequency"})
	require.NoError(t, err)
	_, err = newSummarizer(config.SummarizerConfig{Type: "llm"})
	assert.Error(t, err)
}

func TestAssemble(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.VectorStore.Type = "memory"

	app, err := assemble(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.NotNil(t, app.Service)
	assert.Equal(t, config.DefaultLLMModel, app.llm.Model())
	app.Close()

	cfg.VectorStore.OnExisting = "merge"
	_, err = assemble(context.Background(), cfg, logger.Nop())
	assert.Error(t, err)
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", "c.toml", "-v", "--ephemeral"}))

	cfgPath, err := cmd.Flags().GetString("config")
	require.NoError(t, err)
	assert.Equal(t, "c.toml", cfgPath)
	verbose, _ := cmd.Flags().GetBool("verbose")
	assert.True(t, verbose)
	ephemeral, _ := cmd.Flags().GetBool("ephemeral")
	assert.True(t, ephemeral)

	assert.Error(t, cmd.Args(cmd, []string{"a.pdf", "b.pdf"}))
	assert.NoError(t, cmd.Args(cmd, []string{"a.pdf"}))
}

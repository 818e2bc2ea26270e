package main

import (
	"context"
	"fmt"
	"time"

	"docqa/internal/answer"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/extractor"
	llmollama "docqa/internal/llm/ollama"
	"docqa/internal/logger"
	"docqa/internal/service"
	"docqa/internal/storage"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/pgvector"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

// application is the assembled pipeline plus the resources it owns.
type application struct {
	Service  *service.RAGService
	embedder domain.Embedder
	llm      *llmollama.Client
	store    vectorstore.Store
	log      *logger.Logger
}

func assemble(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*application, error) {
	emb, err := embedding.New(cfg.Embedder, log)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	policy, err := vectorstore.ParsePolicy(cfg.VectorStore.OnExisting)
	if err != nil {
		return nil, err
	}
	sum, err := newSummarizer(cfg.Summarizer)
	if err != nil {
		return nil, err
	}
	st, err := newStore(ctx, cfg.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("vector store init failed: %w", err)
	}

	llm := llmollama.New(llmollama.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	svc := service.NewRAGService(service.Components{
		Uploader:            storage.NewGateway(cfg.Storage.UploadDir, log),
		Extract:             extractor.Extract,
		Chunker:             ch,
		Embedder:            emb,
		Store:               st,
		Policy:              policy,
		TopK:                cfg.VectorStore.TopK,
		Answerer:            answer.NewGenerator(llm),
		Summarizer:          sum,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
	}, log)

	return &application{Service: svc, embedder: emb, llm: llm, store: st, log: log}, nil
}

// Ping checks both model endpoints. Failures are logged and the app still starts.
func (a *application) Ping(ctx context.Context) {
	if err := a.embedder.Ping(ctx); err != nil {
		a.log.Warn("embedder unreachable", "model", a.embedder.ModelName(), "err", err)
	}
	if err := a.llm.Ping(ctx); err != nil {
		a.log.Warn("llm unreachable", "model", a.llm.Model(), "err", err)
	}
}

func (a *application) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close vector store", "err", err)
	}
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "recursive", "":
		return chunker.NewRecursive(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.Overlap())), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func newSummarizer(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}

func newStore(ctx context.Context, cfg config.VectorStoreConfig) (vectorstore.Store, error) {
	switch cfg.Type {
	case "sqlite", "":
		return sqlite.NewStore(cfg.Path), nil
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "pgvector":
		if cfg.Postgres == nil {
			return nil, fmt.Errorf("postgres config missing")
		}
		st, err := pgvector.NewStorage(ctx, cfg.Postgres.DSN, cfg.Postgres.Table)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

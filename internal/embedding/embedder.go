// Package embedding selects the configured text embedder.
package embedding

import (
	"fmt"
	"time"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/ollama"
	"docqa/internal/embedding/openai"
	"docqa/internal/logger"
)

// New builds the embedder named by cfg.Type.
func New(cfg config.EmbedderConfig, log *logger.Logger) (domain.Embedder, error) {
	emb, err := build(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("embedder ready", "type", cfg.Type, "model", emb.ModelName())
	return emb, nil
}

func build(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "ollama", "":
		var oc ollama.Config
		if cfg.Ollama != nil {
			oc = ollama.Config{
				BaseURL: cfg.Ollama.BaseURL,
				Model:   cfg.Ollama.Model,
				Timeout: time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
			}
		}
		return ollama.New(oc), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, domain.E(domain.KindEmbedding, "new embedder", fmt.Errorf("openai embedder config missing"))
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, domain.E(domain.KindEmbedding, "new embedder", fmt.Errorf("unknown embedder: %s", cfg.Type))
	}
}

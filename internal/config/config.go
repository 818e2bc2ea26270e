package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// StorageConfig controls where uploaded documents are written.
type StorageConfig struct {
	UploadDir string `yaml:"upload_dir" toml:"upload_dir"`
}

// ChunkerConfig configures how extracted text is split into chunks.
type ChunkerConfig struct {
	Type         string `yaml:"type" toml:"type"`
	ChunkSize    int    `yaml:"chunk_size" toml:"chunk_size"`
	// ChunkOverlap nil means DefaultChunkOverlap; 0 disables overlap.
	ChunkOverlap *int `yaml:"chunk_overlap,omitempty" toml:"chunk_overlap,omitempty"`
	// SentencesPerChunk and OverlapSentences apply to the sentence chunker only.
	SentencesPerChunk int `yaml:"sentences_per_chunk,omitempty" toml:"sentences_per_chunk,omitempty"`
	OverlapSentences  int `yaml:"overlap_sentences,omitempty" toml:"overlap_sentences,omitempty"`
}

// OllamaEmbedderConfig holds configuration for the Ollama embedder.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" toml:"api_key_env"`
	Model       string `yaml:"model" toml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type" toml:"type"`
	Ollama *OllamaEmbedderConfig `yaml:"ollama,omitempty" toml:"ollama,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector collection backend.
type VectorStoreConfig struct {
	Type string `yaml:"type" toml:"type"`
	// Path is the collection directory for the sqlite backend.
	Path string `yaml:"path" toml:"path"`
	// OnExisting is "skip" (build is a no-op for an existing collection) or "replace".
	OnExisting string          `yaml:"on_existing" toml:"on_existing"`
	TopK       int             `yaml:"top_k" toml:"top_k"`
	Qdrant     *QdrantConfig   `yaml:"qdrant,omitempty" toml:"qdrant,omitempty"`
	Postgres   *PostgresConfig `yaml:"postgres,omitempty" toml:"postgres,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" toml:"url"`
	APIKey      string `yaml:"api_key" toml:"api_key"`
	Collection  string `yaml:"collection" toml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// PostgresConfig contains connection details for the pgvector backend.
type PostgresConfig struct {
	DSN   string `yaml:"dsn" toml:"dsn"`
	Table string `yaml:"table" toml:"table"`
}

// LLMConfig configures the local language model endpoint.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url" toml:"base_url"`
	Model       string  `yaml:"model" toml:"model"`
	// Temperature nil means DefaultTemperature; 0 is greedy decoding.
	Temperature *float64 `yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs"`
}

// SessionConfig controls the upload/chat state machine.
type SessionConfig struct {
	// AdvanceOnFailure moves to the chat screen even when the upload pipeline fails.
	AdvanceOnFailure *bool  `yaml:"advance_on_failure,omitempty" toml:"advance_on_failure,omitempty"`
	Greeting         string `yaml:"greeting" toml:"greeting"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type" toml:"type"`
	MaxSentences int    `yaml:"max_sentences" toml:"max_sentences"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file" toml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Storage     StorageConfig     `yaml:"storage" toml:"storage"`
	Chunker     ChunkerConfig     `yaml:"chunker" toml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder" toml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm" toml:"llm"`
	Session     SessionConfig     `yaml:"session" toml:"session"`
	Summarizer  SummarizerConfig  `yaml:"summarizer" toml:"summarizer"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
}

// AdvanceOnFailure reports the effective session transition policy.
func (c *AppConfig) AdvanceOnFailure() bool {
	if c.Session.AdvanceOnFailure == nil {
		return true
	}
	return *c.Session.AdvanceOnFailure
}

// Overlap returns the configured chunk overlap, DefaultChunkOverlap when unset.
func (c ChunkerConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return DefaultChunkOverlap
	}
	return *c.ChunkOverlap
}

// Temp returns the configured sampling temperature, DefaultTemperature when unset.
func (c LLMConfig) Temp() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

const (
	DefaultUploadDir    = "documents"
	DefaultVectorPath   = "document_vector"
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 400
	DefaultTopK         = 4
	DefaultOllamaURL    = "http://127.0.0.1:11435"
	DefaultEmbedModel   = "nomic-embed-text"
	DefaultLLMModel     = "gemma3:1b"
	DefaultTemperature  = 0.7
	DefaultGreeting     = "Hello, what are the things you need to know from the document ?"
)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml and ./config.toml first, then ~/.config/docqa/config.yaml.
// If none exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	for _, cwdPath := range []string{"config.yaml", "config.toml"} {
		if _, err := os.Stat(cwdPath); err == nil {
			cfg, err := Load(cwdPath)
			return cfg, cwdPath, err
		}
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
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values the components cannot work with.
func (c *AppConfig) Validate() error {
	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	}
	if c.Chunker.ChunkOverlap != nil && *c.Chunker.ChunkOverlap < 0 {
		return fmt.Errorf("chunker.chunk_overlap must not be negative, got %d", *c.Chunker.ChunkOverlap)
	}
	switch c.VectorStore.OnExisting {
	case "skip", "replace":
	default:
		return fmt.Errorf("vector_store.on_existing must be skip or replace, got %q", c.VectorStore.OnExisting)
	}
	if c.LLM.Temperature != nil && *c.LLM.Temperature < 0 {
		return fmt.Errorf("llm.temperature must not be negative, got %v", *c.LLM.Temperature)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = DefaultUploadDir
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunker.ChunkOverlap == nil {
		overlap := DefaultChunkOverlap
		cfg.Chunker.ChunkOverlap = &overlap
	}
	if cfg.Chunker.Type == "sentence" && cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
		cfg.Chunker.OverlapSentences = 1
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	switch cfg.Embedder.Type {
	case "ollama":
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
		}
		if cfg.Embedder.Ollama.BaseURL == "" {
			cfg.Embedder.Ollama.BaseURL = DefaultOllamaURL
		}
		if cfg.Embedder.Ollama.Model == "" {
			cfg.Embedder.Ollama.Model = DefaultEmbedModel
		}
		if cfg.Embedder.Ollama.TimeoutSecs == 0 {
			cfg.Embedder.Ollama.TimeoutSecs = 30
		}
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = DefaultVectorPath
	}
	if cfg.VectorStore.OnExisting == "" {
		cfg.VectorStore.OnExisting = "skip"
	}
	if cfg.VectorStore.TopK == 0 {
		cfg.VectorStore.TopK = DefaultTopK
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = DefaultVectorPath
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.VectorStore.Type == "pgvector" && cfg.VectorStore.Postgres != nil {
		if cfg.VectorStore.Postgres.Table == "" {
			cfg.VectorStore.Postgres.Table = DefaultVectorPath
		}
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultOllamaURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.Temperature == nil {
		temp := DefaultTemperature
		cfg.LLM.Temperature = &temp
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}

	if cfg.Session.Greeting == "" {
		cfg.Session.Greeting = DefaultGreeting
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "prod"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "docqa.log"
	}
}

// applyEnvOverrides lets DOCQA_* variables (usually from .env) override endpoints and models.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("DOCQA_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DOCQA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DOCQA_LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = &t
		}
	}
	if v := os.Getenv("DOCQA_EMBED_BASE_URL"); v != "" && cfg.Embedder.Ollama != nil {
		cfg.Embedder.Ollama.BaseURL = v
	}
	if v := os.Getenv("DOCQA_EMBED_MODEL"); v != "" && cfg.Embedder.Ollama != nil {
		cfg.Embedder.Ollama.Model = v
	}
	if v := os.Getenv("DOCQA_UPLOAD_DIR"); v != "" {
		cfg.Storage.UploadDir = v
	}
	if v := os.Getenv("DOCQA_VECTOR_PATH"); v != "" {
		cfg.VectorStore.Path = v
	}
}

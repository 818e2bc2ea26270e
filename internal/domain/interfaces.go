package domain

import "context"

// Document is an uploaded file: its original name and raw bytes.
type Document struct {
	Name string
	Data []byte
}

// Chunk is a bounded segment of extracted document text.
// Index is its position in document order.
type Chunk struct {
	Index int
	Text  string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleHuman     Role = "human"
)

// Message is one entry of a session's conversation history.
type Message struct {
	Role Role
	Text string
}

// Embedder converts free text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Ping(ctx context.Context) error
}

// Chunker splits extracted text into chunks suitable for embedding.
type Chunker interface {
	Split(text string) ([]Chunk, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

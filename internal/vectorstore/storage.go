// Package vectorstore builds and queries the persisted chunk collection.
package vectorstore

import (
	"context"
	"fmt"

	"docqa/internal/domain"
)

// DefaultTopK is the number of chunks returned by a retriever when k is not set.
const DefaultTopK = 4

// Store is a named collection of chunk vectors.
type Store interface {
	// Exists reports whether the collection has already been created.
	Exists(ctx context.Context) (bool, error)
	// Create persists chunks with their vectors. vectors[i] belongs to chunks[i].
	Create(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	// Drop deletes the collection. Dropping a missing collection is not an error.
	Drop(ctx context.Context) error
	// Search returns up to k chunks ordered by descending cosine similarity.
	Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error)
	Close() error
}

// Policy decides what Build does when the collection already exists.
type Policy string

const (
	// PolicySkip leaves an existing collection untouched.
	PolicySkip Policy = "skip"
	// PolicyReplace drops an existing collection and builds it again.
	PolicyReplace Policy = "replace"
)

// ParsePolicy maps a config value to a Policy, defaulting to PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyReplace:
		return PolicyReplace, nil
	}
	return "", domain.E(domain.KindValidation, "parse policy", fmt.Errorf("unknown policy %q", s))
}

// Build embeds chunks and creates the collection. Under PolicySkip an
// existing collection is left as is and built is false. Under PolicyReplace
// the old collection is dropped only once the new vectors are ready.
func Build(ctx context.Context, st Store, emb domain.Embedder, chunks []domain.Chunk, policy Policy) (built bool, err error) {
	exists, err := st.Exists(ctx)
	if err != nil {
		return false, domain.E(domain.KindIndex, "build", err)
	}
	if exists && policy != PolicyReplace {
		return false, nil
	}
	if len(chunks) == 0 {
		return false, domain.E(domain.KindIndex, "build", domain.ErrEmptyInput)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return false, err
	}
	if len(vectors) != len(chunks) {
		return false, domain.E(domain.KindIndex, "build",
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return false, domain.E(domain.KindIndex, "build",
				fmt.Errorf("%w: chunk %d has %d, want %d", domain.ErrDimensionMismatch, i, len(v), dim))
		}
	}
	if exists {
		if err := st.Drop(ctx); err != nil {
			return false, domain.E(domain.KindIndex, "build", err)
		}
	}
	if err := st.Create(ctx, chunks, vectors); err != nil {
		return false, domain.E(domain.KindIndex, "build", err)
	}
	return true, nil
}

// Retriever answers similarity queries against an existing collection.
type Retriever struct {
	store Store
	emb   domain.Embedder
	k     int
}

// Open returns a retriever over an existing collection. k <= 0 means DefaultTopK.
func Open(ctx context.Context, st Store, emb domain.Embedder, k int) (*Retriever, error) {
	exists, err := st.Exists(ctx)
	if err != nil {
		return nil, domain.E(domain.KindIndex, "open", err)
	}
	if !exists {
		return nil, domain.E(domain.KindIndex, "open", domain.ErrCollectionNotFound)
	}
	if k <= 0 {
		k = DefaultTopK
	}
	return &Retriever{store: st, emb: emb, k: k}, nil
}

// K returns the number of chunks a query returns at most.
func (r *Retriever) K() int { return r.k }

// SearchScored embeds query and returns the top-k chunks with their scores.
func (r *Retriever) SearchScored(ctx context.Context, query string) ([]domain.SearchResult, error) {
	vec, err := r.emb.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := r.store.Search(ctx, vec, r.k)
	if err != nil {
		return nil, domain.E(domain.KindIndex, "search", err)
	}
	return results, nil
}

// Search returns the top-k chunks most similar to query.
func (r *Retriever) Search(ctx context.Context, query string) ([]domain.Chunk, error) {
	results, err := r.SearchScored(ctx, query)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}
	return chunks, nil
}

package pgvector

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestNewStorage_InvalidTable(t *testing.T) {
	for _, name := range []string{"", "1abc", "drop table; --", "a b", strings.Repeat("x", 64)} {
		_, err := NewStorage(context.Background(), "postgres://unused", name)
		assert.Error(t, err, name)
	}
}

func TestSearchQuery(t *testing.T) {
	q := searchQuery(pq.QuoteIdentifier("document_vector"))
	assert.Contains(t, q, `FROM "document_vector"`)
	assert.Contains(t, q, "ORDER BY embedding <=> $1")
	assert.Contains(t, q, "LIMIT $2")
}

func TestCreateStatements(t *testing.T) {
	stmts := createStatements(`"docs"`, 768)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "vector(768)")
	assert.Contains(t, stmts[1], `CREATE TABLE "docs"`)
}

func TestIsDimensionError(t *testing.T) {
	assert.True(t, isDimensionError(&pq.Error{Message: "different vector dimensions 3 and 2"}))
	assert.False(t, isDimensionError(errors.New("connection refused")))
}

// TestStorage_Postgres runs against a live database when DOCQA_TEST_PG_DSN is set.
func TestStorage_Postgres(t *testing.T) {
	dsn := os.Getenv("DOCQA_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("DOCQA_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewStorage(ctx, dsn, "docqa-test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Drop(ctx)
		_ = s.Close()
	})
	require.NoError(t, s.Drop(ctx))

	ok, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	chunks := []domain.Chunk{{Index: 0, Text: "alpha"}, {Index: 1, Text: "beta"}}
	require.NoError(t, s.Create(ctx, chunks, [][]float32{{1, 0}, {0, 1}}))
	ok, err = s.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := s.Search(ctx, []float32{0.1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "beta", res[0].Chunk.Text)

	_, err = s.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

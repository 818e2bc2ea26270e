package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// fakeQdrant keeps one collection in memory and answers the REST calls Storage makes.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	size    int
	points  []map[string]any
	apiKeys []string
	// failUpsert makes point uploads return 500.
	failUpsert bool
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	switch {
	case r.URL.Path == "/collections/docs" && r.Method == http.MethodGet:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"status":"green"}}`))
	case r.URL.Path == "/collections/docs" && r.Method == http.MethodPut:
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.exists, f.size = true, body.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.URL.Path == "/collections/docs" && r.Method == http.MethodDelete:
		f.exists, f.points = false, nil
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.URL.Path == "/collections/docs/points" && r.Method == http.MethodPut && f.failUpsert:
		http.Error(w, `{"status":{"error":"service unavailable"}}`, http.StatusInternalServerError)
	case r.URL.Path == "/collections/docs/points" && r.Method == http.MethodPut:
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.URL.Path == "/collections/docs/points/search":
		var body struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Vector) != f.size {
			http.Error(w, `{"status":{"error":"Wrong input: Vector dimension error: expected dim: 2"}}`, http.StatusBadRequest)
			return
		}
		var res []map[string]any
		for i, p := range f.points {
			if i >= body.Limit {
				break
			}
			res = append(res, map[string]any{"id": p["id"], "score": 0.9 - float64(i)/10, "payload": p["payload"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": res})
	default:
		http.NotFound(w, r)
	}
}

func newTestStorage(t *testing.T) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "docs"}), fake
}

func TestStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)

	ok, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	chunks := []domain.Chunk{{Index: 0, Text: "alpha"}, {Index: 1, Text: "beta"}}
	require.NoError(t, s.Create(ctx, chunks, [][]float32{{1, 0}, {0, 1}}))
	assert.Equal(t, 2, fake.size)
	require.Len(t, fake.points, 2)
	_, err = uuid.Parse(fake.points[0]["id"].(string))
	assert.NoError(t, err, "point ids must be uuids")

	ok, err = s.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := s.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, domain.Chunk{Index: 0, Text: "alpha"}, res[0].Chunk)
	assert.InDelta(t, 0.9, res[0].Score, 1e-9)

	require.NoError(t, s.Drop(ctx))
	ok, _ = s.Exists(ctx)
	assert.False(t, ok)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "secret", k)
	}
}

func TestStorage_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)
	require.NoError(t, s.Create(ctx, []domain.Chunk{{Text: "a"}}, [][]float32{{1, 0}}))

	_, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStorage_WithBuild(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)
	emb := constEmbedder{}

	built, err := vectorstore.Build(ctx, s, emb, []domain.Chunk{{Text: "first"}}, vectorstore.PolicySkip)
	require.NoError(t, err)
	assert.True(t, built)

	built, err = vectorstore.Build(ctx, s, emb, []domain.Chunk{{Text: "second"}}, vectorstore.PolicySkip)
	require.NoError(t, err)
	assert.False(t, built)
	require.Len(t, fake.points, 1)
	assert.Equal(t, "first", fake.points[0]["payload"].(map[string]any)["text"])
}

func TestStorage_FailedUpsertRemovesCollection(t *testing.T) {
	ctx := context.Background()
	s, fake := newTestStorage(t)
	fake.failUpsert = true
	emb := constEmbedder{}

	_, err := vectorstore.Build(ctx, s, emb, []domain.Chunk{{Text: "first"}}, vectorstore.PolicySkip)
	require.Error(t, err)
	ok, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	fake.failUpsert = false
	built, err := vectorstore.Build(ctx, s, emb, []domain.Chunk{{Text: "first"}}, vectorstore.PolicySkip)
	require.NoError(t, err)
	assert.True(t, built)
	require.Len(t, fake.points, 1)
}

func TestStorage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewStorage(Config{URL: srv.URL, Collection: "docs"}).Exists(context.Background())
	assert.Error(t, err)
}

type constEmbedder struct{}

func (constEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 1}, nil }
func (e constEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}
func (constEmbedder) Dimensions() int { return 2 }
func (constEmbedder) ModelName() string { return "const" }
func (constEmbedder) Ping(context.Context) error { return nil }

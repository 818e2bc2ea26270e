package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

var _ vectorstore.Store = (*Storage)(nil)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and owns one collection.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// Exists asks Qdrant for the collection; 404 means it was never created.
func (s *Storage) Exists(ctx context.Context) (bool, error) {
	resp, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, statusError(http.MethodGet, s.collectionURL(), resp)
	}
}

func (s *Storage) Create(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(vectors) == 0 {
		return domain.ErrEmptyInput
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     len(vectors[0]),
			"distance": "Cosine",
		},
	}
	if err := s.sendJSON(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return err
	}

	points := make([]map[string]any, len(chunks))
	for i := range chunks {
		points[i] = map[string]any{
			"id":     uuid.NewString(),
			"vector": vectors[i],
			"payload": map[string]any{
				"index": chunks[i].Index,
				"text":  chunks[i].Text,
			},
		}
	}
	if err := s.sendJSON(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", map[string]any{"points": points}, nil); err != nil {
		// an empty collection would count as existing on the next build
		if dropErr := s.Drop(context.WithoutCancel(ctx)); dropErr != nil {
			return errors.Join(err, dropErr)
		}
		return err
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = vectorstore.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Index int    `json:"index"`
				Text  string `json:"text"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.sendJSON(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{Index: r.Payload.Index, Text: r.Payload.Text},
			Score: r.Score,
		})
	}
	return results, nil
}

func (s *Storage) Drop(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return statusError(http.MethodDelete, s.collectionURL(), resp)
	}
	return nil
}

func (s *Storage) Close() error { return nil }

func (s *Storage) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	return s.client.Do(req)
}

func (s *Storage) sendJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := s.do(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(method, url, resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func statusError(method, url string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	// Qdrant reports a wrong vector size as a 400 mentioning the dimension.
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(msg)), "dimension") {
		return fmt.Errorf("%w: %v", domain.ErrDimensionMismatch, err)
	}
	return err
}

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, "http://127.0.0.1:11435", c.baseURL)
	assert.Equal(t, "gemma3:1b", c.Model())
	assert.Equal(t, 0.7, c.temperature)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
}

func TestNew_ZeroTemperatureKept(t *testing.T) {
	zero := 0.0
	assert.Zero(t, New(Config{Temperature: &zero}).temperature)
}

func TestNew_SchemeLessBaseURL(t *testing.T) {
	c := New(Config{BaseURL: "127.0.0.1:11435/"})
	assert.Equal(t, "http://127.0.0.1:11435", c.baseURL)
}

func TestChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(chatResponse{
			Message: Message{Role: "assistant", Content: "Paris."},
			Done:    true,
		})
	}))
	defer srv.Close()

	temp := 0.2
	c := New(Config{BaseURL: srv.URL, Temperature: &temp})
	answer, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "capital of France?"}})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)

	assert.Equal(t, "gemma3:1b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.2, got.Options.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "capital of France?", got.Messages[0].Content)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}},
		{"decode", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"error field", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"out of memory"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, err := New(Config{BaseURL: srv.URL}).Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
			assert.ErrorIs(t, err, domain.ErrGeneration)
		})
	}
}

func TestChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(Config{BaseURL: url}).Chat(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	assert.NoError(t, New(Config{BaseURL: srv.URL}).Ping(context.Background()))

	srv.Close()
	assert.ErrorIs(t, New(Config{BaseURL: srv.URL}).Ping(context.Background()), domain.ErrGeneration)
}

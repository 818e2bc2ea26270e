// Package ollama talks to a local Ollama server's chat endpoint.
package ollama

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

	"docqa/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL     = "http://127.0.0.1:11435"
	DefaultModel       = "gemma3:1b"
	DefaultTemperature = 0.7
	DefaultTimeout     = 120 * time.Second
)

// Config holds configuration for the chat client.
type Config struct {
	BaseURL string
	Model   string
	// Temperature is the sampling temperature. Nil means DefaultTemperature.
	Temperature *float64
	Timeout     time.Duration
}

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls Ollama's /api/chat without streaming.
type Client struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
}

type options struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options"`
}

type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// New creates a chat client, filling in defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.Contains(cfg.BaseURL, "://") {
		cfg.BaseURL = "http://" + cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	return &Client{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: temperature,
	}
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// Chat sends messages and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  options{Temperature: c.temperature},
	})
	if err != nil {
		return "", domain.E(domain.KindGeneration, "chat", fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", domain.E(domain.KindGeneration, "chat", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.E(domain.KindGeneration, "chat", fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.E(domain.KindGeneration, "chat",
			fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.E(domain.KindGeneration, "chat", fmt.Errorf("decode response: %w", err))
	}
	if out.Error != "" {
		return "", domain.E(domain.KindGeneration, "chat", errors.New(out.Error))
	}
	return out.Message.Content, nil
}

// Ping checks the server is reachable via /api/tags.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return domain.E(domain.KindGeneration, "ping", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.E(domain.KindGeneration, "ping", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.E(domain.KindGeneration, "ping", fmt.Errorf("ollama: API returned status %d", resp.StatusCode))
	}
	return nil
}

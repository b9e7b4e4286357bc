// Package openai implements the inference adapters against the OpenAI HTTP API and
// servers that expose the same API (Ollama, vLLM).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/scribe/internal/inference"
)

const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	Name      string
	BaseURL   string
	APIKey    string
	STTModel  string
	TextModel string
	Timeout   time.Duration
}

// Client calls /audio/transcriptions and /chat/completions.
type Client struct {
	name      string
	baseURL   string
	apiKey    string
	sttModel  string
	textModel string
	client    *http.Client
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &Client{
		name:      name,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		sttModel:  cfg.STTModel,
		textModel: cfg.TextModel,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return c.name }

type transcriptionResponse struct {
	Text *string `json:"text"`
}

// Transcribe uploads one audio unit as multipart form data.
func (c *Client) Transcribe(ctx context.Context, in inference.AudioInput) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", c.sttModel); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	filename := in.Filename
	if filename == "" {
		filename = "unit.mp3"
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if _, err := part.Write(in.Data); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	var out transcriptionResponse
	if err := c.post(ctx, "/audio/transcriptions", mw.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	if out.Text == nil {
		return "", fmt.Errorf("%w: response has no text field", inference.ErrInvalidResponse)
	}
	return *out.Text, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate runs one chat completion.
func (c *Client) Generate(ctx context.Context, req inference.Request) (string, error) {
	var msgs []chatMessage
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       c.textModel,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	var out chatResponse
	if err := c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(payload), &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", inference.ErrInvalidResponse)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return inference.ClassifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return inference.ClassifyStatus(resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", inference.ErrInvalidResponse, path, err)
	}
	return nil
}

var (
	_ inference.Transcriber = (*Client)(nil)
	_ inference.Generator   = (*Client)(nil)
)

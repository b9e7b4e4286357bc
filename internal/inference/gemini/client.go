// Package gemini implements the text generator on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kiranshivaraju/scribe/internal/inference"
)

// Client generates text with a Gemini model.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client for model.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Name() string { return "gemini" }

// Generate runs one GenerateContent call.
func (c *Client) Generate(ctx context.Context, req inference.Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", classify(err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", inference.ErrInvalidResponse)
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// classify maps genai errors by their status text.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: request timed out", inference.ErrRemoteUnavailable)
	case strings.Contains(msg, "INVALID_ARGUMENT"), strings.Contains(msg, "FAILED_PRECONDITION"),
		strings.Contains(msg, "Error 400"):
		return fmt.Errorf("%w: %v", inference.ErrRemoteRejectedInput, err)
	default:
		return fmt.Errorf("%w: %v", inference.ErrRemoteUnavailable, err)
	}
}

var _ inference.Generator = (*Client)(nil)

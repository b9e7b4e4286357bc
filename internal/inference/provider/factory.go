// Package provider builds inference backends from configuration.
package provider

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/scribe/internal/config"
	"github.com/kiranshivaraju/scribe/internal/inference"
	"github.com/kiranshivaraju/scribe/internal/inference/gemini"
	"github.com/kiranshivaraju/scribe/internal/inference/openai"
)

// NewTranscriber constructs the speech-to-text backend named by cfg.STTProvider.
func NewTranscriber(cfg config.InferenceConfig) (inference.Transcriber, error) {
	switch cfg.STTProvider {
	case "openai":
		return openai.NewClient(openai.Config{
			Name:     "openai",
			BaseURL:  cfg.OpenAI.BaseURL,
			APIKey:   cfg.OpenAI.APIKey,
			STTModel: cfg.OpenAI.STTModel,
			Timeout:  cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q: must be openai", cfg.STTProvider)
	}
}

// NewGenerator constructs the text backend named by cfg.TextProvider.
func NewGenerator(ctx context.Context, cfg config.InferenceConfig) (inference.Generator, error) {
	switch cfg.TextProvider {
	case "openai":
		return openai.NewClient(openai.Config{
			Name:      "openai",
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKey:    cfg.OpenAI.APIKey,
			TextModel: cfg.OpenAI.TextModel,
			Timeout:   cfg.Timeout,
		}), nil
	case "ollama":
		return openai.NewClient(openai.Config{
			Name:      "ollama",
			BaseURL:   cfg.Ollama.BaseURL,
			TextModel: cfg.Ollama.Model,
			Timeout:   cfg.Timeout,
		}), nil
	case "vllm":
		return openai.NewClient(openai.Config{
			Name:      "vllm",
			BaseURL:   cfg.VLLM.BaseURL,
			TextModel: cfg.VLLM.Model,
			Timeout:   cfg.Timeout,
		}), nil
	case "gemini":
		return gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		return nil, fmt.Errorf("unknown text provider %q: must be one of openai, ollama, vllm, gemini", cfg.TextProvider)
	}
}

// Package inference defines the adapters between the job pipeline and the external
// speech-to-text and text-generation services.
package inference

import (
	"context"
	"fmt"
	"strings"
)

// AudioInput is one normalized audio unit.
type AudioInput struct {
	Filename string
	Data     []byte
}

// Request is one text-generation call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Transcriber converts audio into text. Implementations keep no state between calls.
type Transcriber interface {
	Transcribe(ctx context.Context, in AudioInput) (string, error)
	Name() string
}

// Generator produces text from a prompt. Implementations keep no state between calls.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// AudioStep validates Transcriber output.
type AudioStep struct {
	t Transcriber
}

// NewAudioStep creates an AudioStep over t.
func NewAudioStep(t Transcriber) *AudioStep {
	return &AudioStep{t: t}
}

// Process transcribes one unit. An empty transcription is an invalid response.
func (s *AudioStep) Process(ctx context.Context, in AudioInput) (string, error) {
	text, err := s.t.Transcribe(ctx, in)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcription from %s", ErrInvalidResponse, s.t.Name())
	}
	return text, nil
}

// TextStep is a text-to-text call with a fixed prompt. The chunk summarizer and the
// synthesizer are two TextSteps over the same Generator.
type TextStep struct {
	gen    Generator
	prompt Prompt
}

// NewTextStep creates a TextStep that renders text into prompt.
func NewTextStep(gen Generator, prompt Prompt) *TextStep {
	return &TextStep{gen: gen, prompt: prompt}
}

// Process runs the prompt over text. An empty completion is an invalid response.
func (s *TextStep) Process(ctx context.Context, text string) (string, error) {
	out, err := s.gen.Generate(ctx, Request{
		System:      s.prompt.System,
		Prompt:      s.prompt.Render(text),
		MaxTokens:   s.prompt.MaxTokens,
		Temperature: s.prompt.Temperature,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion from %s", ErrInvalidResponse, s.gen.Name())
	}
	return out, nil
}

// Package mock provides in-memory inference backends for tests.
package mock

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/scribe/internal/inference"
)

// Transcriber satisfies inference.Transcriber for testing.
type Transcriber struct {
	Name_          string
	TranscribeFunc func(ctx context.Context, in inference.AudioInput) (string, error)
}

func (m *Transcriber) Name() string { return m.Name_ }

func (m *Transcriber) Transcribe(ctx context.Context, in inference.AudioInput) (string, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, in)
	}
	return "", nil
}

// Generator satisfies inference.Generator for testing.
type Generator struct {
	Name_        string
	GenerateFunc func(ctx context.Context, req inference.Request) (string, error)
}

func (m *Generator) Name() string { return m.Name_ }

func (m *Generator) Generate(ctx context.Context, req inference.Request) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "", nil
}

// NewTranscriber returns a Transcriber that echoes the unit payload.
func NewTranscriber() *Transcriber {
	return &Transcriber{
		Name_: "mock",
		TranscribeFunc: func(_ context.Context, in inference.AudioInput) (string, error) {
			return fmt.Sprintf("transcript of %s", in.Data), nil
		},
	}
}

// NewGenerator returns a Generator that prefixes the prompt with "summary: ".
func NewGenerator() *Generator {
	return &Generator{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, req inference.Request) (string, error) {
			return "summary: " + req.Prompt, nil
		},
	}
}

// NewFailingTranscriber returns a Transcriber that always returns err.
func NewFailingTranscriber(err error) *Transcriber {
	return &Transcriber{
		Name_: "mock-failing",
		TranscribeFunc: func(_ context.Context, _ inference.AudioInput) (string, error) {
			return "", err
		},
	}
}

// NewFailingGenerator returns a Generator that always returns err.
func NewFailingGenerator(err error) *Generator {
	return &Generator{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ inference.Request) (string, error) {
			return "", err
		},
	}
}

// NewBlockingGenerator returns a Generator that blocks until the context is cancelled.
func NewBlockingGenerator() *Generator {
	return &Generator{
		Name_: "mock-blocking",
		GenerateFunc: func(ctx context.Context, _ inference.Request) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

var (
	_ inference.Transcriber = (*Transcriber)(nil)
	_ inference.Generator   = (*Generator)(nil)
)

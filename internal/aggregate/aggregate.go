// Package aggregate assembles ordered unit outputs into job results.
package aggregate

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/kiranshivaraju/scribe/internal/inference"
	"github.com/kiranshivaraju/scribe/internal/split"
	"github.com/kiranshivaraju/scribe/pkg/models"
)

// Separator joins unit texts.
const Separator = "\n\n"

// Transcript builds the transcription result. texts[i] is the output for units[i].
func Transcript(units []split.AudioUnit, texts []string) (models.Transcript, error) {
	if len(units) != len(texts) {
		return models.Transcript{}, fmt.Errorf("aggregate: %d units but %d texts", len(units), len(texts))
	}

	segments := make([]models.Segment, len(units))
	for i, u := range units {
		segments[i] = models.Segment{
			Index: u.Index,
			Start: u.Start.Seconds(),
			End:   u.End.Seconds(),
			Text:  texts[i],
		}
	}

	return models.Transcript{
		Text:     strings.Join(texts, Separator),
		Segments: segments,
		Language: DetectLanguage(texts),
	}, nil
}

// JoinPartials concatenates the chunk summaries in unit order.
func JoinPartials(partials []string) string {
	return strings.Join(partials, Separator)
}

// Synthesize runs the synthesis step over the joined partial summaries.
func Synthesize(ctx context.Context, step *inference.TextStep, combined string) (string, error) {
	out, err := step.Process(ctx, combined)
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	return out, nil
}

// DetectLanguage returns the BCP 47 tag most segments are written in, or "und".
func DetectLanguage(texts []string) string {
	votes := make(map[string]int)
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		info := whatlanggo.Detect(text)
		code := info.Lang.Iso6391()
		if code == "" {
			continue
		}
		votes[code]++
	}

	var top string
	var topCount int
	for code, count := range votes {
		if count > topCount || (count == topCount && code < top) {
			top, topCount = code, count
		}
	}
	if top == "" {
		return language.Und.String()
	}

	tag, err := language.Parse(top)
	if err != nil {
		return language.Und.String()
	}
	return tag.String()
}

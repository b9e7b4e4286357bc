package inference

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TextPlaceholder marks where the unit text goes in a user prompt.
const TextPlaceholder = "{text}"

// Prompt is the fixed part of one TextStep call.
type Prompt struct {
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Render substitutes text into the user template.
func (p Prompt) Render(text string) string {
	return strings.Replace(p.User, TextPlaceholder, text, 1)
}

// Prompts holds the chunk-summary and synthesis prompts.
type Prompts struct {
	Chunk     Prompt `yaml:"chunk"`
	Synthesis Prompt `yaml:"synthesis"`
}

const synthesisSystem = `You are a helpful assistant that creates well-structured, comprehensive summaries.
Your task is to create a final summary from the provided text, which consists of summaries of different parts of a transcription.
IMPORTANT: Auto-correct any misspelled words and names, and mark them, e.g. "John (Auto-corrected)", "New York (Auto-corrected)". Use the surrounding context to correct misspelled words, names and locations, e.g. "Bodidhara, Gujarat" would be "Vadodara, Gujarat".
Format (markdown) the summary according to the topic and discussion. Make it well-structured with clear sections.
At the end, extract and list the following metadata only if available:
1. Dates mentioned
2. Links/URLs mentioned
3. References to documents, books, papers, locations, etc.
4. People mentioned
5. Organizations mentioned
6. Key topics discussed
7. Any other relevant information`

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		Chunk: Prompt{
			System:      "You are a helpful assistant that summarizes text accurately and concisely.",
			User:        "Please summarize the following text, preserving key information, quotes, and details:\n\n" + TextPlaceholder,
			MaxTokens:   1500,
			Temperature: 0.3,
		},
		Synthesis: Prompt{
			System:      synthesisSystem,
			User:        "Here are the summaries to combine into a final comprehensive summary:\n\n" + TextPlaceholder,
			MaxTokens:   2000,
			Temperature: 0.3,
		},
	}
}

// LoadPrompts reads YAML overrides from path on top of DefaultPrompts. An empty path
// returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prompts{}, fmt.Errorf("parse prompts file: %w", err)
	}
	for name, pr := range map[string]Prompt{"chunk": p.Chunk, "synthesis": p.Synthesis} {
		if !strings.Contains(pr.User, TextPlaceholder) {
			return Prompts{}, fmt.Errorf("prompt %s: user template must contain %s", name, TextPlaceholder)
		}
		if pr.MaxTokens <= 0 {
			return Prompts{}, fmt.Errorf("prompt %s: max_tokens must be positive", name)
		}
	}
	return p, nil
}

package split

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxTokens is the token budget of one text unit.
	DefaultMaxTokens = 4000
	charsPerToken    = 4
	paragraphSep     = "\n\n"
)

// TextUnit is one slice of a text input.
type TextUnit struct {
	Index int
	Text  string
}

// SplitText groups the paragraphs of text into units of at most maxTokens*4 characters.
// A boundary only ever falls between paragraphs, so a paragraph larger than the budget
// becomes a unit of its own. Joining the unit texts with "\n\n" yields text again.
func SplitText(text string, maxTokens int) ([]TextUnit, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrUnreadableInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	maxChars := maxTokens * charsPerToken

	var (
		units      []TextUnit
		current    []string
		size       int
		hasContent bool
	)
	flush := func() {
		units = append(units, TextUnit{Index: len(units), Text: strings.Join(current, paragraphSep)})
		current, size, hasContent = nil, 0, false
	}

	for _, p := range strings.Split(text, paragraphSep) {
		n := utf8.RuneCountInString(p)
		blank := strings.TrimSpace(p) == ""
		// Blank paragraphs stay with the unit they follow.
		if hasContent && !blank && size+n > maxChars {
			flush()
		}
		current = append(current, p)
		size += n
		if !blank {
			hasContent = true
		}
	}
	flush()

	return units, nil
}

// JoinText reassembles text units in index order.
func JoinText(units []TextUnit) string {
	parts := make([]string, len(units))
	for _, u := range units {
		parts[u.Index] = u.Text
	}
	return strings.Join(parts, paragraphSep)
}

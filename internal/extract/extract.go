// Package extract pulls structured metadata out of summary text and renders it as a
// markdown appendix.
package extract

import (
	"regexp"
	"strings"

	"github.com/kiranshivaraju/scribe/pkg/models"
)

const months = `(?:January|February|March|April|May|June|July|August|September|October|November|December)`

// Patterns compiled once at package init.
var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),
		regexp.MustCompile(`(?i)\b` + months + `\s+\d{1,2}(?:st|nd|rd|th)?,\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+` + months + `,?\s+\d{4}\b`),
	}
	reLink  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	reEmail = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:reference|ref|cited in|source):\s+([^,.;]+)`),
		regexp.MustCompile(`(?i)(?:book|article|paper|publication|journal):\s+([^,.;]+)`),
	}
)

// Extract finds dates, links, references and email addresses in text. Links keep any
// trailing punctuation. People, Organizations and Topics are never filled by patterns.
func Extract(text string) models.Metadata {
	var dates []string
	for _, re := range datePatterns {
		dates = append(dates, re.FindAllString(text, -1)...)
	}

	var refs []string
	for _, re := range referencePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if ref := strings.TrimSpace(m[1]); ref != "" {
				refs = append(refs, ref)
			}
		}
	}

	return models.Metadata{
		Dates:         models.NewSet(dates...),
		Links:         models.NewSet(reLink.FindAllString(text, -1)...),
		References:    models.NewSet(refs...),
		People:        models.NewSet(),
		Organizations: models.NewSet(),
		Topics:        models.NewSet(),
		Other:         models.NewSet(reEmail.FindAllString(text, -1)...),
	}
}

type section struct {
	title string
	items func(models.Metadata) []string
}

var sections = []section{
	{"Dates Mentioned", func(m models.Metadata) []string { return m.Dates }},
	{"Links/URLs", func(m models.Metadata) []string { return m.Links }},
	{"References", func(m models.Metadata) []string { return m.References }},
	{"People Mentioned", func(m models.Metadata) []string { return m.People }},
	{"Organizations Mentioned", func(m models.Metadata) []string { return m.Organizations }},
	{"Key Topics", func(m models.Metadata) []string { return m.Topics }},
	{"Other Relevant Information", func(m models.Metadata) []string { return m.Other }},
}

// Render appends an "Additional Information" section listing every non-empty category.
// The summary is returned unchanged when md is empty.
func Render(summary string, md models.Metadata) string {
	if md.Empty() {
		return summary
	}

	var sb strings.Builder
	sb.WriteString(summary)
	sb.WriteString("\n\n## Additional Information\n")
	for _, s := range sections {
		items := s.items(md)
		if len(items) == 0 {
			continue
		}
		sb.WriteString("\n### ")
		sb.WriteString(s.title)
		sb.WriteString("\n")
		for _, it := range items {
			sb.WriteString("- ")
			sb.WriteString(it)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Package export renders completed summaries as Word documents.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName  = "Times New Roman"
	fontSize  = 12
	fontColor = "000000"
)

var (
	reHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBullet  = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// Block is one rendered paragraph.
type Block struct {
	Size  uint64
	Items []Run
}

// Run is a span of text inside a Block.
type Run struct {
	Text string
	Bold bool
}

// Layout converts markdown into paragraph blocks. Headings become bold runs sized by
// level, bullets get a "• " prefix, and **bold** spans are kept as bold runs.
func Layout(title, markdown string) []Block {
	blocks := []Block{{Items: []Run{{Text: title, Bold: true}}, Size: 16}}
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}
		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, Block{
				Items: []Run{{Text: cleanInline(m[2]), Bold: true}},
				Size:  headingSize(len(m[1])),
			})
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			trimmed = "• " + m[1]
		}
		blocks = append(blocks, Block{Items: richRuns(trimmed), Size: fontSize})
	}
	return blocks
}

// WriteDocx writes markdown as a .docx document to w.
func WriteDocx(w io.Writer, title, markdown string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	for _, b := range Layout(title, markdown) {
		p := doc.AddParagraph("")
		for _, r := range b.Items {
			addRun(p, r, b.Size)
		}
	}

	// godocx only saves to a path.
	dir, err := os.MkdirTemp("", "scribe-docx-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "summary.docx")
	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

func addRun(p *docx.Paragraph, r Run, size uint64) {
	run := p.AddText(r.Text).Font(fontName).Size(size).Color(fontColor)
	if r.Bold {
		run.Bold(true)
	}
}

func richRuns(text string) []Run {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	var runs []Run
	for i, part := range parts {
		if part != "" {
			runs = append(runs, Run{Text: cleanInline(part)})
		}
		if i < len(matches) {
			runs = append(runs, Run{Text: cleanInline(matches[i][1]), Bold: true})
		}
	}
	return runs
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func cleanInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.ReplaceAll(s, "`", "")
}

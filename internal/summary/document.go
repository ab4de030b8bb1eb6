// Package summary compiles the selection state into the disclosure document
// and renders it as plain text or Markdown.
package summary

import "strings"

// BlockKind identifies how a block renders.
type BlockKind string

const (
	KindHeading   BlockKind = "heading"
	KindParagraph BlockKind = "paragraph"
	KindList      BlockKind = "list"
)

// Block is one renderable unit of a Document.
type Block struct {
	Kind BlockKind `json:"kind"`
	// Text carries heading and paragraph content.
	Text string `json:"text,omitempty"`
	// Label prefixes a list line; empty for flat risks.
	Label string   `json:"label,omitempty"`
	Items []string `json:"items,omitempty"`
	// Source names what produced the block: a group key, text block key or
	// "free_text".
	Source string `json:"source,omitempty"`
}

// Document is the ordered output of Compile.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// IsEmpty reports whether the document has no blocks.
func (d Document) IsEmpty() bool { return len(d.Blocks) == 0 }

// RenderText produces the export format: sections separated by a blank line,
// a heading followed directly by its list lines.
func RenderText(doc Document) string {
	var sections []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, b := range doc.Blocks {
		switch b.Kind {
		case KindHeading:
			flush()
			current = append(current, b.Text)
		case KindList:
			current = append(current, listLine(b))
		case KindParagraph:
			flush()
			sections = append(sections, b.Text)
		}
	}
	flush()
	return strings.Join(sections, "\n\n")
}

// RenderMarkdown produces a Markdown rendition used for terminal previews.
func RenderMarkdown(doc Document) string {
	var sections []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, b := range doc.Blocks {
		switch b.Kind {
		case KindHeading:
			flush()
			sections = append(sections, "### "+b.Text)
		case KindList:
			if b.Label != "" {
				current = append(current, "- **"+b.Label+":** "+strings.Join(b.Items, ", "))
			} else {
				current = append(current, "- "+strings.Join(b.Items, ", "))
			}
		case KindParagraph:
			flush()
			sections = append(sections, b.Text)
		}
	}
	flush()
	return strings.Join(sections, "\n\n")
}

func listLine(b Block) string {
	items := strings.Join(b.Items, ", ")
	if b.Label == "" {
		return items
	}
	return b.Label + ": " + items
}

package summary

import (
	"strings"

	"github.com/kingrea/narcorisks/internal/schema"
)

// Selection is the read side of the selection state.
type Selection interface {
	RiskActive(path string) bool
	TextBlockActive(key string) bool
}

// FreeTextSource marks the block built from the user's free text.
const FreeTextSource = "free_text"

// Compile derives the document from the selection. The result depends only on
// its arguments; text blocks and risks follow schema order, never selection
// order. Labels missing in language and every fallback are left out.
func Compile(sel Selection, s *schema.Schema, freeText, language string, fallbacks ...string) Document {
	if sel == nil || s == nil {
		return Document{}
	}
	buckets := map[schema.Position][]Block{}
	for _, tb := range s.TextBlocks() {
		if !sel.TextBlockActive(tb.Key()) {
			continue
		}
		text, ok := tb.Text.Resolve(language, fallbacks...)
		if !ok {
			continue
		}
		buckets[tb.Position] = append(buckets[tb.Position], Block{Kind: KindParagraph, Text: strings.TrimSpace(text), Source: tb.Key()})
	}
	if text := strings.TrimSpace(freeText); text != "" {
		buckets[schema.PositionAfterRisks] = append(buckets[schema.PositionAfterRisks], Block{Kind: KindParagraph, Text: text, Source: FreeTextSource})
	}

	var doc Document
	doc.Blocks = append(doc.Blocks, buckets[schema.PositionStart]...)
	doc.Blocks = append(doc.Blocks, buckets[schema.PositionBeforeRisks]...)
	doc.Blocks = append(doc.Blocks, riskListing(sel, s, language, fallbacks)...)
	doc.Blocks = append(doc.Blocks, buckets[schema.PositionAfterRisks]...)
	doc.Blocks = append(doc.Blocks, buckets[schema.PositionEnd]...)
	return doc
}

func riskListing(sel Selection, s *schema.Schema, language string, fallbacks []string) []Block {
	var out []Block
	for _, group := range s.Groups() {
		var lines []Block
		flat := -1
		for _, entry := range group.Entries() {
			if entry.IsLeaf() {
				label, ok := entry.Label.Resolve(language, fallbacks...)
				if !ok || !sel.RiskActive(entry.Path) {
					continue
				}
				if flat < 0 {
					lines = append(lines, Block{Kind: KindList, Source: group.Key})
					flat = len(lines) - 1
				}
				lines[flat].Items = append(lines[flat].Items, label)
				continue
			}
			items := activeLeafLabels(sel, entry, language, fallbacks)
			if len(items) == 0 {
				continue
			}
			flat = -1
			subLabel, _ := entry.Label.Resolve(language, fallbacks...)
			lines = append(lines, Block{Kind: KindList, Label: subLabel, Items: items, Source: entry.Path})
		}
		if len(lines) == 0 {
			continue
		}
		if heading, ok := group.Label.Resolve(language, fallbacks...); ok {
			out = append(out, Block{Kind: KindHeading, Text: heading, Source: group.Key})
		}
		out = append(out, lines...)
	}
	return out
}

func activeLeafLabels(sel Selection, n *schema.Node, language string, fallbacks []string) []string {
	var labels []string
	var walk func(*schema.Node)
	walk = func(node *schema.Node) {
		if node.IsLeaf() {
			if !sel.RiskActive(node.Path) {
				return
			}
			if label, ok := node.Label.Resolve(language, fallbacks...); ok {
				labels = append(labels, label)
			}
			return
		}
		for _, child := range node.Children() {
			walk(child)
		}
	}
	walk(n)
	return labels
}

package schema

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Label holds per-language display strings in document order.
type Label struct {
	entries []labelEntry
}

type labelEntry struct {
	lang string
	text string
}

// NewLabel builds a label from alternating language/text pairs. It exists for
// callers assembling labels outside of Load, mainly tests.
func NewLabel(pairs ...string) Label {
	var l Label
	for i := 0; i+1 < len(pairs); i += 2 {
		l.entries = append(l.entries, labelEntry{lang: pairs[i], text: pairs[i+1]})
	}
	return l
}

func parseLabel(value gjson.Result) Label {
	var l Label
	switch {
	case value.IsObject():
		value.ForEach(func(key, text gjson.Result) bool {
			if text.Type == gjson.String {
				l.entries = append(l.entries, labelEntry{lang: key.String(), text: text.String()})
			}
			return true
		})
	case value.Type == gjson.String:
		// A bare string applies to every language.
		l.entries = append(l.entries, labelEntry{lang: "*", text: value.String()})
	}
	return l
}

// Get returns the text stored for exactly lang.
func (l Label) Get(lang string) (string, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, entry := range l.entries {
		if strings.EqualFold(entry.lang, lang) || entry.lang == "*" {
			if strings.TrimSpace(entry.text) == "" {
				continue
			}
			return entry.text, true
		}
	}
	return "", false
}

// Resolve tries lang and then each fallback in turn.
func (l Label) Resolve(lang string, fallbacks ...string) (string, bool) {
	if text, ok := l.Get(lang); ok {
		return text, true
	}
	for _, fb := range fallbacks {
		if text, ok := l.Get(fb); ok {
			return text, true
		}
	}
	return "", false
}

// Or resolves the label and returns def when nothing matches.
func (l Label) Or(def, lang string, fallbacks ...string) string {
	if text, ok := l.Resolve(lang, fallbacks...); ok {
		return text
	}
	return def
}

// Languages lists the language codes present, in document order.
func (l Label) Languages() []string {
	out := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, entry.lang)
	}
	return out
}

// IsZero reports whether the label carries no text at all.
func (l Label) IsZero() bool { return len(l.entries) == 0 }

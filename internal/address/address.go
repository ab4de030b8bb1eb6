// Package address parses the dotted path strings found in presets, procedures
// and defaults into typed addresses. Paths stay strings on the wire; everything
// past the parsing boundary works with the typed form.
package address

import (
	"fmt"
	"strings"
)

const (
	// RiskPrefix is the optional root of fully-qualified risk paths.
	RiskPrefix = "risks."
	// TextBlockPrefix addresses a text block as textblock.<group>.<item>.
	TextBlockPrefix = "textblock."
	// ContextualPrefix is the legacy text block form contextual_risks.<key>.
	ContextualPrefix = "contextual_risks."

	// CommonKey is the distinguished child of a risk group.
	CommonKey = "common"
	// Separator joins path segments.
	Separator = "."
)

// reserved roots that look like paths but never address a risk.
var reservedRoots = map[string]struct{}{
	"textblocks":   {},
	"translations": {},
	"procedures":   {},
	"presets":      {},
	"defaults":     {},
}

// Address is one of Risk, TextBlock, Contextual or Unknown.
type Address interface {
	Raw() string
	fmt.Stringer
	isAddress()
}

// Risk addresses a node of the risk tree by its relative path.
type Risk struct {
	Path string
	raw  string
}

// TextBlock addresses a text block item inside a text block group.
type TextBlock struct {
	Group string
	Item  string
	raw   string
}

// Contextual is the legacy text block address; Key is matched against text
// block keys and item names.
type Contextual struct {
	Key string
	raw string
}

// Unknown is returned for strings that match none of the recognised forms.
type Unknown struct {
	Reason string
	raw    string
}

func (a Risk) Raw() string       { return a.raw }
func (a TextBlock) Raw() string  { return a.raw }
func (a Contextual) Raw() string { return a.raw }
func (a Unknown) Raw() string    { return a.raw }

func (a Risk) String() string       { return a.Path }
func (a TextBlock) String() string  { return a.Key() }
func (a Contextual) String() string { return a.Key }
func (a Unknown) String() string    { return a.raw }

func (Risk) isAddress()       {}
func (TextBlock) isAddress()  {}
func (Contextual) isAddress() {}
func (Unknown) isAddress()    {}

// Key returns the group.item key used by the selection state.
func (a TextBlock) Key() string { return a.Group + Separator + a.Item }

// Parse classifies raw by prefix.
func Parse(raw string) Address {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Unknown{Reason: "empty path", raw: raw}
	}
	switch {
	case strings.HasPrefix(trimmed, ContextualPrefix):
		key := strings.TrimPrefix(trimmed, ContextualPrefix)
		if !validPath(key) {
			return Unknown{Reason: "malformed contextual key", raw: raw}
		}
		return Contextual{Key: key, raw: raw}
	case strings.HasPrefix(trimmed, TextBlockPrefix):
		parts := strings.Split(strings.TrimPrefix(trimmed, TextBlockPrefix), Separator)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Unknown{Reason: "text block address needs group.item", raw: raw}
		}
		return TextBlock{Group: parts[0], Item: parts[1], raw: raw}
	}
	path := strings.TrimPrefix(trimmed, RiskPrefix)
	if !validPath(path) {
		return Unknown{Reason: "malformed risk path", raw: raw}
	}
	if _, ok := reservedRoots[Group(path)]; ok {
		return Unknown{Reason: fmt.Sprintf("unrecognized prefix %q", Group(path)), raw: raw}
	}
	return Risk{Path: path, raw: raw}
}

func validPath(path string) bool {
	if path == "" || strings.ContainsAny(path, " \t\r\n") {
		return false
	}
	for _, seg := range strings.Split(path, Separator) {
		if seg == "" {
			return false
		}
	}
	return true
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Segments splits a path.
func Segments(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Depth counts path segments.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, Separator) + 1
}

// Group returns the top-level group key of path.
func Group(path string) string {
	if idx := strings.Index(path, Separator); idx >= 0 {
		return path[:idx]
	}
	return path
}

// Common returns the common path of group.
func Common(group string) string {
	return group + Separator + CommonKey
}

// IsUnderCommon reports whether path is the common node of its group or below it.
func IsUnderCommon(path string) bool {
	segs := Segments(path)
	return len(segs) >= 2 && segs[1] == CommonKey
}

// Within reports whether path equals prefix or lies below it.
func Within(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+Separator)
}

// Below reports whether path lies strictly below prefix.
func Below(path, prefix string) bool {
	return prefix != "" && strings.HasPrefix(path, prefix+Separator)
}

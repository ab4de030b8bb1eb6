package schema

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Translations is the nested UI string table from the document.
type Translations struct {
	root gjson.Result
}

// Text looks up a dotted key. Leaf values are either plain strings or
// language maps; a language map falls back to each fallback and finally to its
// first value. Missing keys yield "".
func (t Translations) Text(key, lang string, fallbacks ...string) string {
	node := t.root
	for _, seg := range strings.Split(key, ".") {
		node = member(node, seg)
		if !node.Exists() {
			return ""
		}
	}
	if node.Type == gjson.String {
		return node.String()
	}
	if !node.IsObject() {
		return ""
	}
	label := parseLabel(node)
	if text, ok := label.Resolve(lang, fallbacks...); ok {
		return text
	}
	var first string
	node.ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.String {
			first = value.String()
			return false
		}
		return true
	})
	return first
}

// member finds a direct object member without going through gjson path
// syntax, so keys may contain wildcard or escape characters.
func member(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	if !obj.IsObject() {
		return found
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
			return false
		}
		return true
	})
	return found
}

package schema

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kingrea/narcorisks/internal/address"
)

// Load parses a risks document. Only a missing risk tree root or invalid JSON
// is fatal; every other irregularity is recorded in Warnings and skipped.
func Load(data []byte) (*Schema, error) {
	if !gjson.ValidBytes(data) {
		return nil, &SchemaError{Op: "parse", Err: ErrInvalidJSON}
	}
	doc := gjson.ParseBytes(data)
	children := member(member(doc, "risks"), "children")
	if !children.IsArray() {
		return nil, &SchemaError{Op: "load", Err: ErrNoRiskTree}
	}
	roots := children.Array()
	if len(roots) == 0 || !roots[0].IsObject() {
		return nil, &SchemaError{Op: "load", Err: ErrNoRiskTree}
	}

	s := &Schema{
		nodes:        map[string]*Node{},
		textBlocks:   map[string]*TextBlock{},
		translations: Translations{root: member(doc, "translations")},
	}
	s.parseRisks(roots[0])
	s.parseTextBlocks(member(doc, "textblocks"))
	s.parseProcedures(member(doc, "procedures"))
	s.parsePresets(member(doc, "presets"))
	s.parseDefaults(member(doc, "defaults"))
	s.checkReferences()
	return s, nil
}

func (s *Schema) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

func (s *Schema) parseRisks(root gjson.Result) {
	root.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if !value.IsObject() {
			return true
		}
		if !member(value, "label").Exists() {
			s.warnf("risk group %q has no label; skipped", k)
			return true
		}
		if !validKey(k) {
			s.warnf("risk group %q: key must not contain %q; skipped", k, address.Separator)
			return true
		}
		if _, dup := s.nodes[k]; dup {
			s.warnf("risk group %q is defined twice; keeping the first", k)
			return true
		}
		group := s.parseNode(k, "", value)
		group.children = commonFirst(group.children)
		s.groups = append(s.groups, group)
		return true
	})
	for _, g := range s.groups {
		for _, path := range g.LeafPaths() {
			if address.Depth(path) >= 2 {
				s.leafPaths = append(s.leafPaths, path)
			}
		}
	}
}

func (s *Schema) parseNode(key, parent string, value gjson.Result) *Node {
	path := key
	if parent != "" {
		path = address.Join(parent, key)
	}
	n := &Node{Key: key, Path: path, Label: parseLabel(member(value, "label"))}
	s.nodes[path] = n
	if n.Label.IsZero() {
		s.warnf("risk %q has no label", path)
	}
	value.ForEach(func(childKey, childValue gjson.Result) bool {
		ck := childKey.String()
		if ck == "label" || !childValue.IsObject() {
			return true
		}
		if !validKey(ck) {
			s.warnf("risk %q: child key %q must not contain %q; skipped", path, ck, address.Separator)
			return true
		}
		if n.Child(ck) != nil {
			s.warnf("risk %q is defined twice; keeping the first", address.Join(path, ck))
			return true
		}
		n.children = append(n.children, s.parseNode(ck, path, childValue))
		return true
	})
	return n
}

// commonFirst moves the common entry to the front and keeps the remaining
// entries in document order.
func commonFirst(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.IsCommon() {
			out = append(out, n)
		}
	}
	for _, n := range nodes {
		if !n.IsCommon() {
			out = append(out, n)
		}
	}
	return out
}

func validKey(key string) bool {
	return key != "" && !strings.Contains(key, address.Separator)
}

func (s *Schema) parseTextBlocks(root gjson.Result) {
	root.ForEach(func(key, value gjson.Result) bool {
		gk := key.String()
		if !value.IsObject() {
			s.warnf("text block group %q is not an object; skipped", gk)
			return true
		}
		items := member(value, "items")
		if !items.IsObject() {
			s.warnf("text block group %q has no items; skipped", gk)
			return true
		}
		group := &TextBlockGroup{Key: gk, Label: parseLabel(member(value, "label"))}
		items.ForEach(func(itemKey, item gjson.Result) bool {
			ik := itemKey.String()
			if !item.IsObject() || !validKey(ik) {
				s.warnf("text block %q is malformed; skipped", address.Join(gk, ik))
				return true
			}
			rawPos := member(item, "position").String()
			pos, ok := ParsePosition(rawPos)
			if !ok {
				s.warnf("text block %q: unknown position %q; using %s", address.Join(gk, ik), rawPos, pos)
			}
			block := &TextBlock{
				Group:    gk,
				Item:     ik,
				Label:    parseLabel(member(item, "label")),
				Text:     parseLabel(member(item, "text")),
				Position: pos,
				Default:  member(item, "default").Bool(),
			}
			if block.Text.IsZero() {
				s.warnf("text block %q has no text", block.Key())
			}
			s.textBlocks[block.Key()] = block
			group.Items = append(group.Items, block)
			return true
		})
		s.textGroups = append(s.textGroups, group)
		return true
	})
}

func (s *Schema) parseProcedures(root gjson.Result) {
	root.ForEach(func(key, value gjson.Result) bool {
		dk := key.String()
		if !value.IsObject() {
			return true
		}
		dept := &Department{Key: dk, Label: parseLabel(member(value, "label"))}
		value.ForEach(func(procKey, proc gjson.Result) bool {
			pk := procKey.String()
			if pk == "label" || !proc.IsObject() {
				return true
			}
			p := &Procedure{Department: dk, Key: pk, Label: parseLabel(member(proc, "label"))}
			for _, risk := range member(proc, "risks").Array() {
				p.Risks = append(p.Risks, risk.String())
			}
			dept.Procedures = append(dept.Procedures, p)
			return true
		})
		s.departments = append(s.departments, dept)
		return true
	})
}

func (s *Schema) parsePresets(root gjson.Result) {
	root.ForEach(func(key, value gjson.Result) bool {
		pk := key.String()
		if !value.IsObject() {
			return true
		}
		options := member(value, "options")
		if !options.IsObject() {
			s.warnf("preset %q has no options; skipped", pk)
			return true
		}
		preset := &Preset{Key: pk, Label: parseLabel(member(value, "label"))}
		options.ForEach(func(optKey, opt gjson.Result) bool {
			if !opt.IsObject() {
				return true
			}
			o := &PresetOption{Key: optKey.String(), Label: parseLabel(member(opt, "label"))}
			for _, risk := range member(opt, "associated_risks").Array() {
				o.AssociatedRisks = append(o.AssociatedRisks, risk.String())
			}
			preset.Options = append(preset.Options, o)
			return true
		})
		s.presets = append(s.presets, preset)
		return true
	})
}

func (s *Schema) parseDefaults(root gjson.Result) {
	root.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.True && value.Type != gjson.False {
			s.warnf("default %q is not a boolean", key.String())
		}
		s.defaults = append(s.defaults, Default{Path: key.String(), Active: value.Bool()})
		return true
	})
}

// ContextualTextBlock resolves a legacy contextual_risks key: an exact
// group.item key first, then the first block whose item name matches.
func (s *Schema) ContextualTextBlock(key string) *TextBlock {
	if block := s.TextBlock(key); block != nil {
		return block
	}
	for _, block := range s.TextBlocks() {
		if block.Item == key {
			return block
		}
	}
	return nil
}

func (s *Schema) checkReferences() {
	for _, proc := range s.Procedures() {
		for _, raw := range proc.Risks {
			s.checkReference("procedure "+proc.Ref(), raw)
		}
	}
	for _, preset := range s.presets {
		for _, opt := range preset.Options {
			for _, raw := range opt.AssociatedRisks {
				s.checkReference("preset "+address.Join(preset.Key, opt.Key), raw)
			}
		}
	}
	for _, def := range s.defaults {
		s.checkReference("defaults", def.Path)
	}
}

func (s *Schema) checkReference(owner, raw string) {
	switch addr := address.Parse(raw).(type) {
	case address.Risk:
		if s.nodes[addr.Path] == nil {
			s.warnf("%s: path %q matches no risk", owner, raw)
		}
	case address.TextBlock:
		if s.textBlocks[addr.Key()] == nil {
			s.warnf("%s: text block %q not found", owner, raw)
		}
	case address.Contextual:
		if s.ContextualTextBlock(addr.Key) == nil {
			s.warnf("%s: contextual text block %q not found", owner, raw)
		}
	case address.Unknown:
		s.warnf("%s: %q: %s", owner, raw, addr.Reason)
	}
}

// Package schema holds the risk taxonomy and the catalogs loaded from the
// risks document: text blocks, procedures, presets, defaults and translations.
// A Schema is immutable once Load returns.
package schema

import (
	"strings"

	"github.com/kingrea/narcorisks/internal/address"
)

// Node is one entry of the risk tree.
type Node struct {
	Key      string
	Path     string
	Label    Label
	children []*Node
}

// Children returns the child nodes. For a group, the common entry comes first.
func (n *Node) Children() []*Node { return n.children }

// Entries is Children under the name used for top-level groups.
func (n *Node) Entries() []*Node { return n.children }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// IsCommon reports whether the node is the common entry of its group.
func (n *Node) IsCommon() bool { return n.Key == address.CommonKey }

// Depth returns the number of path segments.
func (n *Node) Depth() int { return address.Depth(n.Path) }

// Child returns the direct child with key.
func (n *Node) Child(key string) *Node {
	for _, child := range n.children {
		if child.Key == key {
			return child
		}
	}
	return nil
}

// LeafPaths returns the paths of every leaf below n, in tree order. A leaf
// returns its own path.
func (n *Node) LeafPaths() []string {
	if n.IsLeaf() {
		return []string{n.Path}
	}
	var out []string
	for _, child := range n.children {
		out = append(out, child.LeafPaths()...)
	}
	return out
}

// Position places a text block in the compiled document.
type Position string

const (
	PositionStart       Position = "start"
	PositionBeforeRisks Position = "before_risks"
	PositionAfterRisks  Position = "after_risks"
	PositionEnd         Position = "end"
)

// Positions lists the positions in document order.
var Positions = []Position{PositionStart, PositionBeforeRisks, PositionAfterRisks, PositionEnd}

// ParsePosition maps the accepted spellings onto a Position. An empty value
// yields PositionBeforeRisks.
func ParsePosition(raw string) (Position, bool) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "-", "_"))) {
	case "":
		return PositionBeforeRisks, true
	case "start", "start_of_document", "top", "beginning":
		return PositionStart, true
	case "before_risks", "before", "before_risk_list", "before_list":
		return PositionBeforeRisks, true
	case "after_risks", "after", "after_risk_list", "after_list":
		return PositionAfterRisks, true
	case "end", "end_of_document", "bottom":
		return PositionEnd, true
	}
	return PositionBeforeRisks, false
}

// TextBlock is a toggleable paragraph of disclosure text.
type TextBlock struct {
	Group    string
	Item     string
	Label    Label
	Text     Label
	Position Position
	Default  bool
}

// Key returns the group.item identifier used by the selection state.
func (t *TextBlock) Key() string { return address.Join(t.Group, t.Item) }

// TextBlockGroup is a named set of text blocks.
type TextBlockGroup struct {
	Key   string
	Label Label
	Items []*TextBlock
}

// Procedure is a catalog entry whose risks are activated on selection.
type Procedure struct {
	Department string
	Key        string
	Label      Label
	Risks      []string
}

// Ref returns department.procedure.
func (p *Procedure) Ref() string { return address.Join(p.Department, p.Key) }

// Department groups procedures.
type Department struct {
	Key        string
	Label      Label
	Procedures []*Procedure
}

// Procedure returns the procedure with key.
func (d *Department) Procedure(key string) *Procedure {
	for _, proc := range d.Procedures {
		if proc.Key == key {
			return proc
		}
	}
	return nil
}

// PresetOption is one choice of a preset.
type PresetOption struct {
	Key             string
	Label           Label
	AssociatedRisks []string
}

// Preset is a choice group whose options bulk-activate paths.
type Preset struct {
	Key     string
	Label   Label
	Options []*PresetOption
}

// Option returns the option with key.
func (p *Preset) Option(key string) *PresetOption {
	for _, opt := range p.Options {
		if opt.Key == key {
			return opt
		}
	}
	return nil
}

// Default is one entry of the defaults map.
type Default struct {
	Path   string
	Active bool
}

// Schema is the loaded risks document.
type Schema struct {
	groups       []*Node
	nodes        map[string]*Node
	leafPaths    []string
	textGroups   []*TextBlockGroup
	textBlocks   map[string]*TextBlock
	departments  []*Department
	presets      []*Preset
	defaults     []Default
	translations Translations
	warnings     []string
}

// Groups returns the top-level risk groups in document order.
func (s *Schema) Groups() []*Node { return s.groups }

// Group returns the top-level group with key.
func (s *Schema) Group(key string) *Node {
	for _, g := range s.groups {
		if g.Key == key {
			return g
		}
	}
	return nil
}

// Node looks up any node of the risk tree by path.
func (s *Schema) Node(path string) *Node {
	if s == nil {
		return nil
	}
	return s.nodes[path]
}

// LeafPaths returns every leaf path in tree order.
func (s *Schema) LeafPaths() []string { return s.leafPaths }

// Leaves returns every leaf node in tree order.
func (s *Schema) Leaves() []*Node {
	out := make([]*Node, 0, len(s.leafPaths))
	for _, path := range s.leafPaths {
		out = append(out, s.nodes[path])
	}
	return out
}

// NodePaths returns every node path strictly below prefix, in tree order.
func (s *Schema) NodePaths(prefix string) []string {
	var out []string
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if address.Below(n.Path, prefix) {
				out = append(out, n.Path)
			}
			walk(n.children)
		}
	}
	walk(s.groups)
	return out
}

// TextBlockGroups returns the text block groups in document order.
func (s *Schema) TextBlockGroups() []*TextBlockGroup { return s.textGroups }

// TextBlocks returns every text block in (group, item) document order.
func (s *Schema) TextBlocks() []*TextBlock {
	var out []*TextBlock
	for _, g := range s.textGroups {
		out = append(out, g.Items...)
	}
	return out
}

// TextBlock returns the block for a group.item key.
func (s *Schema) TextBlock(key string) *TextBlock {
	if s == nil {
		return nil
	}
	return s.textBlocks[key]
}

// Departments returns the procedure catalog in document order.
func (s *Schema) Departments() []*Department { return s.departments }

// Procedures returns every procedure in catalog order.
func (s *Schema) Procedures() []*Procedure {
	var out []*Procedure
	for _, d := range s.departments {
		out = append(out, d.Procedures...)
	}
	return out
}

// Procedure returns department.procedure.
func (s *Schema) Procedure(department, key string) *Procedure {
	for _, d := range s.departments {
		if d.Key == department {
			return d.Procedure(key)
		}
	}
	return nil
}

// Presets returns the preset catalog in document order.
func (s *Schema) Presets() []*Preset { return s.presets }

// Preset returns the preset with key.
func (s *Schema) Preset(key string) *Preset {
	for _, p := range s.presets {
		if p.Key == key {
			return p
		}
	}
	return nil
}

// Defaults returns the defaults map entries in document order.
func (s *Schema) Defaults() []Default { return s.defaults }

// Translations returns the UI translation table.
func (s *Schema) Translations() Translations { return s.translations }

// Warnings lists the best-effort validation findings collected by Load.
func (s *Schema) Warnings() []string { return s.warnings }

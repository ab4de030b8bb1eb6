// Package selection owns the checklist state and keeps it consistent: the
// common auto-activation rule, container propagation and path resolution.
package selection

import (
	"fmt"

	"github.com/kingrea/narcorisks/internal/address"
	"github.com/kingrea/narcorisks/internal/schema"
)

// Logger is the subset of charmbracelet/log used by the engine.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// PathResolutionWarning reports a referenced path that matches no schema node.
// The engine activates the literal path instead.
type PathResolutionWarning struct {
	Path string
}

func (w PathResolutionWarning) Error() string {
	return fmt.Sprintf("selection: path %q matches no risk; activated literally", w.Path)
}

// UnknownTextBlockWarning reports a text block key missing from the catalog.
type UnknownTextBlockWarning struct {
	Key string
}

func (w UnknownTextBlockWarning) Error() string {
	return fmt.Sprintf("selection: text block %q not found", w.Key)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger routes debug and warning output to l.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWarningHandler receives every warning the engine emits.
func WithWarningHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.onWarning = fn
	}
}

// Engine applies selection operations to a State.
type Engine struct {
	schema    *schema.Schema
	state     *State
	logger    Logger
	onWarning func(error)
}

// NewEngine returns an engine with an empty state.
func NewEngine(s *schema.Schema, opts ...Option) *Engine {
	e := &Engine{schema: s, state: NewState(), logger: nopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Schema returns the schema the engine resolves against.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// State returns the live state. Treat it as read-only.
func (e *Engine) State() *State { return e.state }

// Warn reports a non-fatal problem through the logger and warning handler.
func (e *Engine) Warn(err error) {
	if err == nil {
		return
	}
	e.logger.Warn(err.Error())
	if e.onWarning != nil {
		e.onWarning(err)
	}
}

// Toggle sets path and, for a container, every descendant leaf, then updates
// the common entry of the path's group once.
func (e *Engine) Toggle(path string, active bool) {
	if path == "" {
		return
	}
	e.state.setRisk(path, active)
	if node := e.schema.Node(path); node != nil && !node.IsLeaf() {
		for _, leaf := range node.LeafPaths() {
			e.state.setRisk(leaf, active)
		}
	}
	group := address.Group(path)
	if active && !address.IsUnderCommon(path) {
		e.ActivateCommon(group)
	} else {
		e.DeactivateCommonIfUnused(group)
	}
	e.reconcile(group)
}

// ActivateCommon activates every common leaf of group unless one is already
// active, and marks group.common itself.
func (e *Engine) ActivateCommon(group string) {
	common := e.schema.Node(address.Common(group))
	if common == nil {
		return
	}
	leaves := common.LeafPaths()
	anyActive := false
	for _, leaf := range leaves {
		if e.state.RiskActive(leaf) {
			anyActive = true
			break
		}
	}
	if !anyActive {
		for _, leaf := range leaves {
			e.state.setRisk(leaf, true)
		}
	}
	e.state.setRisk(common.Path, true)
}

// DeactivateCommonIfUnused clears group.common and its leaves when nothing
// outside of common is active in group.
func (e *Engine) DeactivateCommonIfUnused(group string) {
	if e.hasNonCommon(group) {
		return
	}
	e.clearCommon(group)
}

// ActivatePathAndDescendants activates path and every schema path below it,
// then activates the common entry of its group. Repeating the call changes
// nothing.
func (e *Engine) ActivatePathAndDescendants(path string) {
	if path == "" {
		return
	}
	if !e.state.setRisk(path, true) {
		e.logger.Debug("path already active", "path", path)
	}
	for _, p := range e.schema.NodePaths(path) {
		e.state.setRisk(p, true)
	}
	group := address.Group(path)
	e.ActivateCommon(group)
	e.reconcile(group)
}

// ResolvePath maps raw onto an addressable path: an exact leaf, then a group
// or a subgroup container directly below one, then the first leaf starting
// with raw + ".". Deeper containers take the prefix step and resolve to their
// first leaf.
func (e *Engine) ResolvePath(raw string) (string, bool) {
	if node := e.schema.Node(raw); node != nil {
		if node.IsLeaf() || node.Depth() <= 2 {
			return node.Path, true
		}
	}
	for _, leaf := range e.schema.LeafPaths() {
		if address.Below(leaf, raw) {
			return leaf, true
		}
	}
	return "", false
}

// Activate resolves raw and activates the match with its descendants. An
// unresolved path is activated literally and reported as a
// PathResolutionWarning.
func (e *Engine) Activate(raw string) {
	if target, ok := e.ResolvePath(raw); ok {
		e.ActivatePathAndDescendants(target)
		return
	}
	e.Warn(PathResolutionWarning{Path: raw})
	e.ActivatePathAndDescendants(raw)
}

// Deactivate removes every active risk path for which match returns true and
// reconciles each affected group once. It returns the removed paths sorted.
func (e *Engine) Deactivate(match func(path string) bool) []string {
	var removed []string
	groups := map[string]struct{}{}
	for _, path := range e.state.ActiveRiskPaths() {
		if !match(path) {
			continue
		}
		e.state.setRisk(path, false)
		removed = append(removed, path)
		groups[address.Group(path)] = struct{}{}
	}
	for _, g := range sortedKeys(groups) {
		e.DeactivateCommonIfUnused(g)
		e.reconcile(g)
	}
	return removed
}

// SetTextBlock toggles a group.item text block. Unknown keys are reported and
// ignored.
func (e *Engine) SetTextBlock(key string, active bool) bool {
	if e.schema.TextBlock(key) == nil {
		e.Warn(UnknownTextBlockWarning{Key: key})
		return false
	}
	e.state.setBlock(key, active)
	return true
}

// ActivateContextual activates the text block addressed by a legacy
// contextual_risks key.
func (e *Engine) ActivateContextual(key string) bool {
	block := e.schema.ContextualTextBlock(key)
	if block == nil {
		e.Warn(UnknownTextBlockWarning{Key: key})
		return false
	}
	e.state.setBlock(block.Key(), true)
	return true
}

// ApplyDefaults pre-activates the schema's defaults map and every text block
// flagged default.
func (e *Engine) ApplyDefaults() {
	for _, def := range e.schema.Defaults() {
		if !def.Active {
			continue
		}
		switch addr := address.Parse(def.Path).(type) {
		case address.Risk:
			e.Toggle(addr.Path, true)
		case address.TextBlock:
			e.SetTextBlock(addr.Key(), true)
		case address.Contextual:
			e.ActivateContextual(addr.Key)
		case address.Unknown:
			e.logger.Warn("default skipped", "path", def.Path, "reason", addr.Reason)
		}
	}
	for _, block := range e.schema.TextBlocks() {
		if block.Default {
			e.state.setBlock(block.Key(), true)
		}
	}
}

// Reset clears every selection.
func (e *Engine) Reset() {
	e.state.clear()
}

func (e *Engine) hasNonCommon(group string) bool {
	common := address.Common(group)
	for path := range e.state.risks {
		if address.Below(path, group) && !address.Within(path, common) {
			return true
		}
	}
	return false
}

func (e *Engine) clearCommon(group string) {
	common := address.Common(group)
	for path := range e.state.risks {
		if address.Within(path, common) {
			delete(e.state.risks, path)
		}
	}
}

// reconcile re-establishes the invariants of group after a mutation: stale
// container marks without an active leaf are dropped and group.common is
// active exactly when something else in the group is.
func (e *Engine) reconcile(group string) {
	common := address.Common(group)
	for path := range e.state.risks {
		if address.Within(path, common) || !address.Within(path, group) {
			continue
		}
		node := e.schema.Node(path)
		if node == nil || node.IsLeaf() {
			continue
		}
		if !e.anyActive(node.LeafPaths()) {
			delete(e.state.risks, path)
		}
	}
	if !e.hasNonCommon(group) {
		e.clearCommon(group)
		return
	}
	if e.schema.Node(common) != nil {
		e.state.setRisk(common, true)
	}
}

func (e *Engine) anyActive(paths []string) bool {
	for _, p := range paths {
		if e.state.RiskActive(p) {
			return true
		}
	}
	return false
}

type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Warn(any, ...any)  {}

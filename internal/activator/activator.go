// Package activator applies catalog-driven bulk selections: procedures add
// their risks, preset options replace whatever any preset activated before.
package activator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/narcorisks/internal/address"
	"github.com/kingrea/narcorisks/internal/schema"
	"github.com/kingrea/narcorisks/internal/selection"
)

var (
	// ErrUnknownProcedure is returned for a department.procedure not in the catalog.
	ErrUnknownProcedure = errors.New("activator: unknown procedure")
	// ErrUnknownPreset is returned for a preset key not in the catalog.
	ErrUnknownPreset = errors.New("activator: unknown preset")
	// ErrUnknownOption is returned for an option key not offered by the preset.
	ErrUnknownOption = errors.New("activator: unknown preset option")
)

// UnknownAddressFormat reports a preset entry that matches none of the
// recognised address forms. The entry is skipped.
type UnknownAddressFormat struct {
	Preset string
	Option string
	Raw    string
	Reason string
}

func (u UnknownAddressFormat) Error() string {
	return fmt.Sprintf("activator: preset %s.%s: %q: %s", u.Preset, u.Option, u.Raw, u.Reason)
}

// Activator runs bulk selections against an engine.
type Activator struct {
	engine *selection.Engine
}

// New wraps engine.
func New(engine *selection.Engine) *Activator {
	return &Activator{engine: engine}
}

func (a *Activator) schema() *schema.Schema { return a.engine.Schema() }

// SelectProcedure activates a procedure given as department.procedure.
func (a *Activator) SelectProcedure(ref string) error {
	dept, proc, ok := strings.Cut(strings.TrimSpace(ref), address.Separator)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProcedure, ref)
	}
	return a.Procedure(dept, proc)
}

// Procedure activates every risk of department.procedure. Nothing is
// deactivated.
func (a *Activator) Procedure(department, key string) error {
	proc := a.schema().Procedure(department, key)
	if proc == nil {
		return fmt.Errorf("%w: %s.%s", ErrUnknownProcedure, department, key)
	}
	for _, raw := range proc.Risks {
		risk, ok := address.Parse(raw).(address.Risk)
		if !ok {
			a.engine.Warn(fmt.Errorf("activator: procedure %s: %q is not a risk path; skipped", proc.Ref(), raw))
			continue
		}
		if a.schema().Node(risk.Path) == nil {
			a.engine.Warn(selection.PathResolutionWarning{Path: risk.Path})
		}
		a.engine.ActivatePathAndDescendants(risk.Path)
	}
	return nil
}

// HandlePresetSelection replaces the effect of any earlier preset choice with
// optionKey of presetKey. An empty optionKey only clears.
//
// The clearing pass removes every active risk listed by any option of any
// preset, along with its resolved target and, below group level, the
// target's descendants. Selections the user made by hand are removed too when
// they fall in that reach.
func (a *Activator) HandlePresetSelection(presetKey, optionKey string) error {
	preset := a.schema().Preset(presetKey)
	if preset == nil {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, presetKey)
	}
	var option *schema.PresetOption
	if optionKey != "" {
		if option = preset.Option(optionKey); option == nil {
			return fmt.Errorf("%w: %s.%s", ErrUnknownOption, presetKey, optionKey)
		}
	}

	a.engine.Deactivate(a.presetReach())
	if option == nil {
		return nil
	}

	for _, raw := range option.AssociatedRisks {
		switch addr := address.Parse(raw).(type) {
		case address.Contextual:
			a.engine.ActivateContextual(addr.Key)
		case address.TextBlock:
			a.engine.SetTextBlock(addr.Key(), true)
		case address.Risk:
			a.engine.Activate(addr.Path)
		case address.Unknown:
			a.engine.Warn(UnknownAddressFormat{Preset: preset.Key, Option: option.Key, Raw: raw, Reason: addr.Reason})
		}
	}
	return nil
}

// presetReach builds a matcher for every risk path listed by any preset
// option: the literal path and its resolved target. Targets below group level
// also cover their descendants so a subgroup choice is fully undone; a
// group-level entry only matches itself.
func (a *Activator) presetReach() func(string) bool {
	targets := map[string]bool{}
	add := func(path string) {
		targets[path] = targets[path] || address.Depth(path) >= 2
	}
	for _, preset := range a.schema().Presets() {
		for _, opt := range preset.Options {
			for _, raw := range opt.AssociatedRisks {
				risk, ok := address.Parse(raw).(address.Risk)
				if !ok {
					continue
				}
				add(risk.Path)
				if resolved, ok := a.engine.ResolvePath(risk.Path); ok {
					add(resolved)
				}
			}
		}
	}
	return func(path string) bool {
		if _, ok := targets[path]; ok {
			return true
		}
		for target, subtree := range targets {
			if subtree && address.Below(path, target) {
				return true
			}
		}
		return false
	}
}

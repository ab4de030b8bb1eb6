package selection

import "sort"

// State is the set of active risk paths and active text block keys. Callers
// read it freely; only the Engine mutates it.
type State struct {
	risks  map[string]struct{}
	blocks map[string]struct{}
}

// NewState returns an empty state.
func NewState() *State {
	return &State{risks: map[string]struct{}{}, blocks: map[string]struct{}{}}
}

// RiskActive reports whether path is active.
func (s *State) RiskActive(path string) bool {
	_, ok := s.risks[path]
	return ok
}

// TextBlockActive reports whether the group.item text block is active.
func (s *State) TextBlockActive(key string) bool {
	_, ok := s.blocks[key]
	return ok
}

// ActiveRiskPaths returns the active risk paths sorted lexically.
func (s *State) ActiveRiskPaths() []string { return sortedKeys(s.risks) }

// ActiveTextBlocks returns the active text block keys sorted lexically.
func (s *State) ActiveTextBlocks() []string { return sortedKeys(s.blocks) }

// Empty reports whether nothing is selected.
func (s *State) Empty() bool { return len(s.risks) == 0 && len(s.blocks) == 0 }

// Clone returns an independent copy.
func (s *State) Clone() *State {
	out := NewState()
	for k := range s.risks {
		out.risks[k] = struct{}{}
	}
	for k := range s.blocks {
		out.blocks[k] = struct{}{}
	}
	return out
}

func (s *State) setRisk(path string, active bool) bool {
	_, had := s.risks[path]
	if active {
		s.risks[path] = struct{}{}
	} else {
		delete(s.risks, path)
	}
	return had != active
}

func (s *State) setBlock(key string, active bool) bool {
	_, had := s.blocks[key]
	if active {
		s.blocks[key] = struct{}{}
	} else {
		delete(s.blocks, key)
	}
	return had != active
}

func (s *State) clear() {
	s.risks = map[string]struct{}{}
	s.blocks = map[string]struct{}{}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

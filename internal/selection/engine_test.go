package selection_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/narcorisks/internal/address"
	"github.com/kingrea/narcorisks/internal/schema"
	"github.com/kingrea/narcorisks/internal/schema/schematest"
	"github.com/kingrea/narcorisks/internal/selection"
)

func newEngine(t *testing.T) (*selection.Engine, *[]error) {
	t.Helper()
	var warnings []error
	e := selection.NewEngine(schematest.Load(t), selection.WithWarningHandler(func(err error) {
		warnings = append(warnings, err)
	}))
	return e, &warnings
}

// assertCommonInvariant checks that group.common is active exactly when a
// non-common path of the group is.
func assertCommonInvariant(t *testing.T, s *schema.Schema, st *selection.State) {
	t.Helper()
	for _, g := range s.Groups() {
		common := address.Common(g.Key)
		if s.Node(common) == nil {
			continue
		}
		nonCommon := false
		for _, p := range st.ActiveRiskPaths() {
			if address.Below(p, g.Key) && !address.Within(p, common) {
				nonCommon = true
			}
		}
		if got := st.RiskActive(common); got != nonCommon {
			t.Fatalf("group %s: common active = %v, non-common active = %v (state %v)", g.Key, got, nonCommon, st.ActiveRiskPaths())
		}
		if !nonCommon {
			for _, leaf := range s.Node(common).LeafPaths() {
				if st.RiskActive(leaf) {
					t.Fatalf("group %s: common leaf %s active without other selections", g.Key, leaf)
				}
			}
		}
	}
}

func TestToggleLeafActivatesCommon(t *testing.T) {
	e, _ := newEngine(t)
	e.Toggle("general.awareness", true)
	want := []string{
		"general.awareness",
		"general.common",
		"general.common.nausea",
		"general.common.shivering",
	}
	if diff := cmp.Diff(want, e.State().ActiveRiskPaths()); diff != "" {
		t.Fatalf("active paths mismatch (-want +got):\n%s", diff)
	}
	assertCommonInvariant(t, e.Schema(), e.State())

	e.Toggle("general.awareness", false)
	if got := e.State().ActiveRiskPaths(); len(got) != 0 {
		t.Fatalf("expected empty state after untoggle, got %v", got)
	}
}

func TestToggleContainerPropagatesToLeaves(t *testing.T) {
	e, _ := newEngine(t)
	e.Toggle("regional.nerve", true)
	for _, p := range []string{
		"regional.nerve",
		"regional.nerve.injury",
		"regional.nerve.block.prolonged",
		"regional.nerve.block.failed",
		"regional.common",
		"regional.common.bruise",
	} {
		if !e.State().RiskActive(p) {
			t.Fatalf("%s should be active, state %v", p, e.State().ActiveRiskPaths())
		}
	}
	e.Toggle("regional.nerve", false)
	if got := e.State().ActiveRiskPaths(); len(got) != 0 {
		t.Fatalf("expected empty state, got %v", got)
	}
}

func TestPartialCommonSelectionIsKept(t *testing.T) {
	e, _ := newEngine(t)
	e.Toggle("general.awareness", true)
	e.Toggle("general.common.nausea", false)
	e.Toggle("general.airway.teeth", true)
	if e.State().RiskActive("general.common.nausea") {
		t.Fatalf("nausea was deselected and must stay off while another common leaf is active")
	}
	if !e.State().RiskActive("general.common.shivering") {
		t.Fatalf("shivering should remain active")
	}
	assertCommonInvariant(t, e.Schema(), e.State())
}

func TestCommonAloneCannotStayActive(t *testing.T) {
	e, _ := newEngine(t)
	e.Toggle("general.common.nausea", true)
	if got := e.State().ActiveRiskPaths(); len(got) != 0 {
		t.Fatalf("common leaf alone should be cleared, got %v", got)
	}
	e.Toggle("general.awareness", true)
	e.Toggle("general.common", false)
	assertCommonInvariant(t, e.Schema(), e.State())
}

func TestLeafOffPrunesStaleSubgroupMark(t *testing.T) {
	e, _ := newEngine(t)
	e.Toggle("general.airway", true)
	e.Toggle("general.airway.teeth", false)
	e.Toggle("general.airway.sore_throat", false)
	if got := e.State().ActiveRiskPaths(); len(got) != 0 {
		t.Fatalf("subgroup mark should be pruned with its last leaf, got %v", got)
	}
}

func TestCommonInvariantAcrossOperations(t *testing.T) {
	e, _ := newEngine(t)
	ops := []func(){
		func() { e.Toggle("general.airway.teeth", true) },
		func() { e.ActivatePathAndDescendants("regional.nerve.block") },
		func() { e.Toggle("general.common", false) },
		func() { e.Toggle("regional.nerve.block.failed", false) },
		func() { e.Activate("general") },
		func() { e.Toggle("general.airway.teeth", false) },
		func() { e.Toggle("regional.nerve.block.prolonged", false) },
		func() { e.Deactivate(func(p string) bool { return address.Within(p, "general") }) },
	}
	for i, op := range ops {
		op()
		t.Logf("after op %d: %v", i, e.State().ActiveRiskPaths())
		assertCommonInvariant(t, e.Schema(), e.State())
	}
}

func TestActivatePathAndDescendantsIsIdempotent(t *testing.T) {
	e, _ := newEngine(t)
	e.ActivatePathAndDescendants("regional.nerve")
	once := e.State().ActiveRiskPaths()
	e.ActivatePathAndDescendants("regional.nerve")
	if diff := cmp.Diff(once, e.State().ActiveRiskPaths()); diff != "" {
		t.Fatalf("second activation changed state (-once +twice):\n%s", diff)
	}
	assertCommonInvariant(t, e.Schema(), e.State())
}

func TestResolvePath(t *testing.T) {
	e, _ := newEngine(t)
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"general", "general", true},
		{"general.awareness", "general.awareness", true},
		{"general.airway", "general.airway", true},
		{"regional.nerve.block.failed", "regional.nerve.block.failed", true},
		{"regional.nerve.block", "regional.nerve.block.prolonged", true},
		{"regional.ghost", "", false},
	}
	for _, tc := range cases {
		got, ok := e.ResolvePath(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ResolvePath(%q) = %q,%v, want %q,%v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestActivateFallsBackToLiteralPath(t *testing.T) {
	e, warnings := newEngine(t)
	e.Activate("regional.ghost")
	if !e.State().RiskActive("regional.ghost") {
		t.Fatalf("unresolved path should be activated literally")
	}
	if !e.State().RiskActive("regional.common.bruise") {
		t.Fatalf("literal activation should still pull in common risks")
	}
	if len(*warnings) != 1 {
		t.Fatalf("warnings = %v, want one", *warnings)
	}
	var prw selection.PathResolutionWarning
	if !errors.As((*warnings)[0], &prw) || prw.Path != "regional.ghost" {
		t.Fatalf("warning = %v, want PathResolutionWarning", (*warnings)[0])
	}
}

func TestTextBlocks(t *testing.T) {
	e, warnings := newEngine(t)
	if !e.SetTextBlock("consent.online", true) {
		t.Fatalf("SetTextBlock returned false for known block")
	}
	if e.SetTextBlock("consent.missing", true) {
		t.Fatalf("SetTextBlock accepted unknown block")
	}
	if !e.ActivateContextual("fasting") || !e.State().TextBlockActive("info.fasting") {
		t.Fatalf("contextual key should activate info.fasting")
	}
	want := []string{"consent.online", "info.fasting"}
	if diff := cmp.Diff(want, e.State().ActiveTextBlocks()); diff != "" {
		t.Fatalf("text blocks mismatch (-want +got):\n%s", diff)
	}
	if len(*warnings) != 1 {
		t.Fatalf("warnings = %v, want one", *warnings)
	}
}

func TestApplyDefaultsAndReset(t *testing.T) {
	doc := `{"risks": {"children": [{
		"g": {"label": {"de": "G"},
			"common": {"label": {"de": "C"}, "c1": {"label": {"de": "c1"}}},
			"s": {"label": {"de": "S"}, "a": {"label": {"de": "a"}}, "b": {"label": {"de": "b"}}},
			"x": {"label": {"de": "x"}}}
	}]},
	"textblocks": {"t": {"items": {"one": {"text": {"de": "eins"}}, "two": {"text": {"de": "zwei"}, "default": true}}}},
	"defaults": {"risks.g.s": true, "risks.g.x": false, "textblock.t.one": true}}`
	s, err := schema.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e := selection.NewEngine(s)
	e.ApplyDefaults()
	wantRisks := []string{"g.common", "g.common.c1", "g.s", "g.s.a", "g.s.b"}
	if diff := cmp.Diff(wantRisks, e.State().ActiveRiskPaths()); diff != "" {
		t.Fatalf("risks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t.one", "t.two"}, e.State().ActiveTextBlocks()); diff != "" {
		t.Fatalf("text blocks mismatch (-want +got):\n%s", diff)
	}
	e.Reset()
	if !e.State().Empty() {
		t.Fatalf("state not empty after reset: %v %v", e.State().ActiveRiskPaths(), e.State().ActiveTextBlocks())
	}
}

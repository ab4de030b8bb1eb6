package session_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/narcorisks/internal/activator"
	"github.com/kingrea/narcorisks/internal/logbook"
	"github.com/kingrea/narcorisks/internal/schema/schematest"
	"github.com/kingrea/narcorisks/internal/selection"
	"github.com/kingrea/narcorisks/internal/session"
)

func TestNewAppliesDefaults(t *testing.T) {
	s := session.New(schematest.Load(t))
	if diff := cmp.Diff([]string{"intro.standard"}, s.State().ActiveTextBlocks()); diff != "" {
		t.Fatalf("default text blocks (-want +got):\n%s", diff)
	}
	if s.State().RiskActive("general.awareness") {
		t.Fatalf("defaults map sets awareness to false")
	}
	if s.ID() == "" || s.Language() != "de" {
		t.Fatalf("id %q language %q", s.ID(), s.Language())
	}

	bare := session.New(schematest.Load(t), session.WithoutDefaults())
	if !bare.State().Empty() {
		t.Fatalf("WithoutDefaults should start empty")
	}
}

func TestSummaryFollowsOperations(t *testing.T) {
	s := session.New(schematest.Load(t), session.WithID("fixed"))
	s.Toggle("general.awareness", true)
	s.SetFreeText("  Rückfragen beantwortet. ")
	want := strings.Join([]string{
		"Der Patient wurde aufgeklärt.",
		"Allgemeinanästhesie\nAllgemein: Übelkeit, Kältezittern\nWachheit",
		"Rückfragen beantwortet.",
	}, "\n\n")
	if got := s.Summary(); got != want {
		t.Fatalf("summary:\n%s\nwant:\n%s", got, want)
	}
	if !strings.Contains(s.Markdown(), "### Allgemeinanästhesie") {
		t.Fatalf("markdown missing heading:\n%s", s.Markdown())
	}
}

func TestSetLanguageKeepsSelection(t *testing.T) {
	s := session.New(schematest.Load(t), session.WithoutDefaults())
	s.Toggle("general.aspiration", true)
	before := s.State().ActiveRiskPaths()
	if err := s.SetLanguage("en-US"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	if s.Language() != "en" {
		t.Fatalf("language = %q", s.Language())
	}
	if diff := cmp.Diff(before, s.State().ActiveRiskPaths()); diff != "" {
		t.Fatalf("language switch changed selection (-before +after):\n%s", diff)
	}
	if got := s.Summary(); !strings.Contains(got, "General anesthesia") || !strings.Contains(got, "Aspiration") {
		t.Fatalf("english summary with german fallback:\n%s", got)
	}
	if err := s.SetLanguage(" "); err == nil {
		t.Fatalf("empty language should be rejected")
	}
}

func TestLanguagesAndNextLanguage(t *testing.T) {
	s := session.New(schematest.Load(t))
	if diff := cmp.Diff([]string{"de", "en"}, s.Languages()); diff != "" {
		t.Fatalf("languages (-want +got):\n%s", diff)
	}
	if got := s.NextLanguage(); got != "en" {
		t.Fatalf("next language = %q", got)
	}
	if got := s.NextLanguage(); got != "de" {
		t.Fatalf("next language = %q", got)
	}
}

func TestPresetAndProcedureChoices(t *testing.T) {
	s := session.New(schematest.Load(t))
	if err := s.HandlePresetSelection("airway_device", "tube"); err != nil {
		t.Fatalf("preset: %v", err)
	}
	if s.PresetChoice("airway_device") != "tube" {
		t.Fatalf("preset choice not recorded")
	}
	if err := s.HandlePresetSelection("airway_device", "bogus"); !errors.Is(err, activator.ErrUnknownOption) {
		t.Fatalf("err = %v", err)
	}
	if s.PresetChoice("airway_device") != "tube" {
		t.Fatalf("failed selection must not change the recorded choice")
	}
	if err := s.HandlePresetSelection("airway_device", ""); err != nil {
		t.Fatalf("clear preset: %v", err)
	}
	if _, ok := s.PresetChoices()["airway_device"]; ok {
		t.Fatalf("blank option should drop the choice")
	}

	if err := s.SelectProcedure("ortho.knee"); err != nil {
		t.Fatalf("procedure: %v", err)
	}
	var prw selection.PathResolutionWarning
	if w := s.Warnings(); len(w) != 1 || !errors.As(w[0], &prw) || prw.Path != "unknown.path" {
		t.Fatalf("warnings = %v", w)
	}
	s.Toggle("general.awareness", true)
	if len(s.Warnings()) != 0 {
		t.Fatalf("warnings should reset per operation, got %v", s.Warnings())
	}
	if diff := cmp.Diff([]string{"ortho.knee"}, s.Procedures()); diff != "" {
		t.Fatalf("procedures (-want +got):\n%s", diff)
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := session.New(schematest.Load(t))
	s.Toggle("general.awareness", true)
	s.SetTextBlock("consent.online", true)
	s.SetFreeText("x")
	_ = s.HandlePresetSelection("airway_device", "mask")
	_ = s.SelectProcedure("surgery.hernia")
	s.Reset()

	snap := s.Snapshot()
	want := session.Snapshot{
		ID:         s.ID(),
		Language:   "de",
		Risks:      []string{},
		TextBlocks: []string{},
		Presets:    map[string]string{},
		Procedures: []string{},
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot after reset (-want +got):\n%s", diff)
	}
	if !s.Compile().IsEmpty() {
		t.Fatalf("document should be empty after reset")
	}
}

func TestJournalRecordsOperations(t *testing.T) {
	book, err := logbook.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	s := session.New(schematest.Load(t), session.WithJournal(book), session.WithID("abcdef0123"))
	s.Activate("regional.ghost")
	lines, total := book.Tail(10)
	if total != 3 {
		t.Fatalf("journal = %v", lines)
	}
	if !strings.Contains(lines[0], "[abcdef01] open") || !strings.Contains(lines[1], "WARN") || !strings.Contains(lines[2], "activate regional.ghost") {
		t.Fatalf("journal lines = %v", lines)
	}
}

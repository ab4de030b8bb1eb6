// Package session bundles one checklist session: the engine and its state,
// the bulk activators, the output language, free text and the user's preset
// and procedure choices. A Session is not safe for concurrent use; callers
// that share one serialise access themselves.
package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kingrea/narcorisks/internal/activator"
	"github.com/kingrea/narcorisks/internal/config"
	"github.com/kingrea/narcorisks/internal/logbook"
	"github.com/kingrea/narcorisks/internal/schema"
	"github.com/kingrea/narcorisks/internal/selection"
	"github.com/kingrea/narcorisks/internal/summary"
)

// DefaultLanguage is used when no language option is given.
const DefaultLanguage = "de"

// Logger is satisfied by *logging.Logger.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
}

// Option customizes a Session.
type Option func(*Session)

// WithLanguage sets the initial output language.
func WithLanguage(lang string) Option {
	return func(s *Session) {
		if lang = config.NormalizeLanguage(lang); lang != "" {
			s.language = lang
		}
	}
}

// WithFallbackLanguage sets the language tried when a label is missing in the
// output language.
func WithFallbackLanguage(lang string) Option {
	return func(s *Session) {
		s.fallback = config.NormalizeLanguage(lang)
	}
}

// WithLogger routes engine and session output to l.
func WithLogger(l Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJournal records every operation in book.
func WithJournal(book *logbook.Logbook) Option {
	return func(s *Session) {
		s.journal = book
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id = strings.TrimSpace(id); id != "" {
			s.id = id
		}
	}
}

// WithoutDefaults skips the schema's default pre-activation.
func WithoutDefaults() Option {
	return func(s *Session) {
		s.skipDefaults = true
	}
}

// Session is one user's checklist.
type Session struct {
	id        string
	schema    *schema.Schema
	engine    *selection.Engine
	activator *activator.Activator

	language string
	fallback string
	freeText string
	presets  map[string]string
	// procedures lists department.procedure refs in the order they were
	// applied since the last reset.
	procedures []string

	warnings     []error
	skipDefaults bool
	logger       Logger
	journal      *logbook.Logbook
}

// New opens a session over s and applies the schema defaults.
func New(s *schema.Schema, opts ...Option) *Session {
	sess := &Session{
		id:       uuid.NewString(),
		schema:   s,
		language: DefaultLanguage,
		fallback: DefaultLanguage,
		presets:  map[string]string{},
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sess)
		}
	}
	sess.engine = selection.NewEngine(s,
		selection.WithLogger(sess.logger),
		selection.WithWarningHandler(sess.collect),
	)
	sess.activator = activator.New(sess.engine)
	if !sess.skipDefaults {
		sess.engine.ApplyDefaults()
	}
	sess.logger.Info("session opened", "session", sess.id, "language", sess.language)
	sess.journal.Record(sess.id, "open", "language="+sess.language)
	return sess
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Schema returns the schema the session was opened over.
func (s *Session) Schema() *schema.Schema { return s.schema }

// State returns the live selection state. Treat it as read-only.
func (s *Session) State() *selection.State { return s.engine.State() }

// Engine exposes the consistency engine for read access such as ResolvePath.
func (s *Session) Engine() *selection.Engine { return s.engine }

// Language returns the output language.
func (s *Session) Language() string { return s.language }

// Fallbacks returns the label fallback languages.
func (s *Session) Fallbacks() []string {
	if s.fallback == "" || s.fallback == s.language {
		return nil
	}
	return []string{s.fallback}
}

// Warnings returns the warnings raised by the most recent operation.
func (s *Session) Warnings() []error {
	out := make([]error, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Label resolves l in the session language.
func (s *Session) Label(l schema.Label, def string) string {
	return l.Or(def, s.language, s.Fallbacks()...)
}

// Text looks up a UI translation in the session language.
func (s *Session) Text(key, def string) string {
	if text := s.schema.Translations().Text(key, s.language, s.Fallbacks()...); text != "" {
		return text
	}
	return def
}

// Toggle sets a risk path on or off.
func (s *Session) Toggle(path string, active bool) {
	s.begin()
	s.engine.Toggle(path, active)
	s.record("toggle", fmt.Sprintf("%s=%t", path, active))
}

// ActivatePathAndDescendants activates path and everything below it.
func (s *Session) ActivatePathAndDescendants(path string) {
	s.begin()
	s.engine.ActivatePathAndDescendants(path)
	s.record("activate", path)
}

// Activate resolves raw before activating it. Unresolved paths are activated
// literally and reported in Warnings.
func (s *Session) Activate(raw string) {
	s.begin()
	s.engine.Activate(raw)
	s.record("activate", raw)
}

// SetTextBlock toggles a group.item text block and reports whether the key
// exists.
func (s *Session) SetTextBlock(key string, active bool) bool {
	s.begin()
	ok := s.engine.SetTextBlock(key, active)
	s.record("textblock", fmt.Sprintf("%s=%t", key, active))
	return ok
}

// HandlePresetSelection applies option of preset, replacing everything any
// earlier preset choice activated. An empty option clears the preset.
func (s *Session) HandlePresetSelection(preset, option string) error {
	s.begin()
	if err := s.activator.HandlePresetSelection(preset, option); err != nil {
		return err
	}
	if option == "" {
		delete(s.presets, preset)
	} else {
		s.presets[preset] = option
	}
	s.record("preset", preset+"="+option)
	return nil
}

// PresetChoice returns the option currently chosen for preset, or "".
func (s *Session) PresetChoice(preset string) string { return s.presets[preset] }

// PresetChoices returns a copy of every preset choice.
func (s *Session) PresetChoices() map[string]string {
	out := make(map[string]string, len(s.presets))
	for k, v := range s.presets {
		out[k] = v
	}
	return out
}

// SelectProcedure adds the risks of a department.procedure.
func (s *Session) SelectProcedure(ref string) error {
	s.begin()
	if err := s.activator.SelectProcedure(ref); err != nil {
		return err
	}
	ref = strings.TrimSpace(ref)
	s.procedures = append(s.procedures, ref)
	s.record("procedure", ref)
	return nil
}

// Procedures returns the procedures applied since the last reset.
func (s *Session) Procedures() []string {
	out := make([]string, len(s.procedures))
	copy(out, s.procedures)
	return out
}

// SetLanguage switches the output language. The selection is left alone.
func (s *Session) SetLanguage(lang string) error {
	s.begin()
	code := config.NormalizeLanguage(lang)
	if code == "" {
		return fmt.Errorf("session: empty language")
	}
	s.language = code
	s.record("language", code)
	return nil
}

// Languages lists the languages the risk tree labels are written in, in
// order of first appearance.
func (s *Session) Languages() []string {
	seen := map[string]struct{}{}
	var out []string
	var walk func(n *schema.Node)
	walk = func(n *schema.Node) {
		for _, lang := range n.Label.Languages() {
			if _, ok := seen[lang]; ok || lang == "*" {
				continue
			}
			seen[lang] = struct{}{}
			out = append(out, lang)
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	for _, g := range s.schema.Groups() {
		walk(g)
	}
	if len(out) == 0 {
		out = []string{s.language}
	}
	return out
}

// NextLanguage switches to the language after the current one in Languages.
func (s *Session) NextLanguage() string {
	langs := s.Languages()
	next := langs[0]
	for i, lang := range langs {
		if lang == s.language {
			next = langs[(i+1)%len(langs)]
			break
		}
	}
	_ = s.SetLanguage(next)
	return s.language
}

// SetFreeText replaces the free text appended after the risk listing.
func (s *Session) SetFreeText(text string) {
	s.begin()
	s.freeText = text
	s.record("freetext", fmt.Sprintf("%d chars", len(strings.TrimSpace(text))))
}

// FreeText returns the current free text.
func (s *Session) FreeText() string { return s.freeText }

// Compile builds the summary document for the current state.
func (s *Session) Compile() summary.Document {
	return summary.Compile(s.engine.State(), s.schema, s.freeText, s.language, s.Fallbacks()...)
}

// Summary renders the summary as plain text.
func (s *Session) Summary() string { return summary.RenderText(s.Compile()) }

// Markdown renders the summary as Markdown.
func (s *Session) Markdown() string { return summary.RenderMarkdown(s.Compile()) }

// Reset clears selections, free text and preset and procedure choices in one
// step. Defaults are not re-applied.
func (s *Session) Reset() {
	s.begin()
	s.engine.Reset()
	s.freeText = ""
	s.presets = map[string]string{}
	s.procedures = nil
	s.record("reset", "")
}

// Snapshot is a serialisable view of the session.
type Snapshot struct {
	ID         string            `json:"id"`
	Language   string            `json:"language"`
	Risks      []string          `json:"risks"`
	TextBlocks []string          `json:"textblocks"`
	Presets    map[string]string `json:"presets"`
	Procedures []string          `json:"procedures"`
	FreeText   string            `json:"free_text"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// Snapshot captures the current session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		Language:   s.language,
		Risks:      s.engine.State().ActiveRiskPaths(),
		TextBlocks: s.engine.State().ActiveTextBlocks(),
		Presets:    s.PresetChoices(),
		Procedures: s.Procedures(),
		FreeText:   s.freeText,
	}
	if snap.Risks == nil {
		snap.Risks = []string{}
	}
	if snap.TextBlocks == nil {
		snap.TextBlocks = []string{}
	}
	for _, w := range s.warnings {
		snap.Warnings = append(snap.Warnings, w.Error())
	}
	return snap
}

func (s *Session) begin() { s.warnings = nil }

func (s *Session) collect(err error) {
	s.warnings = append(s.warnings, err)
	s.journal.RecordWarning(s.id, err)
}

func (s *Session) record(op, detail string) {
	s.logger.Debug("session op", "session", s.id, "op", op, "detail", detail)
	s.journal.Record(s.id, op, detail)
}

type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}

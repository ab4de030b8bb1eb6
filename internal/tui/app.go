// internal/tui/app.go
//
// The terminal checklist. It follows The Elm Architecture like every
// bubbletea program: App holds the state, Update turns messages into new
// state and View renders it. The schema is loaded asynchronously in Init;
// once it arrives the session is opened and every key press runs one session
// operation followed by a recompile of the preview.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/narcorisks/internal/export"
	"github.com/kingrea/narcorisks/internal/logbook"
	"github.com/kingrea/narcorisks/internal/schema"
	"github.com/kingrea/narcorisks/internal/session"
)

// appState represents which screen we're on.
type appState int

const (
	stateLoading   appState = iota // waiting for the schema
	stateError                     // schema failed to load; terminal
	stateChecklist                 // interactive checklist
)

type pane int

const (
	paneRisks pane = iota
	paneTextBlocks
	panePresets
	paneProcedures
	paneFreeText
	paneCount
)

func (p pane) title() string {
	switch p {
	case paneRisks:
		return "Risiken"
	case paneTextBlocks:
		return "Textbausteine"
	case panePresets:
		return "Voreinstellungen"
	case paneProcedures:
		return "Eingriffe"
	case paneFreeText:
		return "Freitext"
	}
	return ""
}

var errNoLoader = errors.New("tui: no schema loader configured")

// SchemaLoader fetches and parses the risks document.
type SchemaLoader func(ctx context.Context) (*schema.Schema, error)

// MarkdownRenderer turns the Markdown summary into terminal output.
type MarkdownRenderer func(markdown string, width int) (string, error)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithSchemaLoader sets how the schema is obtained.
func WithSchemaLoader(loader SchemaLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loader = loader
		}
	}
}

// WithContext bounds the schema load.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// WithSessionOptions passes options to the session opened after load.
func WithSessionOptions(opts ...session.Option) AppOption {
	return func(a *App) {
		a.sessionOpts = append(a.sessionOpts, opts...)
	}
}

// WithExporter enables copy and save.
func WithExporter(e *export.Exporter) AppOption {
	return func(a *App) {
		a.exporter = e
	}
}

// WithLogbook shows the tail of the session journal under the preview.
func WithLogbook(book *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = book
	}
}

// WithMarkdownRenderer replaces the glamour preview renderer.
func WithMarkdownRenderer(r MarkdownRenderer) AppOption {
	return func(a *App) {
		if r != nil {
			a.renderMarkdown = r
		}
	}
}

type schemaLoadedMsg struct {
	schema *schema.Schema
	err    error
}

type riskRow struct {
	node  *schema.Node
	depth int
}

// App is the main application model.
type App struct {
	state       appState
	ctx         context.Context
	loader      SchemaLoader
	session     *session.Session
	sessionOpts []session.Option
	exporter    *export.Exporter
	logbook     *logbook.Logbook

	keys           keyMap
	help           help.Model
	renderMarkdown MarkdownRenderer

	focus        pane
	expanded     map[string]bool
	riskCursor   int
	blockCursor  int
	presetCursor int

	filter      textinput.Model
	filtering   bool
	procMatches []schema.ProcedureMatch
	procCursor  int

	freeText textarea.Model

	preview   string
	statusMsg string
	err       error

	width  int
	height int
}

// NewApp creates the checklist model.
func NewApp(opts ...AppOption) *App {
	filter := textinput.New()
	filter.Placeholder = "Eingriff suchen…"
	filter.Prompt = "/ "

	free := textarea.New()
	free.Placeholder = "Freitext für die Zusammenfassung"
	free.ShowLineNumbers = false
	free.SetHeight(6)

	app := &App{
		state:          stateLoading,
		ctx:            context.Background(),
		keys:           defaultKeyMap(),
		help:           help.New(),
		renderMarkdown: glamourRenderer(),
		expanded:       map[string]bool{},
		filter:         filter,
		freeText:       free,
		statusMsg:      "Lade Risikokatalog…",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Session returns the open session, or nil while loading.
func (a *App) Session() *session.Session { return a.session }

// Init starts the schema load.
func (a *App) Init() tea.Cmd {
	loader, ctx := a.loader, a.ctx
	return func() tea.Msg {
		if loader == nil {
			return schemaLoadedMsg{err: errNoLoader}
		}
		s, err := loader(ctx)
		return schemaLoadedMsg{schema: s, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.freeText.SetWidth(max(20, a.leftWidth()-4))
		a.filter.Width = max(10, a.leftWidth()-8)
		a.refreshPreview()
		return a, nil

	case schemaLoadedMsg:
		return a.handleSchemaLoaded(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.state != stateChecklist {
			if key.Matches(msg, a.keys.Quit) {
				return a, tea.Quit
			}
			return a, nil
		}
		if a.focus == paneFreeText && a.freeText.Focused() {
			return a.updateFreeText(msg)
		}
		if a.filtering {
			return a.updateFilter(msg)
		}
		return a.handleKey(msg)
	}

	if a.state == stateChecklist && a.freeText.Focused() {
		var cmd tea.Cmd
		a.freeText, cmd = a.freeText.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleSchemaLoaded(msg schemaLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.state = stateError
		a.err = msg.err
		a.statusMsg = ""
		if a.logbook != nil {
			a.logbook.Error("Schema load failed: %v", msg.err)
		}
		return a, nil
	}
	opts := append([]session.Option{}, a.sessionOpts...)
	if a.logbook != nil {
		opts = append(opts, session.WithJournal(a.logbook))
	}
	a.session = session.New(msg.schema, opts...)
	for _, g := range msg.schema.Groups() {
		a.expanded[g.Path] = true
	}
	a.state = stateChecklist
	a.refreshProcedures()
	a.refreshPreview()
	a.statusMsg = fmt.Sprintf("%d Gruppen geladen", len(msg.schema.Groups()))
	if n := len(msg.schema.Warnings()); n > 0 {
		a.statusMsg += fmt.Sprintf(" · %d Hinweise im Katalog", n)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.NextPane):
		return a, a.setFocus((a.focus + 1) % paneCount)
	case key.Matches(msg, a.keys.PrevPane):
		return a, a.setFocus((a.focus + paneCount - 1) % paneCount)
	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-1)
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(1)
	case key.Matches(msg, a.keys.Toggle):
		a.toggleCurrent()
	case key.Matches(msg, a.keys.Enter):
		return a, a.enterCurrent()
	case key.Matches(msg, a.keys.Left):
		a.cyclePreset(-1)
	case key.Matches(msg, a.keys.Right):
		a.cyclePreset(1)
	case key.Matches(msg, a.keys.Filter):
		if a.focus == paneProcedures {
			a.filtering = true
			return a, a.filter.Focus()
		}
	case key.Matches(msg, a.keys.Copy):
		a.copySummary()
	case key.Matches(msg, a.keys.Save):
		a.saveSummary()
	case key.Matches(msg, a.keys.Reset):
		a.session.Reset()
		a.freeText.Reset()
		a.afterChange("Zurückgesetzt")
	case key.Matches(msg, a.keys.Language):
		lang := a.session.NextLanguage()
		a.refreshProcedures()
		a.afterChange("Sprache: " + lang)
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	}
	return a, nil
}

func (a *App) setFocus(p pane) tea.Cmd {
	a.focus = p
	if p == paneFreeText {
		return a.freeText.Focus()
	}
	return nil
}

func (a *App) updateFreeText(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Back):
		a.commitFreeText()
		return a, nil
	case key.Matches(msg, a.keys.NextPane):
		a.commitFreeText()
		return a, a.setFocus(paneRisks)
	case key.Matches(msg, a.keys.PrevPane):
		a.commitFreeText()
		return a, a.setFocus(paneProcedures)
	}
	var cmd tea.Cmd
	a.freeText, cmd = a.freeText.Update(msg)
	return a, cmd
}

func (a *App) commitFreeText() {
	a.freeText.Blur()
	if a.freeText.Value() == a.session.FreeText() {
		return
	}
	a.session.SetFreeText(a.freeText.Value())
	a.afterChange("Freitext übernommen")
}

func (a *App) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		a.filtering = false
		a.filter.Blur()
		a.filter.SetValue("")
		a.refreshProcedures()
		return a, nil
	case tea.KeyEnter:
		a.filtering = false
		a.filter.Blur()
		return a, nil
	case tea.KeyUp, tea.KeyDown:
		if msg.Type == tea.KeyUp {
			a.moveCursor(-1)
		} else {
			a.moveCursor(1)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.filter, cmd = a.filter.Update(msg)
	a.refreshProcedures()
	return a, cmd
}

func (a *App) riskRows() []riskRow {
	var rows []riskRow
	var walk func(n *schema.Node, depth int)
	walk = func(n *schema.Node, depth int) {
		rows = append(rows, riskRow{node: n, depth: depth})
		if n.IsLeaf() || !a.expanded[n.Path] {
			return
		}
		for _, child := range n.Children() {
			walk(child, depth+1)
		}
	}
	for _, g := range a.session.Schema().Groups() {
		walk(g, 0)
	}
	return rows
}

func (a *App) moveCursor(delta int) {
	clamp := func(v, n int) int {
		if n == 0 || v < 0 {
			return 0
		}
		if v >= n {
			return n - 1
		}
		return v
	}
	switch a.focus {
	case paneRisks:
		a.riskCursor = clamp(a.riskCursor+delta, len(a.riskRows()))
	case paneTextBlocks:
		a.blockCursor = clamp(a.blockCursor+delta, len(a.session.Schema().TextBlocks()))
	case panePresets:
		a.presetCursor = clamp(a.presetCursor+delta, len(a.session.Schema().Presets()))
	case paneProcedures:
		a.procCursor = clamp(a.procCursor+delta, len(a.procMatches))
	}
}

func (a *App) toggleCurrent() {
	switch a.focus {
	case paneRisks:
		rows := a.riskRows()
		if a.riskCursor >= len(rows) {
			return
		}
		node := rows[a.riskCursor].node
		active := a.markState(node) != markAll
		a.session.Toggle(node.Path, active)
		a.afterChange("")
	case paneTextBlocks:
		blocks := a.session.Schema().TextBlocks()
		if a.blockCursor >= len(blocks) {
			return
		}
		tb := blocks[a.blockCursor]
		a.session.SetTextBlock(tb.Key(), !a.session.State().TextBlockActive(tb.Key()))
		a.afterChange("")
	}
}

func (a *App) enterCurrent() tea.Cmd {
	switch a.focus {
	case paneRisks:
		rows := a.riskRows()
		if a.riskCursor >= len(rows) {
			return nil
		}
		node := rows[a.riskCursor].node
		if node.IsLeaf() {
			a.toggleCurrent()
			return nil
		}
		a.expanded[node.Path] = !a.expanded[node.Path]
	case paneTextBlocks:
		a.toggleCurrent()
	case panePresets:
		a.cyclePreset(1)
	case paneProcedures:
		a.applyProcedure()
	case paneFreeText:
		return a.freeText.Focus()
	}
	return nil
}

// cyclePreset steps the selected preset through its options, with the blank
// choice between the last and the first option.
func (a *App) cyclePreset(delta int) {
	if a.focus != panePresets {
		return
	}
	presets := a.session.Schema().Presets()
	if a.presetCursor >= len(presets) {
		return
	}
	preset := presets[a.presetCursor]
	choices := []string{""}
	for _, opt := range preset.Options {
		choices = append(choices, opt.Key)
	}
	current := 0
	for i, c := range choices {
		if c == a.session.PresetChoice(preset.Key) {
			current = i
			break
		}
	}
	next := choices[(current+delta+len(choices))%len(choices)]
	if err := a.session.HandlePresetSelection(preset.Key, next); err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.afterChange("")
}

func (a *App) refreshProcedures() {
	if a.session == nil {
		return
	}
	a.procMatches = a.session.Schema().SearchProcedures(a.filter.Value(), a.session.Language(), a.session.Fallbacks()...)
	if a.procCursor >= len(a.procMatches) {
		a.procCursor = max(0, len(a.procMatches)-1)
	}
}

func (a *App) applyProcedure() {
	if a.procCursor >= len(a.procMatches) {
		return
	}
	match := a.procMatches[a.procCursor]
	if err := a.session.SelectProcedure(match.Procedure.Ref()); err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.afterChange("Eingriff: " + match.Title)
}

func (a *App) copySummary() {
	if a.exporter == nil {
		a.statusMsg = "Export nicht konfiguriert"
		return
	}
	if err := a.exporter.Copy(a.session.Compile()); err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.statusMsg = "In die Zwischenablage kopiert"
	if a.logbook != nil {
		a.logbook.Record(a.session.ID(), "copy", "")
	}
}

func (a *App) saveSummary() {
	if a.exporter == nil {
		a.statusMsg = "Export nicht konfiguriert"
		return
	}
	path, err := a.exporter.Save(a.session.Compile(), export.FormatText)
	if err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.statusMsg = "Gespeichert: " + path
	if a.logbook != nil {
		a.logbook.Record(a.session.ID(), "save", path)
	}
}

func (a *App) afterChange(status string) {
	a.refreshPreview()
	if warnings := a.session.Warnings(); len(warnings) > 0 {
		a.statusMsg = fmt.Sprintf("⚠ %v", warnings[0])
		if len(warnings) > 1 {
			a.statusMsg += fmt.Sprintf(" (+%d)", len(warnings)-1)
		}
		return
	}
	if status != "" {
		a.statusMsg = status
	}
}

func (a *App) refreshPreview() {
	if a.session == nil {
		return
	}
	md := a.session.Markdown()
	if strings.TrimSpace(md) == "" {
		a.preview = "Noch nichts ausgewählt."
		return
	}
	out, err := a.renderMarkdown(md, max(20, a.rightWidth()-4))
	if err != nil {
		a.preview = md
		return
	}
	a.preview = strings.TrimRight(out, "\n")
}

func glamourRenderer() MarkdownRenderer {
	var cached *glamour.TermRenderer
	cachedWidth := -1
	return func(md string, width int) (string, error) {
		if cached == nil || width != cachedWidth {
			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return "", err
			}
			cached, cachedWidth = r, width
		}
		return cached.Render(md)
	}
}

func (a *App) leftWidth() int {
	width := a.width
	if width <= 0 {
		width = 100
	}
	return width - a.rightWidth() - 2
}

func (a *App) rightWidth() int {
	width := a.width
	if width <= 0 {
		width = 100
	}
	return max(32, width*2/5)
}

func (a *App) logTail() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(5)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return head + "\n" + body
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

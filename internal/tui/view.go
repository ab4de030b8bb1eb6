package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/narcorisks/internal/schema"
)

type mark int

const (
	markNone mark = iota
	markSome
	markAll
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	tabStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#888888"))
	activeTab   = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Underline(true)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

// markState summarises a node: a leaf is all or nothing, a container reports
// whether none, some or all of its leaves are selected.
func (a *App) markState(n *schema.Node) mark {
	st := a.session.State()
	if n.IsLeaf() {
		if st.RiskActive(n.Path) {
			return markAll
		}
		return markNone
	}
	leaves := n.LeafPaths()
	active := 0
	for _, leaf := range leaves {
		if st.RiskActive(leaf) {
			active++
		}
	}
	switch {
	case active == 0:
		return markNone
	case active == len(leaves):
		return markAll
	default:
		return markSome
	}
}

func (m mark) box() string {
	switch m {
	case markAll:
		return "[x]"
	case markSome:
		return "[~]"
	default:
		return "[ ]"
	}
}

// View renders the current state to a string.
func (a *App) View() string {
	switch a.state {
	case stateLoading:
		return headerStyle.Render("NarcoRisks") + "\n\n" + a.statusMsg
	case stateError:
		return headerStyle.Render("NarcoRisks") + "\n\n" +
			errorStyle.Render("Risikokatalog konnte nicht geladen werden") + "\n" +
			fmt.Sprintf("%v", a.err) + "\n\n" + dimStyle.Render("q → beenden")
	}

	leftWidth, rightWidth := a.leftWidth(), a.rightWidth()
	left := boxStyle.Width(max(20, leftWidth)).Render(a.renderTabs() + "\n\n" + a.renderPane())

	right := a.preview
	if tail := a.logTail(); tail != "" {
		right += "\n\n" + tail
	}
	rightBox := boxStyle.Width(max(20, rightWidth)).Render(right)

	title := a.session.Text("app.title", "NarcoRisks")
	header := headerStyle.Render(title) + dimStyle.Render(" · "+strings.ToUpper(a.session.Language()))
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, rightBox)
	footer := dimStyle.Render(a.statusMsg)
	return strings.Join([]string{header, body, footer, a.help.View(a.keys)}, "\n")
}

func (a *App) renderTabs() string {
	var tabs []string
	for p := pane(0); p < paneCount; p++ {
		if p == a.focus {
			tabs = append(tabs, activeTab.Render(p.title()))
		} else {
			tabs = append(tabs, tabStyle.Render(p.title()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a *App) renderPane() string {
	switch a.focus {
	case paneRisks:
		return a.renderRisks()
	case paneTextBlocks:
		return a.renderTextBlocks()
	case panePresets:
		return a.renderPresets()
	case paneProcedures:
		return a.renderProcedures()
	case paneFreeText:
		return a.freeText.View()
	}
	return ""
}

func (a *App) visibleRange(total, cursor int) (int, int) {
	height := a.height - 12
	if height < 5 || total <= height {
		return 0, total
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > total {
		start = total - height
	}
	return start, start + height
}

func (a *App) cursorLine(selected bool, line string) string {
	if selected {
		return cursorStyle.Render("› " + line)
	}
	return "  " + line
}

func (a *App) renderRisks() string {
	rows := a.riskRows()
	start, end := a.visibleRange(len(rows), a.riskCursor)
	var lines []string
	for i := start; i < end; i++ {
		row := rows[i]
		n := row.node
		glyph := " "
		if !n.IsLeaf() {
			glyph = "▸"
			if a.expanded[n.Path] {
				glyph = "▾"
			}
		}
		label := a.session.Label(n.Label, n.Key)
		if n.IsCommon() {
			label = dimStyle.Render(label + " (automatisch)")
		}
		line := fmt.Sprintf("%s%s %s %s", strings.Repeat("  ", row.depth), glyph, a.markState(n).box(), label)
		lines = append(lines, a.cursorLine(i == a.riskCursor, line))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderTextBlocks() string {
	s := a.session.Schema()
	blocks := s.TextBlocks()
	if len(blocks) == 0 {
		return dimStyle.Render("Keine Textbausteine im Katalog")
	}
	groups := map[string]string{}
	for _, g := range s.TextBlockGroups() {
		groups[g.Key] = a.session.Label(g.Label, g.Key)
	}
	start, end := a.visibleRange(len(blocks), a.blockCursor)
	var lines []string
	for i := start; i < end; i++ {
		tb := blocks[i]
		box := markNone
		if a.session.State().TextBlockActive(tb.Key()) {
			box = markAll
		}
		line := fmt.Sprintf("%s %s › %s %s", box.box(), groups[tb.Group], a.session.Label(tb.Label, tb.Item), dimStyle.Render(string(tb.Position)))
		lines = append(lines, a.cursorLine(i == a.blockCursor, line))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderPresets() string {
	presets := a.session.Schema().Presets()
	if len(presets) == 0 {
		return dimStyle.Render("Keine Voreinstellungen im Katalog")
	}
	var lines []string
	for i, p := range presets {
		choice := "–"
		if key := a.session.PresetChoice(p.Key); key != "" {
			if opt := p.Option(key); opt != nil {
				choice = a.session.Label(opt.Label, opt.Key)
			}
		}
		line := fmt.Sprintf("%s: ‹ %s ›", a.session.Label(p.Label, p.Key), choice)
		lines = append(lines, a.cursorLine(i == a.presetCursor, line))
	}
	lines = append(lines, "", dimStyle.Render("←/→ Option wählen"))
	return strings.Join(lines, "\n")
}

func (a *App) renderProcedures() string {
	var lines []string
	if a.filtering || a.filter.Value() != "" {
		lines = append(lines, a.filter.View(), "")
	}
	if len(a.procMatches) == 0 {
		lines = append(lines, dimStyle.Render("Keine Eingriffe gefunden"))
		return strings.Join(lines, "\n")
	}
	start, end := a.visibleRange(len(a.procMatches), a.procCursor)
	for i := start; i < end; i++ {
		lines = append(lines, a.cursorLine(i == a.procCursor, a.procMatches[i].Title))
	}
	if applied := a.session.Procedures(); len(applied) > 0 {
		lines = append(lines, "", dimStyle.Render("Übernommen: "+strings.Join(applied, ", ")))
	}
	return strings.Join(lines, "\n")
}

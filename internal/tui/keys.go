package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Enter    key.Binding
	NextPane key.Binding
	PrevPane key.Binding
	Left     key.Binding
	Right    key.Binding
	Filter   key.Binding
	Copy     key.Binding
	Save     key.Binding
	Reset    key.Binding
	Language key.Binding
	Help     key.Binding
	Back     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand/apply")),
		NextPane: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		PrevPane: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev pane")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev option")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next option")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search procedures")),
		Copy:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
		Save:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Language: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "language")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave input")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Enter, k.NextPane, k.Copy, k.Save, k.Reset, k.Language, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Enter},
		{k.NextPane, k.PrevPane, k.Left, k.Right, k.Filter},
		{k.Copy, k.Save, k.Reset, k.Language},
		{k.Help, k.Back, k.Quit},
	}
}

package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/berrydesk/internal/keys"
	"github.com/nhle/berrydesk/internal/theme"
)

// Section is a titled group of bindings in the overlay.
type Section struct {
	Title    string
	Bindings []key.Binding
}

// Model renders the shortcut overlay for the dashboard. The last section
// lists the record actions of whichever tab is active.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	tab    string
	width  int
	height int
}

func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width - 4
	return Model{keys: k, help: h, tab: "Projects", width: width, height: height}
}

// SetTab selects the tab whose actions are listed.
func (m *Model) SetTab(label string) {
	m.tab = label
}

// Sections returns the overlay content for the active tab.
func (m Model) Sections() []Section {
	k := m.keys
	out := []Section{
		{"Navigation", []key.Binding{k.Up, k.Down, k.NextTab, k.PrevTab}},
		{"Session", []key.Binding{k.Refresh, k.Settings, k.BasicData, k.Logout, k.Help, k.Quit}},
	}
	if actions := tabActions(k, m.tab); len(actions) > 0 {
		out = append(out, Section{m.tab, actions})
	}
	return out
}

func tabActions(k *keys.KeyMap, tab string) []key.Binding {
	switch tab {
	case "Projects":
		return []key.Binding{
			k.NextPage, k.PrevPage, k.Search, k.CycleFilter, k.CycleSort, k.ClearFilters,
			k.New, k.Edit, k.Delete, k.Invoice,
		}
	case "Invoices":
		return []key.Binding{k.NextPage, k.PrevPage, k.New, k.MarkPaid, k.MarkSent, k.Delete}
	case "Todos":
		return []key.Binding{k.CycleFilter, k.ClearFilters, k.New, k.Edit, k.Complete, k.Delete}
	}
	return nil
}

func (m Model) View() string {
	sections := m.Sections()
	cols := make([]string, 0, len(sections))
	for _, s := range sections {
		col := lipgloss.JoinVertical(lipgloss.Left,
			theme.TitleStyle.Render(s.Title),
			m.help.FullHelpView([][]key.Binding{s.Bindings}),
		)
		cols = append(cols, lipgloss.NewStyle().MarginRight(4).Render(col))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	if lipgloss.Width(body) > m.width-6 {
		body = lipgloss.JoinVertical(lipgloss.Left, cols...)
	}
	return theme.PanelStyle.Width(m.width - 4).Render(body)
}

// ShortView renders the one-line hint used in the status bar.
func (m Model) ShortView() string {
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

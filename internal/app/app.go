package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/berrydesk/internal/keys"
	appsync "github.com/nhle/berrydesk/internal/sync"
	"github.com/nhle/berrydesk/internal/theme"
	"github.com/nhle/berrydesk/internal/ui"
	configview "github.com/nhle/berrydesk/internal/ui/config"
	"github.com/nhle/berrydesk/internal/ui/detail"
	helpview "github.com/nhle/berrydesk/internal/ui/help"
	"github.com/nhle/berrydesk/internal/ui/invoices"
	"github.com/nhle/berrydesk/internal/ui/login"
	"github.com/nhle/berrydesk/internal/ui/projects"
	"github.com/nhle/berrydesk/internal/ui/todos"
)

// ViewState represents the current top-level screen.
type ViewState int

const (
	ViewStarting ViewState = iota
	ViewLogin
	ViewDashboard
	ViewHelp
)

// Tab is a dashboard section.
type Tab int

const (
	TabProjects Tab = iota
	TabInvoices
	TabTodos
)

var tabLabels = []string{"Projects", "Invoices", "Todos"}

type loggedOutMsg struct{}

// Model is the root Bubble Tea model. It routes between the sign-in screen
// and the dashboard; the modal overlays follow the UI store flags.
type Model struct {
	services     *Services
	keys         *keys.KeyMap
	currentView  ViewState
	previousView ViewState
	activeTab    Tab
	layout       ui.Layout
	ready        bool
	notice       string

	loginView    login.Model
	projectView  projects.Model
	invoiceView  invoices.Model
	todoView     todos.Model
	settingsView configview.Model
	detailView   detail.Model
	helpView     helpview.Model
}

// New creates the root model over s.
func New(s *Services) Model {
	k := keys.DefaultKeyMap()
	return Model{
		services:    s,
		keys:        k,
		currentView: ViewStarting,
		layout:      ui.NewLayout(80, 24),
		loginView:   login.New(s.Auth, 80, 24),
		projectView: projects.New(s.Projects, s.Invoices, k, 80, 24),
		invoiceView: invoices.New(s.Invoices, k, 80, 24),
		todoView:    todos.New(s.Todos, k, 80, 24),
		settingsView: configview.New(
			s.Config, s.ConfigPath, s.Catalog, s.Auth, 80, 24,
		),
		detailView: detail.New(detail.Stores{
			Auth:     s.Auth,
			Projects: s.Projects,
			Invoices: s.Invoices,
			Todos:    s.Todos,
		}, k, 80, 24),
		helpView: helpview.New(k, 80, 24),
	}
}

// Init starts the refresher. Its first session result decides between the
// sign-in screen and the dashboard.
func (m Model) Init() tea.Cmd {
	return m.services.Refresher.Start()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.loginView.SetSize(msg.Width, msg.Height)
		m.projectView.SetSize(w, h)
		m.invoiceView.SetSize(w, h)
		m.todoView.SetSize(w, h)
		m.settingsView.SetSize(w*2/3, h)
		m.detailView.SetSize(w*2/3, h-6)
		m.helpView.SetSize(w, h)
		return m, nil

	case appsync.RefreshResultMsg:
		cmd := m.handleRefresh(msg)
		return m, tea.Batch(cmd, m.services.Refresher.WaitForNextResult())

	case login.LoggedInMsg:
		m.notice = msg.Message
		return m, m.enterDashboard()

	case loggedOutMsg:
		return m, m.enterLogin()

	case configview.SettingsSavedMsg:
		m.services.Config = msg.Config
		var cmd tea.Cmd
		m.settingsView, cmd = m.settingsView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.broadcast(msg)
}

// broadcast hands a non-key message to every child. Each child only acts on
// its own result types.
func (m Model) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.currentView == ViewLogin {
		m.loginView, cmd = m.loginView.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.projectView, cmd = m.projectView.Update(msg)
	cmds = append(cmds, cmd)
	m.invoiceView, cmd = m.invoiceView.Update(msg)
	cmds = append(cmds, cmd)
	m.todoView, cmd = m.todoView.Update(msg)
	cmds = append(cmds, cmd)

	if m.services.UI.ShowSettings() {
		m.settingsView, cmd = m.settingsView.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.services.UI.ShowBasicData() {
		m.detailView, cmd = m.detailView.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m.checkSession(tea.Batch(cmds...))
}

// checkSession leaves the dashboard once any store has ended the session.
func (m Model) checkSession(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if (m.currentView == ViewDashboard || m.currentView == ViewHelp) && !m.services.Auth.IsLoggedIn() {
		return m, tea.Batch(cmd, m.enterLogin())
	}
	return m, cmd
}

func (m *Model) handleRefresh(msg appsync.RefreshResultMsg) tea.Cmd {
	if msg.Job != appsync.JobSession {
		return nil
	}
	loggedIn := m.services.Auth.IsLoggedIn()
	switch {
	case m.currentView == ViewStarting && loggedIn:
		return m.enterDashboard()
	case m.currentView == ViewStarting:
		return m.enterLogin()
	case m.currentView != ViewLogin && !loggedIn:
		return m.enterLogin()
	}
	return nil
}

func (m *Model) enterDashboard() tea.Cmd {
	m.currentView = ViewDashboard
	m.services.UI.CloseAllModals()

	ctx := context.Background()
	m.services.Projects.Warm(ctx)
	m.services.Invoices.Warm(ctx)
	m.services.Todos.Warm(ctx)

	return tea.Batch(
		m.projectView.Init(),
		m.invoiceView.Init(),
		m.todoView.Init(),
	)
}

func (m *Model) enterLogin() tea.Cmd {
	m.currentView = ViewLogin
	m.activeTab = TabProjects
	m.services.UI.CloseAllModals()
	m.services.Projects.Reset()
	m.services.Invoices.Reset()
	m.services.Todos.Reset()
	return m.loginView.Init()
}

func (m Model) activeBusy() bool {
	switch m.activeTab {
	case TabProjects:
		return m.projectView.Busy()
	case TabInvoices:
		return m.invoiceView.Busy()
	default:
		return m.todoView.Busy()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.services.Refresher.Stop()
		return m, tea.Quit
	}

	switch m.currentView {
	case ViewStarting:
		return m, nil
	case ViewLogin:
		var cmd tea.Cmd
		m.loginView, cmd = m.loginView.Update(msg)
		return m, cmd
	case ViewHelp:
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
		}
		return m, nil
	}

	uiStore := m.services.UI

	// Modals take the keyboard; esc closes them all.
	if uiStore.AnyOpen() {
		if key.Matches(msg, m.keys.Back) {
			uiStore.CloseAllModals()
			return m, nil
		}
		var cmd tea.Cmd
		if uiStore.ShowSettings() {
			m.settingsView, cmd = m.settingsView.Update(msg)
		} else {
			m.detailView, cmd = m.detailView.Update(msg)
		}
		return m.checkSession(cmd)
	}

	m.notice = ""

	if !m.activeBusy() {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.services.Refresher.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.previousView = m.currentView
			m.currentView = ViewHelp
			m.helpView.SetTab(tabLabels[m.activeTab])
			return m, nil

		case key.Matches(msg, m.keys.NextTab):
			m.activeTab = (m.activeTab + 1) % Tab(len(tabLabels))
			return m, nil

		case key.Matches(msg, m.keys.PrevTab):
			m.activeTab = (m.activeTab + Tab(len(tabLabels)) - 1) % Tab(len(tabLabels))
			return m, nil

		case key.Matches(msg, m.keys.Settings):
			uiStore.ToggleSettings()
			if uiStore.ShowSettings() {
				return m, m.settingsView.Open()
			}
			return m, nil

		case key.Matches(msg, m.keys.BasicData):
			uiStore.ToggleBasicData()
			if uiStore.ShowBasicData() {
				m.detailView.Open()
			}
			return m, nil

		case key.Matches(msg, m.keys.Logout):
			return m, m.logout()

		case key.Matches(msg, m.keys.Refresh):
			m.services.Refresher.RefreshAll()
			m.clearErrors()
		}
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabProjects:
		m.projectView, cmd = m.projectView.Update(msg)
	case TabInvoices:
		m.invoiceView, cmd = m.invoiceView.Update(msg)
	case TabTodos:
		m.todoView, cmd = m.todoView.Update(msg)
	}
	return m.checkSession(cmd)
}

func (m Model) clearErrors() {
	m.services.Auth.ClearError()
	m.services.Projects.ClearError()
	m.services.Invoices.ClearError()
	m.services.Todos.ClearError()
}

func (m Model) logout() tea.Cmd {
	auth := m.services.Auth
	return func() tea.Msg {
		auth.Logout(context.Background())
		return loggedOutMsg{}
	}
}

// View renders the current screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.currentView {
	case ViewStarting:
		return lipgloss.Place(m.layout.Width, m.layout.Height, lipgloss.Center, lipgloss.Center,
			theme.DimmedStyle.Render("Checking session..."))
	case ViewLogin:
		return lipgloss.Place(m.layout.Width, m.layout.Height, lipgloss.Center, lipgloss.Center,
			m.loginView.View())
	}

	header := m.layout.RenderHeader("berrydesk", m.headerStatus())
	tabs := m.layout.RenderTabs(tabLabels, int(m.activeTab))

	var content string
	uiStore := m.services.UI
	switch {
	case m.currentView == ViewHelp:
		content = m.helpView.View()
	case uiStore.ShowSettings():
		content = m.layout.RenderModal("Settings", m.settingsView.View())
	case uiStore.ShowBasicData():
		content = m.layout.RenderModal("Basic data", m.detailView.View())
	default:
		content = m.activeView()
	}

	status := m.layout.RenderStatusBar(m.hints(), m.errorText())
	return m.layout.RenderWithFrame(header, tabs, content, status)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case TabInvoices:
		return m.invoiceView.View()
	case TabTodos:
		return m.todoView.View()
	default:
		return m.projectView.View()
	}
}

func (m Model) headerStatus() string {
	s := m.services
	status := s.Auth.UserName()
	if stats := s.Todos.Stats(); stats.PendingTodos > 0 {
		status = fmt.Sprintf("%s · %d pending", status, stats.PendingTodos)
	}
	if s.Auth.Loading() || s.Projects.Loading() || s.Invoices.Loading() || s.Todos.Loading() {
		status += " · loading"
	}
	return status
}

// errorText returns the most relevant store error: the session first, then
// the active tab.
func (m Model) errorText() string {
	s := m.services
	if e := s.Auth.Error(); e != "" {
		return e
	}
	switch m.activeTab {
	case TabProjects:
		return s.Projects.Error()
	case TabInvoices:
		return s.Invoices.Error()
	default:
		return s.Todos.Error()
	}
}

func (m Model) hints() string {
	if m.notice != "" {
		return m.notice
	}
	switch {
	case m.currentView == ViewHelp:
		return "? close help | esc back"
	case m.services.UI.AnyOpen():
		return "esc close"
	}
	return m.helpView.ShortView()
}

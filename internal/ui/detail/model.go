package detail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/berrydesk/internal/keys"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/state"
	"github.com/nhle/berrydesk/internal/theme"
	"github.com/nhle/berrydesk/internal/ui"
)

// Stores is the read side the basic data panel summarizes.
type Stores struct {
	Auth     *state.AuthStore
	Projects *state.ProjectStore
	Invoices *state.InvoiceStore
	Todos    *state.TodoStore
}

type profileSavedMsg struct {
	message string
	err     error
}

type profileBindings struct {
	username       string
	email          string
	influencerName string
	address        string
}

// Model is the basic data panel: the account profile and the business
// totals across projects, invoices and todos.
type Model struct {
	stores    Stores
	keys      *keys.KeyMap
	viewport  viewport.Model
	form      *huh.Form
	fb        *profileBindings
	editing   bool
	statusMsg string
	now       func() time.Time
	width     int
	height    int
}

// New creates the basic data panel.
func New(s Stores, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		stores:   s,
		keys:     k,
		viewport: vp,
		fb:       &profileBindings{},
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Open refreshes the panel content.
func (m *Model) Open() {
	m.editing = false
	m.statusMsg = ""
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Editing reports whether the profile form has the keyboard.
func (m Model) Editing() bool {
	return m.editing
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case profileSavedMsg:
		m.editing = false
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = msg.message
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tea.KeyMsg:
		if !m.editing && key.Matches(msg, m.keys.Edit) {
			return m, m.startEdit()
		}
	}

	if m.editing {
		return m.updateForm(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) startEdit() tea.Cmd {
	*m.fb = profileBindings{}
	if u := m.stores.Auth.User(); u != nil {
		m.fb.username = u.Username
		m.fb.email = u.Email
		m.fb.influencerName = u.InfluencerName
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(ui.ValidateRequired("Username")),
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(ui.ValidateRequired("Email")),
			huh.NewInput().
				Title("Influencer name").
				Description("Printed on invoices.").
				Value(&m.fb.influencerName),
			huh.NewText().
				Title("Address").
				Description("Printed on invoices.").
				Value(&m.fb.address),
		),
	).WithWidth(ui.FormWidth(m.width))
	m.editing = true
	return m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m, m.saveProfile()
	case huh.StateAborted:
		m.editing = false
		return m, nil
	}
	return m, cmd
}

func (m Model) saveProfile() tea.Cmd {
	auth := m.stores.Auth
	data := model.ProfileUpdate{
		Username:          strings.TrimSpace(m.fb.username),
		Email:             strings.TrimSpace(m.fb.email),
		InfluencerName:    strings.TrimSpace(m.fb.influencerName),
		InfluencerAddress: strings.TrimSpace(m.fb.address),
	}
	return func() tea.Msg {
		message, err := auth.UpdateUserProfile(context.Background(), data)
		return profileSavedMsg{message: message, err: err}
	}
}

// View renders the panel body.
func (m Model) View() string {
	if m.editing && m.form != nil {
		return m.form.View()
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
	}
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("e edit profile | j/k scroll | esc close"))
	return b.String()
}

func (m Model) renderContent() string {
	var b strings.Builder

	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(18)
	valueStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	section := func(title string) {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBerry).Render(title))
		b.WriteString("\n")
	}

	section("Account")
	if u := m.stores.Auth.User(); u != nil {
		row("Username", u.Username)
		row("Email", u.Email)
		row("Influencer name", u.InfluencerName)
		row("Plan", u.PlanType)
		if u.CreatedAt != nil {
			row("Member since", u.CreatedAt.Format(model.DateLayout))
		}
	} else {
		row("Status", "not signed in")
	}

	p := m.stores.Projects
	section("Projects")
	row("Total", fmt.Sprintf("%d", p.Pagination().TotalCount))
	row("On this page", fmt.Sprintf("%d", p.TotalCount()))
	row("Proposed", fmt.Sprintf("%d", p.ProposedCount()))
	row("Contracted", fmt.Sprintf("%d", p.ContractedCount()))
	row("Completed", fmt.Sprintf("%d", p.CompletedCount()))
	row("Amount", model.Amount(p.TotalAmount()).Yen())

	st := m.stores.Invoices.Stats()
	section("Invoices")
	row("Total", fmt.Sprintf("%d", m.stores.Invoices.TotalInvoices()))
	for _, s := range model.InvoiceStatuses {
		row(strings.ToUpper(s[:1])+s[1:], fmt.Sprintf("%d", st.Count(s)))
	}
	row("Billed", model.Amount(st.TotalAmount).Yen())
	row("Paid", model.Amount(st.PaidAmount).Yen())

	t := m.stores.Todos
	ts := t.Stats()
	section("Todos")
	row("Pending", fmt.Sprintf("%d", ts.PendingTodos))
	row("Due in 3 days", fmt.Sprintf("%d", ts.UpcomingTodos))
	row("High priority", fmt.Sprintf("%d", len(t.HighPriority())))
	row("Completed", fmt.Sprintf("%d", len(t.Completed())))
	for _, todo := range t.Upcoming(m.now()) {
		b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf("  %s  %s", todo.DueDate.String(), todo.Title)))
		b.WriteString("\n")
	}

	return b.String()
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}

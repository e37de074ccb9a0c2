package login

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/berrydesk/internal/state"
	"github.com/nhle/berrydesk/internal/theme"
	"github.com/nhle/berrydesk/internal/ui"
)

const (
	actionLogin    = "login"
	actionRegister = "register"
)

// LoggedInMsg is dispatched once the session is established.
type LoggedInMsg struct {
	Message string
}

// resultMsg carries the outcome of a login or register call.
type resultMsg struct {
	message string
	err     error
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	action   string
	username string
	email    string
	password string
	remember bool
}

// Model is the sign-in screen.
type Model struct {
	auth    *state.AuthStore
	form    *huh.Form
	fb      *formBindings
	pending bool
	width   int
	height  int
}

// New creates the sign-in screen.
func New(auth *state.AuthStore, width, height int) Model {
	return Model{
		auth:   auth,
		fb:     &formBindings{action: actionLogin, remember: true},
		width:  width,
		height: height,
	}
}

// Init builds a fresh form.
func (m *Model) Init() tea.Cmd {
	m.fb.password = ""
	m.pending = false
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	isLogin := func() bool { return m.fb.action == actionLogin }

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("berrydesk").
				Options(
					huh.NewOption("Log in", actionLogin),
					huh.NewOption("Create an account", actionRegister),
				).
				Value(&m.fb.action),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(ui.ValidateRequired("Username")),
		).WithHideFunc(isLogin),
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fb.email).
				Validate(ui.ValidateRequired("Email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(ui.ValidateRequired("Password")),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Remember this device?").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.remember),
		).WithHideFunc(func() bool { return !isLogin() }),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

// Update handles messages for the sign-in screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case resultMsg:
		m.pending = false
		if msg.err != nil {
			// The store keeps the message; start over with the same email.
			return m, m.Init()
		}
		message := msg.message
		return m, func() tea.Msg { return LoggedInMsg{Message: message} }
	}

	if m.form == nil || m.pending {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.pending = true
		return m, m.submit()
	case huh.StateAborted:
		return m, m.Init()
	}
	return m, cmd
}

func (m Model) submit() tea.Cmd {
	auth := m.auth
	fb := *m.fb
	email := strings.TrimSpace(fb.email)
	return func() tea.Msg {
		ctx := context.Background()
		var (
			message string
			err     error
		)
		if fb.action == actionRegister {
			message, err = auth.Register(ctx, strings.TrimSpace(fb.username), email, fb.password)
		} else {
			message, err = auth.Login(ctx, email, fb.password, fb.remember)
		}
		return resultMsg{message: message, err: err}
	}
}

// View renders the sign-in screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Sign in to berrydesk"))
	b.WriteString("\n")

	if errText := m.auth.Error(); errText != "" {
		b.WriteString(theme.ErrorStyle.Render(errText))
		b.WriteString("\n\n")
	}

	switch {
	case m.pending:
		b.WriteString(theme.DimmedStyle.Render("Signing in..."))
	case m.form != nil:
		b.WriteString(m.form.View())
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

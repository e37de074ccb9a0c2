package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/berrydesk/internal/i18n"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/state"
	"github.com/nhle/berrydesk/internal/theme"
	"github.com/nhle/berrydesk/internal/ui"
)

// Mode is the current screen of the settings modal.
type Mode int

const (
	ModeMenu     Mode = iota // Choose what to change
	ModeDisplay              // Language, theme and refresh interval
	ModePassword             // Change password
	ModeSaving               // Waiting for the server or the disk
)

const (
	choiceDisplay  = "display"
	choicePassword = "password"
)

// SettingsSavedMsg reports that the display settings were written.
type SettingsSavedMsg struct {
	Config model.AppConfig
}

type displaySavedMsg struct {
	cfg model.AppConfig
	err error
}

type passwordChangedMsg struct {
	message string
	err     error
}

type formBindings struct {
	choice   string
	language string
	theme    string
	refresh  string
	current  string
	next     string
	confirm  string
}

// Model is the settings modal.
type Model struct {
	mode      Mode
	cfg       model.AppConfig
	cfgPath   string
	catalog   *i18n.Catalog
	auth      *state.AuthStore
	form      *huh.Form
	fb        *formBindings
	spinner   spinner.Model
	statusMsg string
	width     int
	height    int
}

// New creates the settings modal.
func New(cfg model.AppConfig, cfgPath string, catalog *i18n.Catalog, auth *state.AuthStore, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg:     cfg,
		cfgPath: cfgPath,
		catalog: catalog,
		auth:    auth,
		fb:      &formBindings{},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Open resets the modal to its menu.
func (m *Model) Open() tea.Cmd {
	m.statusMsg = ""
	return m.showMenu()
}

func (m *Model) showMenu() tea.Cmd {
	m.mode = ModeMenu
	m.fb.choice = choiceDisplay
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Settings").
				Options(
					huh.NewOption("Display", choiceDisplay),
					huh.NewOption("Change password", choicePassword),
				).
				Value(&m.fb.choice),
		),
	).WithWidth(ui.FormWidth(m.width)).WithShowHelp(false)
	return m.form.Init()
}

func (m *Model) showDisplay() tea.Cmd {
	m.mode = ModeDisplay
	m.fb.language = m.cfg.Display.Language
	m.fb.theme = m.cfg.Display.Theme
	m.fb.refresh = strconv.Itoa(m.cfg.Display.RefreshIntervalSec)

	langOpts := make([]huh.Option[string], 0, len(i18n.SupportedLanguages))
	for _, l := range i18n.SupportedLanguages {
		langOpts = append(langOpts, huh.NewOption(l, l))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Message language").
				Options(langOpts...).
				Value(&m.fb.language),
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("default", "default"),
					huh.NewOption("dark", "dark"),
					huh.NewOption("light", "light"),
				).
				Value(&m.fb.theme),
			huh.NewInput().
				Title("Background refresh (seconds)").
				Value(&m.fb.refresh).
				Validate(validateInterval),
		),
	).WithWidth(ui.FormWidth(m.width))
	return m.form.Init()
}

func validateInterval(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 10 {
		return fmt.Errorf("enter a number of seconds, at least 10")
	}
	return nil
}

func (m *Model) showPassword() tea.Cmd {
	m.mode = ModePassword
	m.fb.current, m.fb.next, m.fb.confirm = "", "", ""

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Current password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.current).
				Validate(ui.ValidateRequired("Current password")),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.next).
				Validate(ui.ValidateRequired("New password")),
			huh.NewInput().
				Title("Confirm new password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.confirm).
				Validate(func(s string) error {
					if s != m.fb.next {
						return fmt.Errorf("passwords do not match")
					}
					return nil
				}),
		),
	).WithWidth(ui.FormWidth(m.width))
	return m.form.Init()
}

// Update handles messages for the settings modal.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.mode != ModeSaving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case displaySavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, m.showMenu()
		}
		m.cfg = msg.cfg
		m.statusMsg = "Settings saved"
		cfg := msg.cfg
		return m, tea.Batch(m.showMenu(), func() tea.Msg { return SettingsSavedMsg{Config: cfg} })

	case passwordChangedMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = msg.message
		}
		return m, m.showMenu()
	}

	if m.form == nil || m.mode == ModeSaving {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.complete()
	case huh.StateAborted:
		return m, m.showMenu()
	}
	return m, cmd
}

func (m Model) complete() (Model, tea.Cmd) {
	switch m.mode {
	case ModeMenu:
		if m.fb.choice == choicePassword {
			return m, m.showPassword()
		}
		return m, m.showDisplay()

	case ModeDisplay:
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.saveDisplay())

	case ModePassword:
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.changePassword())
	}
	return m, nil
}

func (m Model) saveDisplay() tea.Cmd {
	cfg := m.cfg
	path := m.cfgPath
	catalog := m.catalog
	cfg.Display.Language = m.fb.language
	cfg.Display.Theme = m.fb.theme
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.refresh)); err == nil {
		cfg.Display.RefreshIntervalSec = n
	}
	return func() tea.Msg {
		if err := model.SaveConfig(path, &cfg); err != nil {
			return displaySavedMsg{err: err}
		}
		if catalog != nil {
			catalog.SetLanguage(cfg.Display.Language)
		}
		return displaySavedMsg{cfg: cfg}
	}
}

func (m Model) changePassword() tea.Cmd {
	auth := m.auth
	data := model.PasswordChange{
		CurrentPassword: m.fb.current,
		NewPassword:     m.fb.next,
		ConfirmPassword: m.fb.confirm,
	}
	return func() tea.Msg {
		message, err := auth.ChangePassword(context.Background(), data)
		return passwordChangedMsg{message: message, err: err}
	}
}

// View renders the modal body.
func (m Model) View() string {
	var b strings.Builder

	if m.mode == ModeSaving {
		b.WriteString(m.spinner.View() + " Saving...")
	} else if m.form != nil {
		b.WriteString(m.form.View())
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
	}
	if m.mode == ModeDisplay {
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render("The refresh interval applies from the next start."))
	}
	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("esc close"))
	return b.String()
}

// Mode returns the current screen.
func (m Model) Mode() Mode {
	return m.mode
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

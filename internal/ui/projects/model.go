package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/berrydesk/internal/keys"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/state"
	"github.com/nhle/berrydesk/internal/theme"
	"github.com/nhle/berrydesk/internal/ui"
)

// InvoiceCreatedMsg signals that an invoice was generated from a project.
type InvoiceCreatedMsg struct {
	Invoice *model.Invoice
}

type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
	modeConfirmDelete
)

// sortOption is one step of the sort cycle.
type sortOption struct {
	by, order, label string
}

var sortCycle = []sortOption{
	{"created_at", "desc", "newest"},
	{"deadline", "asc", "deadline"},
	{"amount", "desc", "amount"},
	{"company_name", "asc", "company"},
}

// statusCycle starts with "" for all statuses.
var statusCycle = append([]string{""}, model.ProjectStatuses...)

type formBindings struct {
	company     string
	name        string
	amount      string
	deadline    string
	description string
	notes       string
	status      string
	confirm     bool
}

type loadedMsg struct{ err error }

type actionMsg struct {
	notice string
	err    error
}

// Model lists the user's projects and edits them.
type Model struct {
	mode        mode
	projects    *state.ProjectStore
	invoices    *state.InvoiceStore
	keys        *keys.KeyMap
	selectedIdx int
	editingID   int64
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	search      textinput.Model
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates the projects view.
func New(p *state.ProjectStore, inv *state.InvoiceStore, k *keys.KeyMap, width, height int) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "company or project name"
	ti.CharLimit = 100

	return Model{
		mode:     modeList,
		projects: p,
		invoices: inv,
		keys:     k,
		search:   ti,
		fb:       &formBindings{},
		width:    width,
		height:   height,
	}
}

// Init loads the first page.
func (m Model) Init() tea.Cmd {
	return m.load(func(ctx context.Context) error {
		return m.projects.FetchProjects(ctx, nil)
	})
}

// Busy reports whether a form or the search box has the keyboard.
func (m Model) Busy() bool {
	return m.mode != modeList
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.clampSelection()
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = msg.notice
		}
		m.mode = modeList
		m.clampSelection()
		return m, nil

	case InvoiceCreatedMsg:
		if msg.Invoice != nil {
			m.statusMsg = fmt.Sprintf("Invoice %s created", msg.Invoice.InvoiceNumber)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) clampSelection() {
	n := len(m.projects.Projects())
	if m.selectedIdx >= n {
		m.selectedIdx = n - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

func (m Model) selected() (model.Project, bool) {
	list := m.projects.Projects()
	if m.selectedIdx < 0 || m.selectedIdx >= len(list) {
		return model.Project{}, false
	}
	return list[m.selectedIdx], true
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.updateSearch(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	n := len(m.projects.Projects())
	pg := m.projects.Pagination()

	switch {
	case key.Matches(msg, m.keys.Down):
		if n > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % n
		}

	case key.Matches(msg, m.keys.Up):
		if n > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = n - 1
			}
		}

	case key.Matches(msg, m.keys.NextPage):
		if pg.HasNext {
			m.selectedIdx = 0
			return m, m.load(func(ctx context.Context) error {
				return m.projects.GoToPage(ctx, pg.CurrentPage+1)
			})
		}

	case key.Matches(msg, m.keys.PrevPage):
		if pg.HasPrev {
			m.selectedIdx = 0
			return m, m.load(func(ctx context.Context) error {
				return m.projects.GoToPage(ctx, pg.CurrentPage-1)
			})
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Init()

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.projects.Filters().Search)
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.CycleFilter):
		next := nextStatus(m.projects.Filters().Status)
		m.selectedIdx = 0
		return m, m.load(func(ctx context.Context) error {
			return m.projects.FilterByStatus(ctx, next)
		})

	case key.Matches(msg, m.keys.CycleSort):
		next := nextSort(m.projects.Filters())
		m.selectedIdx = 0
		return m, m.load(func(ctx context.Context) error {
			return m.projects.ChangeSort(ctx, next.by, next.order)
		})

	case key.Matches(msg, m.keys.ClearFilters):
		def := model.DefaultProjectFilters()
		m.projects.UpdateFilters(state.ProjectFilterUpdate{
			Status: &def.Status,
			Search: &def.Search,
			SortBy: &def.SortBy,
			Order:  &def.Order,
		})
		m.selectedIdx = 0
		return m, m.Init()

	case key.Matches(msg, m.keys.New):
		m.isNew = true
		m.editingID = 0
		*m.fb = formBindings{status: model.ProjectStatusProposed}
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		p, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.isNew = false
		m.editingID = p.ID
		*m.fb = formBindings{
			company:     p.CompanyName,
			name:        p.ProjectName,
			deadline:    p.Deadline.String(),
			description: p.Description,
			notes:       p.Notes,
			status:      p.Status,
		}
		if p.Amount != 0 {
			m.fb.amount = fmt.Sprintf("%.0f", float64(p.Amount))
		}
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.selected(); !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()

	case key.Matches(msg, m.keys.Invoice):
		p, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.generateInvoice(p.ID)
	}
	return m, nil
}

func nextStatus(current string) string {
	for i, s := range statusCycle {
		if s == current {
			return statusCycle[(i+1)%len(statusCycle)]
		}
	}
	return statusCycle[0]
}

func nextSort(f model.ProjectFilters) sortOption {
	for i, s := range sortCycle {
		if s.by == f.SortBy && s.order == f.Order {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

func sortLabel(f model.ProjectFilters) string {
	for _, s := range sortCycle {
		if s.by == f.SortBy && s.order == f.Order {
			return s.label
		}
	}
	return f.SortBy + " " + f.Order
}

func (m Model) updateSearch(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		term := strings.TrimSpace(m.search.Value())
		m.search.Blur()
		m.mode = modeList
		m.selectedIdx = 0
		return m, m.load(func(ctx context.Context) error {
			return m.projects.Search(ctx, term)
		})
	case tea.KeyEsc:
		m.search.Blur()
		m.mode = modeList
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) buildForm() *huh.Form {
	statusOpts := make([]huh.Option[string], 0, len(model.ProjectStatuses))
	for _, s := range model.ProjectStatuses {
		statusOpts = append(statusOpts, huh.NewOption(s, s))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Company").
				Placeholder("Sponsor company").
				Value(&m.fb.company).
				Validate(ui.ValidateRequired("Company")),
			huh.NewInput().
				Title("Project").
				Placeholder("Campaign name").
				Value(&m.fb.name).
				Validate(ui.ValidateRequired("Project")),
			huh.NewInput().
				Title("Amount (¥)").
				Placeholder("150000").
				Value(&m.fb.amount).
				Validate(ui.ValidateOptionalAmount),
			huh.NewInput().
				Title("Deadline").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.deadline).
				Validate(ui.ValidateOptionalDate),
			huh.NewSelect[string]().
				Title("Status").
				Options(statusOpts...).
				Value(&m.fb.status),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Description").
				Value(&m.fb.description),
			huh.NewText().
				Title("Notes").
				Value(&m.fb.notes),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

func (m Model) buildConfirmForm() *huh.Form {
	p, _ := m.selected()
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete project %q?", p.Title())).
				Description("Invoices generated from it are kept.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m, m.save()
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		p, ok := m.selected()
		if m.fb.confirm && ok {
			return m, m.remove(p.ID)
		}
		m.mode = modeList
		return m, nil
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateActive(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	case modeSearch:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the projects view.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	f := m.projects.Filters()
	pg := m.projects.Pagination()

	b.WriteString(theme.TitleStyle.Render("Projects"))
	b.WriteString("\n")
	b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf(
		"proposed %d · contracted %d · completed %d · page total %s",
		m.projects.ProposedCount(),
		m.projects.ContractedCount(),
		m.projects.CompletedCount(),
		model.Amount(m.projects.TotalAmount()).Yen(),
	)))
	b.WriteString("\n")

	status := f.Status
	if status == "" {
		status = "all"
	}
	filterLine := fmt.Sprintf("status: %s | sort: %s", status, sortLabel(f))
	if f.Search != "" {
		filterLine += fmt.Sprintf(" | search: %q", f.Search)
	}
	b.WriteString(theme.HelpStyle.Render(filterLine))
	b.WriteString("\n\n")

	if m.mode == modeSearch {
		b.WriteString(m.search.View())
		b.WriteString("\n\n")
	}

	list := m.projects.Projects()
	if len(list) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render("No projects. Press 'n' to create one."))
	} else {
		for i, p := range list {
			b.WriteString(m.renderRow(p, i == m.selectedIdx))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf(
		"page %d/%d · %d projects", pg.CurrentPage, max(pg.TotalPages, 1), pg.TotalCount,
	)))

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render(
		"n new | e edit | d delete | i invoice | / search | f status | o sort | c clear | h/l page",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) renderRow(p model.Project, selected bool) string {
	deadline := p.Deadline.String()
	if deadline == "" {
		deadline = "-"
	}
	if p.IsOverdue {
		deadline = theme.OverdueStyle.Render(deadline + " overdue")
	}

	label := fmt.Sprintf("%-24s %-28s %12s  %s %s",
		ui.Truncate(p.CompanyName, 24),
		ui.Truncate(p.ProjectName, 28),
		p.Amount.Yen(),
		theme.ProjectStatusStyle(p.Status).Render(p.Status),
		deadline,
	)
	if selected {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.Width = width - 8
}

func (m Model) load(fetch func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: fetch(context.Background())}
	}
}

func (m Model) input() model.ProjectInput {
	in := model.ProjectInput{
		CompanyName: strings.TrimSpace(m.fb.company),
		ProjectName: strings.TrimSpace(m.fb.name),
		Deadline:    strings.TrimSpace(m.fb.deadline),
		Description: m.fb.description,
		Notes:       m.fb.notes,
		Status:      m.fb.status,
	}
	if amt, err := ui.ParseAmount(m.fb.amount); err == nil {
		in.Amount = &amt
	}
	return in
}

func (m Model) save() tea.Cmd {
	s := m.projects
	in := m.input()
	id := m.editingID
	isNew := m.isNew
	return func() tea.Msg {
		ctx := context.Background()
		if isNew {
			return actionMsg{notice: "Project created", err: s.CreateProject(ctx, in)}
		}
		return actionMsg{notice: "Project saved", err: s.UpdateProject(ctx, id, in)}
	}
}

func (m Model) remove(id int64) tea.Cmd {
	s := m.projects
	return func() tea.Msg {
		return actionMsg{notice: "Project deleted", err: s.DeleteProject(context.Background(), id)}
	}
}

func (m Model) generateInvoice(projectID int64) tea.Cmd {
	inv := m.invoices
	return func() tea.Msg {
		created, err := inv.CreateInvoiceFromProject(context.Background(), projectID)
		if err != nil {
			return actionMsg{err: err}
		}
		return InvoiceCreatedMsg{Invoice: created}
	}
}

package todos

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/berrydesk/internal/keys"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/state"
	"github.com/nhle/berrydesk/internal/theme"
	"github.com/nhle/berrydesk/internal/ui"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
)

var statusCycle = []string{"", model.TodoStatusPending, model.TodoStatusCompleted}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	dueDate     string
	priority    string
	importance  int
	company     string
	notes       string
	projectID   int64
	invoiceID   int64
	confirm     bool
}

type loadedMsg struct{ err error }

// optionsLoadedMsg opens the form once the pickers are populated.
type optionsLoadedMsg struct{}

type actionMsg struct {
	notice string
	err    error
}

// Model lists todos ranked by urgency and importance.
type Model struct {
	mode        mode
	todos       *state.TodoStore
	keys        *keys.KeyMap
	filter      model.TodoFilter
	selectedIdx int
	editingID   int64
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	now         func() time.Time
	width       int
	height      int
}

// New creates the todos view.
func New(s *state.TodoStore, k *keys.KeyMap, width, height int) Model {
	return Model{
		todos:  s,
		keys:   k,
		fb:     &formBindings{},
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// Init loads the listing and the stats.
func (m Model) Init() tea.Cmd {
	return m.fetch()
}

// Busy reports whether a form has the keyboard.
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

	case optionsLoadedMsg:
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case actionMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		} else {
			m.statusMsg = msg.notice
		}
		m.mode = modeList
		m.clampSelection()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) clampSelection() {
	n := len(m.todos.Todos())
	if m.selectedIdx >= n {
		m.selectedIdx = n - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

func (m Model) selected() (model.Todo, bool) {
	list := m.todos.Sorted()
	if m.selectedIdx < 0 || m.selectedIdx >= len(list) {
		return model.Todo{}, false
	}
	return list[m.selectedIdx], true
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}

	n := len(m.todos.Todos())

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

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch()

	case key.Matches(msg, m.keys.CycleFilter):
		m.filter.Status = nextStatus(m.filter.Status)
		m.selectedIdx = 0
		return m, m.fetch()

	case key.Matches(msg, m.keys.ClearFilters):
		m.filter = model.TodoFilter{}
		m.selectedIdx = 0
		return m, m.fetch()

	case key.Matches(msg, m.keys.New):
		m.isNew = true
		m.editingID = 0
		*m.fb = formBindings{
			priority:   model.TodoPriorityMedium,
			importance: model.DefaultTodoImportance,
		}
		return m, m.loadOptions()

	case key.Matches(msg, m.keys.Edit):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.todos.SetCurrent(&t)
		m.isNew = false
		m.editingID = t.ID
		*m.fb = formBindings{
			title:       t.Title,
			description: t.Description,
			dueDate:     t.DueDate.String(),
			priority:    t.Priority,
			importance:  t.EffectiveImportance(),
			company:     t.CompanyName,
			notes:       t.Notes,
		}
		if t.ProjectID != nil {
			m.fb.projectID = *t.ProjectID
		}
		if t.InvoiceID != nil {
			m.fb.invoiceID = *t.InvoiceID
		}
		return m, m.loadOptions()

	case key.Matches(msg, m.keys.Complete):
		if t, ok := m.selected(); ok {
			return m, m.complete(t)
		}

	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.selected(); !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
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

func (m Model) buildForm() *huh.Form {
	projectOpts := []huh.Option[int64]{huh.NewOption("(none)", int64(0))}
	for _, o := range m.todos.ProjectOptions() {
		projectOpts = append(projectOpts, huh.NewOption(o.DisplayLabel(), o.Key()))
	}
	invoiceOpts := []huh.Option[int64]{huh.NewOption("(none)", int64(0))}
	for _, o := range m.todos.InvoiceOptions() {
		invoiceOpts = append(invoiceOpts, huh.NewOption(o.DisplayLabel(), o.Key()))
	}
	importanceOpts := make([]huh.Option[int], 0, 5)
	for i := 1; i <= 5; i++ {
		importanceOpts = append(importanceOpts, huh.NewOption(strconv.Itoa(i), i))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(ui.ValidateRequired("Title")),
			huh.NewText().
				Title("Description").
				Value(&m.fb.description),
			huh.NewInput().
				Title("Due date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.dueDate).
				Validate(ui.ValidateOptionalDate),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("High", model.TodoPriorityHigh),
					huh.NewOption("Medium", model.TodoPriorityMedium),
					huh.NewOption("Low", model.TodoPriorityLow),
				).
				Value(&m.fb.priority),
			huh.NewSelect[int]().
				Title("Importance").
				Options(importanceOpts...).
				Value(&m.fb.importance),
		),
		huh.NewGroup(
			huh.NewSelect[int64]().
				Title("Project").
				Options(projectOpts...).
				Value(&m.fb.projectID),
			huh.NewSelect[int64]().
				Title("Invoice").
				Options(invoiceOpts...).
				Value(&m.fb.invoiceID),
			huh.NewInput().
				Title("Company").
				Value(&m.fb.company),
			huh.NewText().
				Title("Notes").
				Value(&m.fb.notes),
		),
	).WithWidth(ui.FormWidth(m.width)).WithHeight(ui.FormHeight(m.height))
}

func (m Model) buildConfirmForm() *huh.Form {
	t, _ := m.selected()
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q?", t.Title)).
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
		t, ok := m.selected()
		if m.fb.confirm && ok {
			return m, m.remove(t.ID)
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
	}
	return m, nil
}

// View renders the todos view.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
	case modeConfirmDelete:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder
	now := m.now()
	stats := m.todos.Stats()

	b.WriteString(theme.TitleStyle.Render("Todos"))
	b.WriteString("\n")
	b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf(
		"pending %d · due within 3 days %d · high priority %d",
		stats.PendingTodos, stats.UpcomingTodos, len(m.todos.HighPriority()),
	)))
	b.WriteString("\n")

	status := m.filter.Status
	if status == "" {
		status = "all"
	}
	b.WriteString(theme.HelpStyle.Render("showing: " + status))
	b.WriteString("\n\n")

	upcoming := make(map[int64]bool)
	for _, t := range m.todos.Upcoming(now) {
		upcoming[t.ID] = true
	}

	list := m.todos.Sorted()
	if len(list) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render("Nothing to do. Press 'n' to add a todo."))
	}
	for i, t := range list {
		b.WriteString(renderRow(t, i == m.selectedIdx, upcoming[t.ID], now))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("n new | e edit | x complete | d delete | f status | c clear"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func renderRow(t model.Todo, selected, upcoming bool, now time.Time) string {
	check := "[ ]"
	if !t.IsPending() {
		check = "[x]"
	}

	due := t.DueDate.String()
	switch {
	case due == "":
	case t.IsPending() && t.DueDate.Before(model.NewDate(now).Time):
		due = theme.OverdueStyle.Render(due)
	case upcoming:
		due = theme.NoticeStyle.Render(due)
	}

	ref := t.ProjectName
	if ref == "" {
		ref = t.CompanyName
	}

	label := fmt.Sprintf("%s %s %-36s %d  %-20s %s",
		check,
		theme.PriorityStyle(t.Priority).Render(fmt.Sprintf("%-6s", t.Priority)),
		ui.Truncate(t.Title, 36),
		t.EffectiveImportance(),
		ui.Truncate(ref, 20),
		due,
	)

	switch {
	case selected:
		return theme.SelectedItemStyle.Render(label)
	case !t.IsPending():
		return theme.ListItemStyle.Inherit(theme.DimmedStyle).Render(label)
	default:
		return theme.ListItemStyle.Render(label)
	}
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) fetch() tea.Cmd {
	s := m.todos
	f := m.filter
	return func() tea.Msg {
		return loadedMsg{err: s.FetchTodos(context.Background(), f)}
	}
}

func (m Model) loadOptions() tea.Cmd {
	s := m.todos
	return func() tea.Msg {
		ctx := context.Background()
		s.FetchProjectOptions(ctx)
		s.FetchInvoiceOptions(ctx)
		return optionsLoadedMsg{}
	}
}

func (m Model) input() model.TodoInput {
	in := model.TodoInput{
		Title:       strings.TrimSpace(m.fb.title),
		Description: m.fb.description,
		DueDate:     strings.TrimSpace(m.fb.dueDate),
		Priority:    m.fb.priority,
		Importance:  m.fb.importance,
		CompanyName: strings.TrimSpace(m.fb.company),
		Notes:       m.fb.notes,
	}
	if m.fb.projectID != 0 {
		id := m.fb.projectID
		in.ProjectID = &id
	}
	if m.fb.invoiceID != 0 {
		id := m.fb.invoiceID
		in.InvoiceID = &id
	}
	return in
}

func (m Model) save() tea.Cmd {
	s := m.todos
	in := m.input()
	id := m.editingID
	isNew := m.isNew
	return func() tea.Msg {
		ctx := context.Background()
		if isNew {
			return actionMsg{notice: "Todo added", err: s.CreateTodo(ctx, in)}
		}
		return actionMsg{notice: "Todo saved", err: s.UpdateTodo(ctx, id, in)}
	}
}

func (m Model) complete(t model.Todo) tea.Cmd {
	s := m.todos
	notice := "Todo completed"
	if !t.IsPending() {
		notice = "Todo reopened"
	}
	return func() tea.Msg {
		return actionMsg{notice: notice, err: s.CompleteTodo(context.Background(), t.ID)}
	}
}

func (m Model) remove(id int64) tea.Cmd {
	s := m.todos
	return func() tea.Msg {
		return actionMsg{notice: "Todo deleted", err: s.DeleteTodo(context.Background(), id)}
	}
}

package invoices

import (
	"context"
	"fmt"
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

const perPage = 10

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	client      string
	contact     string
	project     string
	description string
	subtotal    string
	taxRate     string
	invoiceDate string
	dueDate     string
	notes       string
	confirm     bool
}

type loadedMsg struct{ err error }

type actionMsg struct {
	notice string
	err    error
}

// Model lists invoices with their aggregate stats.
type Model struct {
	mode        mode
	invoices    *state.InvoiceStore
	keys        *keys.KeyMap
	page        int
	selectedIdx int
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates the invoices view.
func New(s *state.InvoiceStore, k *keys.KeyMap, width, height int) Model {
	return Model{
		invoices: s,
		keys:     k,
		page:     1,
		fb:       &formBindings{},
		width:    width,
		height:   height,
	}
}

// Init loads the current page.
func (m Model) Init() tea.Cmd {
	return m.fetch(m.page)
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
		if msg.err == nil {
			m.page = m.invoices.Pagination().Page
		}
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

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) clampSelection() {
	n := len(m.invoices.Invoices())
	if m.selectedIdx >= n {
		m.selectedIdx = n - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

func (m Model) selected() (model.Invoice, bool) {
	list := m.invoices.Invoices()
	if m.selectedIdx < 0 || m.selectedIdx >= len(list) {
		return model.Invoice{}, false
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

	n := len(m.invoices.Invoices())
	pg := m.invoices.Pagination()

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
			return m, m.fetch(m.page + 1)
		}

	case key.Matches(msg, m.keys.PrevPage):
		if pg.HasPrev {
			m.selectedIdx = 0
			return m, m.fetch(m.page - 1)
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch(m.page)

	case key.Matches(msg, m.keys.New):
		today := time.Now().Format(model.DateLayout)
		*m.fb = formBindings{
			invoiceDate: today,
			taxRate:     "10",
		}
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.MarkPaid):
		if inv, ok := m.selected(); ok && inv.Status != model.InvoiceStatusPaid {
			return m, m.setStatus(inv.ID, model.InvoiceStatusPaid)
		}

	case key.Matches(msg, m.keys.MarkSent):
		if inv, ok := m.selected(); ok && inv.Status == model.InvoiceStatusDraft {
			return m, m.setStatus(inv.ID, model.InvoiceStatusSent)
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

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Client company").
				Value(&m.fb.client).
				Validate(ui.ValidateRequired("Client company")),
			huh.NewInput().
				Title("Client contact").
				Value(&m.fb.contact),
			huh.NewInput().
				Title("Project").
				Value(&m.fb.project),
			huh.NewInput().
				Title("Subtotal (¥)").
				Placeholder("100000").
				Value(&m.fb.subtotal).
				Validate(func(s string) error {
					if err := ui.ValidateRequired("Subtotal")(s); err != nil {
						return err
					}
					return ui.ValidateOptionalAmount(s)
				}),
			huh.NewInput().
				Title("Tax rate (%)").
				Value(&m.fb.taxRate).
				Validate(ui.ValidateOptionalAmount),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Invoice date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.invoiceDate).
				Validate(ui.ValidateOptionalDate),
			huh.NewInput().
				Title("Due date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.dueDate).
				Validate(ui.ValidateOptionalDate),
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
	inv, _ := m.selected()
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete invoice %s?", inv.InvoiceNumber)).
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
		return m, m.create()
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
		inv, ok := m.selected()
		if m.fb.confirm && ok {
			return m, m.remove(inv.ID)
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

// View renders the invoices view.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
	case modeConfirmDelete:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Invoices"))
	b.WriteString("\n")
	b.WriteString(theme.DimmedStyle.Render(StatsLine(m.invoices.Stats())))
	b.WriteString("\n\n")

	list := m.invoices.Invoices()
	if len(list) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render(
			"No invoices. Press 'n' to create one or 'i' on a project.",
		))
	}
	for i, inv := range list {
		b.WriteString(renderRow(inv, i == m.selectedIdx))
		b.WriteString("\n")
	}

	pg := m.invoices.Pagination()
	b.WriteString("\n")
	b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf(
		"page %d/%d · %d invoices", pg.Page, max(pg.Pages, 1), m.invoices.TotalInvoices(),
	)))

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.HelpStyle.Render("n new | s mark sent | p mark paid | d delete | h/l page"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// StatsLine summarizes the loaded invoices by status.
func StatsLine(st model.InvoiceStats) string {
	parts := make([]string, 0, len(model.InvoiceStatuses)+2)
	for _, s := range model.InvoiceStatuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, st.Count(s)))
	}
	parts = append(parts,
		"total "+model.Amount(st.TotalAmount).Yen(),
		"paid "+model.Amount(st.PaidAmount).Yen(),
	)
	return strings.Join(parts, " · ")
}

func renderRow(inv model.Invoice, selected bool) string {
	due := inv.DueDate.String()
	if due == "" {
		due = "-"
	}
	label := fmt.Sprintf("%-14s %-24s %12s  %s due %s",
		inv.InvoiceNumber,
		ui.Truncate(inv.ClientCompany, 24),
		inv.TotalAmount.Yen(),
		theme.InvoiceStatusStyle(inv.Status).Render(inv.Status),
		due,
	)
	if selected {
		return theme.SelectedItemStyle.Render(label)
	}
	return theme.ListItemStyle.Render(label)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) fetch(page int) tea.Cmd {
	s := m.invoices
	return func() tea.Msg {
		return loadedMsg{err: s.FetchInvoices(context.Background(), page, perPage)}
	}
}

func (m Model) create() tea.Cmd {
	s := m.invoices
	in := model.InvoiceInput{
		ClientCompany: strings.TrimSpace(m.fb.client),
		ClientContact: strings.TrimSpace(m.fb.contact),
		ProjectName:   strings.TrimSpace(m.fb.project),
		Description:   m.fb.description,
		InvoiceDate:   strings.TrimSpace(m.fb.invoiceDate),
		DueDate:       strings.TrimSpace(m.fb.dueDate),
		Status:        model.InvoiceStatusDraft,
		Notes:         m.fb.notes,
	}
	if v, err := ui.ParseAmount(m.fb.subtotal); err == nil {
		in.Subtotal = &v
	}
	if v, err := ui.ParseAmount(m.fb.taxRate); err == nil {
		in.TaxRate = &v
	}
	return func() tea.Msg {
		inv, err := s.CreateInvoice(context.Background(), in)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{notice: fmt.Sprintf("Invoice %s created", inv.InvoiceNumber)}
	}
}

func (m Model) setStatus(id int64, status string) tea.Cmd {
	s := m.invoices
	in := model.InvoiceInput{Status: status}
	if status == model.InvoiceStatusPaid {
		in.PaymentDate = time.Now().Format(model.DateLayout)
	}
	return func() tea.Msg {
		return actionMsg{notice: "Invoice marked " + status, err: s.UpdateInvoice(context.Background(), id, in)}
	}
}

func (m Model) remove(id int64) tea.Cmd {
	s := m.invoices
	return func() tea.Msg {
		return actionMsg{notice: "Invoice deleted", err: s.DeleteInvoice(context.Background(), id)}
	}
}

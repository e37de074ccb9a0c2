package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/berrydesk/internal/app"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/state"
	"github.com/nhle/berrydesk/internal/ui"
	"github.com/nhle/berrydesk/internal/ui/invoices"
)

type projectListOptions struct {
	status string
	search string
	sortBy string
	order  string
	page   int
}

type todoListOptions struct {
	status   string
	priority string
}

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"ls"},
	Short:   "List projects",
	Long:    "List projects with optional status, search and sort filters",
	RunE: withServices(func(cmd *cobra.Command, args []string, s *app.Services) error {
		f := cmd.Flags()
		var opts projectListOptions
		opts.status, _ = f.GetString("status")
		opts.search, _ = f.GetString("search")
		opts.sortBy, _ = f.GetString("sort")
		opts.order, _ = f.GetString("order")
		opts.page, _ = f.GetInt("page")
		return runProjects(cmd.Context(), cmd.OutOrStdout(), s, opts)
	}),
}

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "List invoices",
	RunE: withServices(func(cmd *cobra.Command, args []string, s *app.Services) error {
		page, _ := cmd.Flags().GetInt("page")
		return runInvoices(cmd.Context(), cmd.OutOrStdout(), s, page)
	}),
}

var todosCmd = &cobra.Command{
	Use:   "todos",
	Short: "List todos, most urgent first",
	RunE: withServices(func(cmd *cobra.Command, args []string, s *app.Services) error {
		var opts todoListOptions
		opts.status, _ = cmd.Flags().GetString("status")
		opts.priority, _ = cmd.Flags().GetString("priority")
		return runTodos(cmd.Context(), cmd.OutOrStdout(), s, opts)
	}),
}

func init() {
	projectsCmd.Flags().StringP("status", "s", "", "Filter by status: proposed, contracted, completed")
	projectsCmd.Flags().StringP("search", "q", "", "Search company and project names")
	projectsCmd.Flags().String("sort", "created_at", "Sort by: created_at, deadline, amount, company_name")
	projectsCmd.Flags().String("order", "desc", "Sort order: asc, desc")
	projectsCmd.Flags().IntP("page", "n", 1, "Page number")

	invoicesCmd.Flags().IntP("page", "n", 1, "Page number")

	todosCmd.Flags().StringP("status", "s", "", "Filter by status: pending, completed")
	todosCmd.Flags().StringP("priority", "p", "", "Filter by priority: high, medium, low")
}

func runProjects(ctx context.Context, w io.Writer, s *app.Services, opts projectListOptions) error {
	if err := requireSession(ctx, s); err != nil {
		return err
	}

	s.Projects.UpdateFilters(state.ProjectFilterUpdate{
		Status: &opts.status,
		Search: &opts.search,
		SortBy: &opts.sortBy,
		Order:  &opts.order,
	})
	if err := s.Projects.GoToPage(ctx, opts.page); err != nil {
		return err
	}

	list := s.Projects.Projects()
	if len(list) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return nil
	}

	fmt.Fprintf(w, "%-5s %-24s %-28s %12s %-11s %s\n", "ID", "COMPANY", "PROJECT", "AMOUNT", "STATUS", "DEADLINE")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, p := range list {
		deadline := p.Deadline.String()
		if p.IsOverdue {
			deadline += " (overdue)"
		}
		fmt.Fprintf(w, "%-5d %-24s %-28s %12s %-11s %s\n",
			p.ID,
			ui.Truncate(p.CompanyName, 24),
			ui.Truncate(p.ProjectName, 28),
			p.Amount.Yen(),
			p.Status,
			deadline,
		)
	}

	pg := s.Projects.Pagination()
	fmt.Fprintf(w, "\nPage %d/%d, %d projects, %s on this page\n",
		pg.CurrentPage, max(pg.TotalPages, 1), pg.TotalCount, model.Amount(s.Projects.TotalAmount()).Yen())
	return nil
}

func runInvoices(ctx context.Context, w io.Writer, s *app.Services, page int) error {
	if err := requireSession(ctx, s); err != nil {
		return err
	}
	if err := s.Invoices.FetchInvoices(ctx, page, 10); err != nil {
		return err
	}

	list := s.Invoices.Invoices()
	if len(list) == 0 {
		fmt.Fprintln(w, "No invoices found.")
		return nil
	}

	fmt.Fprintf(w, "%-5s %-14s %-24s %12s %-10s %s\n", "ID", "NUMBER", "CLIENT", "TOTAL", "STATUS", "DUE")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, inv := range list {
		fmt.Fprintf(w, "%-5d %-14s %-24s %12s %-10s %s\n",
			inv.ID,
			inv.InvoiceNumber,
			ui.Truncate(inv.ClientCompany, 24),
			inv.TotalAmount.Yen(),
			inv.Status,
			inv.DueDate.String(),
		)
	}

	pg := s.Invoices.Pagination()
	fmt.Fprintf(w, "\nPage %d/%d, %d invoices\n", pg.Page, max(pg.Pages, 1), s.Invoices.TotalInvoices())
	fmt.Fprintln(w, invoices.StatsLine(s.Invoices.Stats()))
	return nil
}

func runTodos(ctx context.Context, w io.Writer, s *app.Services, opts todoListOptions) error {
	if err := requireSession(ctx, s); err != nil {
		return err
	}
	filter := model.TodoFilter{Status: opts.status, Priority: opts.priority}
	if err := s.Todos.FetchTodos(ctx, filter); err != nil {
		return err
	}

	list := s.Todos.Sorted()
	if len(list) == 0 {
		fmt.Fprintln(w, "No todos found.")
	} else {
		fmt.Fprintf(w, "%-5s %-3s %-6s %-3s %-36s %s\n", "ID", "", "PRIO", "IMP", "TITLE", "DUE")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		for _, t := range list {
			check := "[ ]"
			if !t.IsPending() {
				check = "[x]"
			}
			fmt.Fprintf(w, "%-5d %-3s %-6s %-3d %-36s %s\n",
				t.ID, check, t.Priority, t.EffectiveImportance(), ui.Truncate(t.Title, 36), t.DueDate.String())
		}
	}

	stats := s.Todos.Stats()
	fmt.Fprintf(w, "\n%d pending, %d due within 3 days\n", stats.PendingTodos, stats.UpcomingTodos)
	return nil
}

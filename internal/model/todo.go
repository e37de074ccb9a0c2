package model

import "time"

// Todo status values.
const (
	TodoStatusPending   = "pending"
	TodoStatusCompleted = "completed"
)

// Todo priority values.
const (
	TodoPriorityLow    = "low"
	TodoPriorityMedium = "medium"
	TodoPriorityHigh   = "high"
)

// DefaultTodoImportance applies when a todo carries no importance.
const DefaultTodoImportance = 3

// UpcomingWindow is how far ahead a pending todo counts as upcoming.
const UpcomingWindow = 3 * 24 * time.Hour

// Todo is a task item. It may reference a project or invoice by id; the
// reference is informational and not owned.
type Todo struct {
	ID              int64      `json:"id"`
	Title           string     `json:"todo_title"`
	Description     string     `json:"todo_description"`
	DueDate         Date       `json:"todo_due_date"`
	Priority        string     `json:"todo_priority"`
	Importance      int        `json:"todo_importance"`
	Status          string     `json:"todo_status"`
	CompanyName     string     `json:"company_name"`
	ProjectName     string     `json:"project_name"`
	Notes           string     `json:"notes"`
	ProjectID       *int64     `json:"project_id,omitempty"`
	InvoiceID       *int64     `json:"invoice_id,omitempty"`
	UrgencyLevel    string     `json:"urgency_level,omitempty"`
	ImportanceLabel string     `json:"importance_label,omitempty"`
	CreatedAt       *Timestamp `json:"created_at,omitempty"`
	UpdatedAt       *Timestamp `json:"updated_at,omitempty"`
}

// PriorityWeight maps a priority to its ranking weight. Unknown values rank
// as medium.
func PriorityWeight(priority string) int {
	switch priority {
	case TodoPriorityHigh:
		return 3
	case TodoPriorityMedium:
		return 2
	case TodoPriorityLow:
		return 1
	default:
		return 2
	}
}

// EffectiveImportance returns the importance, or the default when unset.
func (t Todo) EffectiveImportance() int {
	if t.Importance == 0 {
		return DefaultTodoImportance
	}
	return t.Importance
}

// Score is the urgency x importance product used for ranking.
func (t Todo) Score() int {
	return PriorityWeight(t.Priority) * t.EffectiveImportance()
}

// IsPending reports whether the todo is still open.
func (t Todo) IsPending() bool {
	return t.Status == TodoStatusPending
}

// DueWithin reports whether the due date falls in [from, from+window].
func (t Todo) DueWithin(from time.Time, window time.Duration) bool {
	if t.DueDate.IsZero() {
		return false
	}
	due := t.DueDate.Time
	return !due.Before(from) && !due.After(from.Add(window))
}

// TodoInput is the create/update request body.
type TodoInput struct {
	Title       string `json:"todo_title,omitempty"`
	Description string `json:"todo_description,omitempty"`
	DueDate     string `json:"todo_due_date,omitempty"`
	Priority    string `json:"todo_priority,omitempty"`
	Importance  int    `json:"todo_importance,omitempty"`
	Status      string `json:"todo_status,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	Notes       string `json:"notes,omitempty"`
	ProjectID   *int64 `json:"project_id,omitempty"`
	InvoiceID   *int64 `json:"invoice_id,omitempty"`
}

// TodoFilter narrows the todo listing server side. Empty fields mean all.
type TodoFilter struct {
	Status     string
	Priority   string
	Importance int
	Sort       string
}

// TodoStats is the aggregate served by the stats endpoint.
type TodoStats struct {
	PendingTodos  int `json:"pending_todos"`
	UpcomingTodos int `json:"upcoming_todos"`
}

package model

// Project status values. The server may introduce others.
const (
	ProjectStatusProposed   = "proposed"
	ProjectStatusContracted = "contracted"
	ProjectStatusCompleted  = "completed"
)

// ProjectStatuses lists the known statuses in lifecycle order.
var ProjectStatuses = []string{
	ProjectStatusProposed,
	ProjectStatusContracted,
	ProjectStatusCompleted,
}

// Project is a sponsorship deal tracked by the user.
type Project struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	CompanyName       string     `json:"company_name"`
	ProjectName       string     `json:"project_name"`
	Amount            Amount     `json:"amount"`
	Deadline          Date       `json:"deadline"`
	Description       string     `json:"description"`
	Notes             string     `json:"notes"`
	Status            string     `json:"status"`
	StatusDisplay     string     `json:"status_display,omitempty"`
	IsOverdue         bool       `json:"is_overdue"`
	DaysUntilDeadline *int       `json:"days_until_deadline,omitempty"`
	CreatedAt         *Timestamp `json:"created_at,omitempty"`
	UpdatedAt         *Timestamp `json:"updated_at,omitempty"`
}

// Title returns the project name, falling back to the company name.
func (p Project) Title() string {
	if p.ProjectName != "" {
		return p.ProjectName
	}
	return p.CompanyName
}

// ProjectInput is the create/update request body. Zero-valued fields are
// omitted so updates only touch what was set.
type ProjectInput struct {
	CompanyName string  `json:"company_name,omitempty"`
	ProjectName string  `json:"project_name,omitempty"`
	Amount      *Amount `json:"amount,omitempty"`
	Deadline    string  `json:"deadline,omitempty"`
	Description string  `json:"description,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// ProjectFilters are the listing query parameters owned by the projects
// store.
type ProjectFilters struct {
	Status string `json:"status"`
	Search string `json:"search"`
	SortBy string `json:"sort_by"`
	Order  string `json:"order"`
}

// DefaultProjectFilters returns the filters a fresh store starts with.
func DefaultProjectFilters() ProjectFilters {
	return ProjectFilters{SortBy: "created_at", Order: "desc"}
}

// ProjectOption is an entry of the project picker used when linking todos.
type ProjectOption struct {
	Value       int64  `json:"value"`
	ID          int64  `json:"id"`
	CompanyName string `json:"company_name"`
	ProjectName string `json:"project_name"`
	Amount      Amount `json:"amount"`
	Status      string `json:"status"`
	Label       string `json:"label"`
}

// Key returns the project id the option refers to.
func (o ProjectOption) Key() int64 {
	if o.Value != 0 {
		return o.Value
	}
	return o.ID
}

// DisplayLabel returns the server label or a company/project fallback.
func (o ProjectOption) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	if o.ProjectName == "" {
		return o.CompanyName
	}
	return o.CompanyName + " - " + o.ProjectName
}

package model

// Invoice status values.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// InvoiceStatuses lists the known statuses in the order stats report them.
var InvoiceStatuses = []string{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusCancelled,
}

// Invoice is a bill issued to a sponsor, optionally generated from a
// project.
type Invoice struct {
	ID                int64      `json:"id"`
	InvoiceNumber     string     `json:"invoice_number"`
	InvoiceDate       Date       `json:"invoice_date"`
	DueDate           Date       `json:"due_date"`
	Subtotal          Amount     `json:"subtotal"`
	TaxRate           Amount     `json:"tax_rate"`
	TaxAmount         Amount     `json:"tax_amount"`
	TotalAmount       Amount     `json:"total_amount"`
	ClientCompany     string     `json:"client_company"`
	ClientAddress     string     `json:"client_address"`
	ClientContact     string     `json:"client_contact"`
	InfluencerName    string     `json:"influencer_name"`
	InfluencerAddress string     `json:"influencer_address"`
	InfluencerEmail   string     `json:"influencer_email"`
	Status            string     `json:"status"`
	Description       string     `json:"description"`
	Notes             string     `json:"notes"`
	PaymentDate       Date       `json:"payment_date"`
	PaymentMethod     string     `json:"payment_method"`
	ProjectID         *int64     `json:"project_id,omitempty"`
	ProjectName       string     `json:"project_name"`
	UserID            int64      `json:"user_id"`
	CreatedAt         *Timestamp `json:"created_at,omitempty"`
	UpdatedAt         *Timestamp `json:"updated_at,omitempty"`
}

// InvoiceInput is the create/update request body.
type InvoiceInput struct {
	ClientCompany string  `json:"client_company,omitempty"`
	ClientAddress string  `json:"client_address,omitempty"`
	ClientContact string  `json:"client_contact,omitempty"`
	ProjectName   string  `json:"project_name,omitempty"`
	Description   string  `json:"description,omitempty"`
	Subtotal      *Amount `json:"subtotal,omitempty"`
	TaxRate       *Amount `json:"tax_rate,omitempty"`
	InvoiceDate   string  `json:"invoice_date,omitempty"`
	DueDate       string  `json:"due_date,omitempty"`
	Status        string  `json:"status,omitempty"`
	PaymentDate   string  `json:"payment_date,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// InvoiceStats is the per-status breakdown derived from the loaded
// invoices.
type InvoiceStats struct {
	Counts      map[string]int
	TotalAmount float64
	PaidAmount  float64
}

// Count returns the number of invoices with the given status.
func (s InvoiceStats) Count(status string) int {
	return s.Counts[status]
}

// InvoiceOption is an entry of the invoice picker used when linking todos.
type InvoiceOption struct {
	Value         int64  `json:"value"`
	ID            int64  `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	ClientCompany string `json:"client_company"`
	ProjectName   string `json:"project_name"`
	Subtotal      Amount `json:"subtotal"`
	Label         string `json:"label"`
}

// Key returns the invoice id the option refers to.
func (o InvoiceOption) Key() int64 {
	if o.Value != 0 {
		return o.Value
	}
	return o.ID
}

// DisplayLabel returns the server label or a number/company fallback.
func (o InvoiceOption) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	if o.InvoiceNumber != "" {
		return o.InvoiceNumber + " " + o.ClientCompany
	}
	return o.ClientCompany
}

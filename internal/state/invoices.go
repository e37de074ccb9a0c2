package state

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/store"
)

const invoicesPath = "/api/invoices"

// InvoiceStore holds the invoice listing. Mutations patch the local
// collection instead of re-fetching it.
type InvoiceStore struct {
	base

	mu         sync.RWMutex
	invoices   []model.Invoice
	current    *model.Invoice
	pagination model.Pagination
	err        string
	seq        uint64
}

// NewInvoiceStore creates an empty invoice store.
func NewInvoiceStore(d Deps) *InvoiceStore {
	s := &InvoiceStore{pagination: model.DefaultPagination()}
	s.init(d, "invoices")
	return s
}

func (s *InvoiceStore) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// fail falls back to the network error message when no response arrived.
func (s *InvoiceStore) fail(op, fallbackKey string, err error) error {
	if api.IsTransport(err) {
		fallbackKey = "network_error"
	}
	ae := s.failure(op, fallbackKey, err)
	s.setError(ae.Message)
	return ae
}

func (s *InvoiceStore) allowed(op string) error {
	if s.session != nil && s.session.IsAuthenticated() {
		return nil
	}
	ae := s.denied(op)
	s.setError(ae.Message)
	return ae
}

type invoiceListResponse struct {
	api.Envelope
	Invoices   []model.Invoice   `json:"invoices"`
	Pagination *model.Pagination `json:"pagination"`
}

// FetchInvoices replaces the listing with the requested page. Zero values
// keep the current page and page size.
func (s *InvoiceStore) FetchInvoices(ctx context.Context, page, perPage int) error {
	const op = "fetch_invoices"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}

	s.mu.Lock()
	if page < 1 {
		page = s.pagination.Page
	}
	if perPage < 1 {
		perPage = s.pagination.PerPage
	}
	s.err = ""
	s.seq++
	mine := s.seq
	s.mu.Unlock()

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var resp invoiceListResponse
	err := s.client.Get(ctx, invoicesPath+"/", q, &resp)
	if err == nil {
		err = checked(invoicesPath, resp.Envelope)
	}

	s.mu.Lock()
	if mine != s.seq {
		s.mu.Unlock()
		return s.stale(op, err)
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(op, "invoices_fetch_failed", err)
	}
	s.invoices = resp.Invoices
	if s.invoices == nil {
		s.invoices = []model.Invoice{}
	}
	if resp.Pagination != nil {
		s.pagination = *resp.Pagination
	} else {
		s.pagination.Page = page
		s.pagination.PerPage = perPage
	}
	items, pag := s.invoices, s.pagination
	s.mu.Unlock()

	s.saveSnapshot(ctx, store.ResourceInvoices, items, pag)
	return nil
}

// FetchInvoice loads one invoice into the current slot.
func (s *InvoiceStore) FetchInvoice(ctx context.Context, id int64) error {
	const op = "fetch_invoice"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}
	s.setError("")

	inv, err := s.get(ctx, id)
	if err != nil {
		return s.fail(op, "invoice_fetch_failed", err)
	}

	s.mu.Lock()
	s.current = inv
	s.mu.Unlock()
	return nil
}

func (s *InvoiceStore) get(ctx context.Context, id int64) (*model.Invoice, error) {
	var resp api.Response
	err := s.client.Get(ctx, idPath(invoicesPath, id), nil, &resp)
	if err == nil {
		err = resp.Check(invoicesPath)
	}
	if err != nil {
		return nil, err
	}
	var inv model.Invoice
	if err := resp.Decode("invoice", &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// decodeInvoice extracts the record from a mutation reply.
func decodeInvoice(resp *api.Response) (*model.Invoice, error) {
	if !resp.Has("invoice") {
		return nil, errMissingPayload
	}
	var inv model.Invoice
	if err := resp.Decode("invoice", &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *InvoiceStore) prepend(inv *model.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = append([]model.Invoice{*inv}, s.invoices...)
	s.pagination.Total++
	c := *inv
	s.current = &c
}

// CreateInvoiceFromProject generates an invoice for a project and puts it
// at the top of the listing.
func (s *InvoiceStore) CreateInvoiceFromProject(ctx context.Context, projectID int64) (*model.Invoice, error) {
	const op = "create_invoice_from_project"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return nil, err
	}
	s.setError("")

	var resp api.Response
	err := s.client.Post(ctx, idPath(invoicesPath+"/create-from-project", projectID), nil, &resp)
	if err == nil {
		err = resp.Check(invoicesPath)
	}
	var inv *model.Invoice
	if err == nil {
		inv, err = decodeInvoice(&resp)
	}
	if err != nil {
		return nil, s.fail(op, "invoice_create_failed", err)
	}

	s.prepend(inv)
	return inv, nil
}

// CreateInvoice creates an invoice from scratch and puts it at the top of
// the listing.
func (s *InvoiceStore) CreateInvoice(ctx context.Context, input model.InvoiceInput) (*model.Invoice, error) {
	const op = "create_invoice"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return nil, err
	}
	s.setError("")

	var resp api.Response
	err := s.client.Post(ctx, invoicesPath+"/", input, &resp)
	if err == nil {
		err = resp.Check(invoicesPath)
	}
	var inv *model.Invoice
	if err == nil {
		inv, err = decodeInvoice(&resp)
	}
	if err != nil {
		return nil, s.fail(op, "invoice_create_failed", err)
	}

	s.prepend(inv)
	return inv, nil
}

// UpdateInvoice saves changes and replaces the record in place. When the
// reply omits the record it is reloaded.
func (s *InvoiceStore) UpdateInvoice(ctx context.Context, id int64, input model.InvoiceInput) error {
	const op = "update_invoice"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}
	s.setError("")

	var resp api.Response
	err := s.client.Put(ctx, idPath(invoicesPath, id), input, &resp)
	if err == nil {
		err = resp.Check(invoicesPath)
	}
	var inv *model.Invoice
	if err == nil {
		inv, err = decodeInvoice(&resp)
		if errors.Is(err, errMissingPayload) {
			inv, err = s.get(ctx, id)
		}
	}
	if err != nil {
		return s.fail(op, "invoice_update_failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			s.invoices[i] = *inv
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		c := *inv
		s.current = &c
	}
	return nil
}

// DeleteInvoice deletes an invoice and drops it from the listing.
func (s *InvoiceStore) DeleteInvoice(ctx context.Context, id int64) error {
	const op = "delete_invoice"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}
	s.setError("")

	var resp api.Envelope
	err := s.client.Delete(ctx, idPath(invoicesPath, id), &resp)
	if err == nil {
		err = checked(invoicesPath, resp)
	}
	if err != nil {
		return s.fail(op, "invoice_delete_failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.invoices[:0:0]
	for _, inv := range s.invoices {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	s.invoices = kept
	s.pagination.Total--
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	return nil
}

// Warm fills an empty listing from the snapshot cache.
func (s *InvoiceStore) Warm(ctx context.Context) bool {
	s.mu.RLock()
	empty := len(s.invoices) == 0
	s.mu.RUnlock()
	if !empty {
		return false
	}

	var items []model.Invoice
	pag := model.DefaultPagination()
	if !s.loadSnapshot(ctx, store.ResourceInvoices, &items, &pag) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.invoices) != 0 {
		return false
	}
	s.invoices = items
	s.pagination = pag
	return true
}

// Stats tallies the loaded invoices in one pass.
func (s *InvoiceStore) Stats() model.InvoiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.InvoiceStats{Counts: make(map[string]int, len(model.InvoiceStatuses))}
	for _, st := range model.InvoiceStatuses {
		stats.Counts[st] = 0
	}
	for _, inv := range s.invoices {
		stats.Counts[inv.Status]++
		amount := float64(inv.TotalAmount)
		stats.TotalAmount += amount
		if inv.Status == model.InvoiceStatusPaid {
			stats.PaidAmount += amount
		}
	}
	return stats
}

// TotalInvoices is the server-side total from the pagination cursor.
func (s *InvoiceStore) TotalInvoices() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination.Total
}

// HasInvoices reports whether any invoice is loaded.
func (s *InvoiceStore) HasInvoices() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices) > 0
}

// Invoices returns a copy of the listing.
func (s *InvoiceStore) Invoices() []model.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Invoice(nil), s.invoices...)
}

// Current returns a copy of the selected invoice, or nil.
func (s *InvoiceStore) Current() *model.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Pagination returns the pagination cursor.
func (s *InvoiceStore) Pagination() model.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// Error returns the current error message, or "".
func (s *InvoiceStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ClearError empties the error field.
func (s *InvoiceStore) ClearError() {
	s.setError("")
}

// Reset returns the store to its initial state.
func (s *InvoiceStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = nil
	s.current = nil
	s.pagination = model.DefaultPagination()
	s.err = ""
	s.seq++
}

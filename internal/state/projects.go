package state

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/store"
)

const projectsPath = "/api/projects"

// ProjectFilterUpdate changes the listing filters; nil fields are left as
// they are.
type ProjectFilterUpdate struct {
	Status *string
	Search *string
	SortBy *string
	Order  *string
}

// ProjectStore holds the paginated project listing. Every successful
// mutation re-fetches the listing, so the collection always mirrors a
// server page.
type ProjectStore struct {
	base

	mu         sync.RWMutex
	projects   []model.Project
	current    *model.Project
	pagination model.ProjectPagination
	filters    model.ProjectFilters
	err        string
	seq        uint64
}

// NewProjectStore creates an empty project store.
func NewProjectStore(d Deps) *ProjectStore {
	s := &ProjectStore{
		pagination: model.DefaultProjectPagination(),
		filters:    model.DefaultProjectFilters(),
	}
	s.init(d, "projects")
	return s
}

func (s *ProjectStore) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *ProjectStore) fail(op, fallbackKey string, err error) error {
	ae := s.failure(op, fallbackKey, err)
	s.setError(ae.Message)
	return ae
}

func (s *ProjectStore) allowed(op string) error {
	if s.session != nil && s.session.IsLoggedIn() {
		return nil
	}
	ae := s.denied(op)
	s.setError(ae.Message)
	return ae
}

func (s *ProjectStore) listQuery(override url.Values) url.Values {
	s.mu.RLock()
	p, f := s.pagination, s.filters
	s.mu.RUnlock()

	q := url.Values{}
	q.Set("page", strconv.Itoa(p.CurrentPage))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.Order != "" {
		q.Set("order", f.Order)
	}
	for k, v := range override {
		q[k] = v
	}
	return q
}

type projectListResponse struct {
	api.Envelope
	Projects   []model.Project   `json:"projects"`
	Pagination *model.Pagination `json:"pagination"`
}

// FetchProjects replaces the listing with the page selected by the current
// pagination and filters. override is applied last and may be nil.
func (s *ProjectStore) FetchProjects(ctx context.Context, override url.Values) error {
	const op = "fetch_projects"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}

	q := s.listQuery(override)

	s.mu.Lock()
	s.err = ""
	s.seq++
	mine := s.seq
	s.mu.Unlock()

	var resp projectListResponse
	err := s.client.Get(ctx, projectsPath+"/", q, &resp)
	if err == nil {
		err = checked(projectsPath, resp.Envelope)
	}

	s.mu.Lock()
	if mine != s.seq {
		s.mu.Unlock()
		return s.stale(op, err)
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(op, "projects_fetch_failed", err)
	}
	s.projects = resp.Projects
	if s.projects == nil {
		s.projects = []model.Project{}
	}
	if p := resp.Pagination; p != nil {
		s.pagination.CurrentPage = p.Page
		s.pagination.TotalPages = p.Pages
		s.pagination.TotalCount = p.Total
		if p.PerPage > 0 {
			s.pagination.PerPage = p.PerPage
		}
		s.pagination.HasNext = p.HasNext
		s.pagination.HasPrev = p.HasPrev
	}
	items, pag := s.projects, s.pagination
	s.mu.Unlock()

	s.saveSnapshot(ctx, store.ResourceProjects, items, pag)
	return nil
}

// FetchProject loads one project into the current slot.
func (s *ProjectStore) FetchProject(ctx context.Context, id int64) error {
	const op = "fetch_project"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}
	s.setError("")

	var resp api.Response
	err := s.client.Get(ctx, idPath(projectsPath, id), nil, &resp)
	if err == nil {
		err = resp.Check(projectsPath)
	}
	var p model.Project
	if err == nil {
		err = resp.Decode("project", &p)
	}
	if err != nil {
		return s.fail(op, "project_fetch_failed", err)
	}

	s.mu.Lock()
	s.current = &p
	s.mu.Unlock()
	return nil
}

// CreateProject creates a project and reloads the listing.
func (s *ProjectStore) CreateProject(ctx context.Context, input model.ProjectInput) error {
	const op = "create_project"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}
	s.setError("")

	var resp api.Envelope
	err := s.client.Post(ctx, projectsPath+"/", input, &resp)
	if err == nil {
		err = checked(projectsPath, resp)
	}
	if err != nil {
		return s.fail(op, "project_create_failed", err)
	}

	return s.FetchProjects(ctx, nil)
}

// UpdateProject saves changes, makes the result current and reloads the
// listing.
func (s *ProjectStore) UpdateProject(ctx context.Context, id int64, input model.ProjectInput) error {
	const op = "update_project"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}
	s.setError("")

	var resp api.Response
	err := s.client.Put(ctx, idPath(projectsPath, id), input, &resp)
	if err == nil {
		err = resp.Check(projectsPath)
	}
	if err != nil {
		return s.fail(op, "project_update_failed", err)
	}

	if resp.Has("project") {
		var p model.Project
		if err := resp.Decode("project", &p); err == nil {
			s.mu.Lock()
			s.current = &p
			s.mu.Unlock()
		}
	}

	return s.FetchProjects(ctx, nil)
}

// DeleteProject deletes a project and reloads the listing.
func (s *ProjectStore) DeleteProject(ctx context.Context, id int64) error {
	const op = "delete_project"
	defer s.begin()()
	if err := s.allowed(op); err != nil {
		return err
	}
	s.setError("")

	var resp api.Envelope
	err := s.client.Delete(ctx, idPath(projectsPath, id), &resp)
	if err == nil {
		err = checked(projectsPath, resp)
	}
	if err != nil {
		return s.fail(op, "project_delete_failed", err)
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()

	return s.FetchProjects(ctx, nil)
}

// UpdateFilters merges u into the filters and returns to page 1. It does
// not fetch.
func (s *ProjectStore) UpdateFilters(u ProjectFilterUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Status != nil {
		s.filters.Status = *u.Status
	}
	if u.Search != nil {
		s.filters.Search = *u.Search
	}
	if u.SortBy != nil {
		s.filters.SortBy = *u.SortBy
	}
	if u.Order != nil {
		s.filters.Order = *u.Order
	}
	s.pagination.CurrentPage = 1
}

// ChangePage selects the page for the next fetch.
func (s *ProjectStore) ChangePage(page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	s.pagination.CurrentPage = page
	s.mu.Unlock()
}

// GoToPage selects page and fetches it.
func (s *ProjectStore) GoToPage(ctx context.Context, page int) error {
	s.ChangePage(page)
	return s.FetchProjects(ctx, nil)
}

// Search sets the search term and fetches page 1.
func (s *ProjectStore) Search(ctx context.Context, term string) error {
	s.UpdateFilters(ProjectFilterUpdate{Search: &term})
	return s.FetchProjects(ctx, nil)
}

// FilterByStatus sets the status filter ("" for all) and fetches page 1.
func (s *ProjectStore) FilterByStatus(ctx context.Context, status string) error {
	s.UpdateFilters(ProjectFilterUpdate{Status: &status})
	return s.FetchProjects(ctx, nil)
}

// ChangeSort sets the sort column and direction and fetches page 1.
func (s *ProjectStore) ChangeSort(ctx context.Context, sortBy, order string) error {
	s.UpdateFilters(ProjectFilterUpdate{SortBy: &sortBy, Order: &order})
	return s.FetchProjects(ctx, nil)
}

// Warm fills an empty listing from the snapshot cache. It reports whether
// anything was loaded.
func (s *ProjectStore) Warm(ctx context.Context) bool {
	s.mu.RLock()
	empty := len(s.projects) == 0
	s.mu.RUnlock()
	if !empty {
		return false
	}

	var items []model.Project
	pag := model.DefaultProjectPagination()
	if !s.loadSnapshot(ctx, store.ResourceProjects, &items, &pag) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.projects) != 0 {
		return false
	}
	s.projects = items
	s.pagination = pag
	return true
}

// ClearError empties the error field.
func (s *ProjectStore) ClearError() {
	s.setError("")
}

// Reset returns the store to its initial state. Responses to requests
// issued before the reset are dropped.
func (s *ProjectStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = nil
	s.current = nil
	s.pagination = model.DefaultProjectPagination()
	s.filters = model.DefaultProjectFilters()
	s.err = ""
	s.seq++
}

// Projects returns a copy of the listing.
func (s *ProjectStore) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Project(nil), s.projects...)
}

// Current returns a copy of the selected project, or nil.
func (s *ProjectStore) Current() *model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	p := *s.current
	return &p
}

// Pagination returns the pagination cursor.
func (s *ProjectStore) Pagination() model.ProjectPagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// Filters returns the active filters.
func (s *ProjectStore) Filters() model.ProjectFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Error returns the current error message, or "".
func (s *ProjectStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ByStatus returns the loaded projects with the given status.
func (s *ProjectStore) ByStatus(status string) []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Project
	for _, p := range s.projects {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

func (s *ProjectStore) countStatus(statuses ...string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.projects {
		for _, st := range statuses {
			if p.Status == st {
				n++
				break
			}
		}
	}
	return n
}

// ProposedCount counts loaded proposals.
func (s *ProjectStore) ProposedCount() int {
	return s.countStatus(model.ProjectStatusProposed)
}

// ContractedCount counts loaded contracted projects.
func (s *ProjectStore) ContractedCount() int {
	return s.countStatus(model.ProjectStatusContracted)
}

// CompletedCount counts loaded completed projects.
func (s *ProjectStore) CompletedCount() int {
	return s.countStatus(model.ProjectStatusCompleted)
}

// ActiveCount counts projects that are not completed yet.
func (s *ProjectStore) ActiveCount() int {
	return s.countStatus(model.ProjectStatusProposed, model.ProjectStatusContracted)
}

// PendingCount is ActiveCount under the dashboard's name.
func (s *ProjectStore) PendingCount() int {
	return s.ActiveCount()
}

// TotalCount is the number of loaded projects.
func (s *ProjectStore) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// TotalAmount sums the amount of the loaded projects.
func (s *ProjectStore) TotalAmount() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	for _, p := range s.projects {
		sum += float64(p.Amount)
	}
	return sum
}

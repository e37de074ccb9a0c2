package state

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/store"
)

const todosPath = "/api/todos"

// TodoStore holds the todo list, its server-side counters and the option
// lists used when linking a todo to a project or invoice. There is no
// session pre-check: a 401 is left to the interceptor, and the session is
// also dropped explicitly when the listing is refused.
type TodoStore struct {
	base

	mu             sync.RWMutex
	todos          []model.Todo
	current        *model.Todo
	stats          model.TodoStats
	projectOptions []model.ProjectOption
	invoiceOptions []model.InvoiceOption
	lastFilter     model.TodoFilter
	err            string
	seq            uint64
}

// NewTodoStore creates an empty todo store.
func NewTodoStore(d Deps) *TodoStore {
	s := &TodoStore{}
	s.init(d, "todos")
	return s
}

func (s *TodoStore) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *TodoStore) fail(op, fallbackKey string, err error) error {
	ae := s.failure(op, fallbackKey, err)
	s.setError(ae.Message)
	return ae
}

func todoQuery(f model.TodoFilter) url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.Importance > 0 {
		q.Set("importance", strconv.Itoa(f.Importance))
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	return q
}

// FetchTodos replaces the list with the server's answer for filter, then
// refreshes the counters.
func (s *TodoStore) FetchTodos(ctx context.Context, filter model.TodoFilter) error {
	const op = "fetch_todos"
	defer s.begin()()

	s.mu.Lock()
	s.err = ""
	s.lastFilter = filter
	s.seq++
	mine := s.seq
	s.mu.Unlock()

	var resp api.Response
	err := s.client.Get(ctx, todosPath+"/", todoQuery(filter), &resp)
	if err == nil {
		err = resp.Check(todosPath)
	}
	var todos []model.Todo
	if err == nil {
		err = resp.Decode("todos", &todos)
	}

	s.mu.Lock()
	if mine != s.seq {
		s.mu.Unlock()
		return s.stale(op, err)
	}
	if err != nil {
		s.mu.Unlock()
		ae := s.fixedFailure(op, "todos_fetch_failed", err)
		s.setError(ae.Message)
		if api.IsUnauthorized(err) && s.session != nil {
			s.session.Logout(ctx)
		}
		return ae
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	s.todos = todos
	s.mu.Unlock()

	s.saveSnapshot(ctx, store.ResourceTodos, todos, nil)
	s.FetchStats(ctx)
	return nil
}

// FetchStats refreshes the pending/upcoming counters. Failures reset them
// to zero and are not reported.
func (s *TodoStore) FetchStats(ctx context.Context) {
	var stats model.TodoStats
	if err := s.client.Get(ctx, todosPath+"/stats", nil, &stats); err != nil {
		s.logger.WithError(err).Debug("fetching todo stats")
		stats = model.TodoStats{}
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

func decodeTodo(resp *api.Response) (*model.Todo, error) {
	if !resp.Has("todo") {
		return nil, errMissingPayload
	}
	var t model.Todo
	if err := resp.Decode("todo", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// get loads a single todo.
func (s *TodoStore) get(ctx context.Context, id int64) (*model.Todo, error) {
	var resp api.Response
	err := s.client.Get(ctx, idPath(todosPath, id), nil, &resp)
	if err == nil {
		err = resp.Check(todosPath)
	}
	if err != nil {
		return nil, err
	}
	var t model.Todo
	if err := resp.Decode("todo", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// replace swaps the todo with t.ID in the list and the current slot.
func (s *TodoStore) replace(t *model.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID == t.ID {
			s.todos[i] = *t
			break
		}
	}
	if s.current != nil && s.current.ID == t.ID {
		c := *t
		s.current = &c
	}
}

// CreateTodo creates a todo and appends it to the list.
func (s *TodoStore) CreateTodo(ctx context.Context, input model.TodoInput) error {
	const op = "create_todo"
	defer s.begin()()
	s.setError("")

	var resp api.Response
	err := s.client.Post(ctx, todosPath+"/", input, &resp)
	if err == nil {
		err = resp.Check(todosPath)
	}
	if err != nil {
		return s.fail(op, "todo_create_failed", err)
	}

	t, err := decodeTodo(&resp)
	if err != nil {
		// Created, but the reply has no record to append: reload the list.
		s.logger.WithError(err).WithField("op", op).Debug("reloading list after create")
		s.mu.RLock()
		filter := s.lastFilter
		s.mu.RUnlock()
		return s.FetchTodos(ctx, filter)
	}

	s.mu.Lock()
	s.todos = append(s.todos, *t)
	s.mu.Unlock()

	s.FetchStats(ctx)
	return nil
}

// UpdateTodo saves changes and replaces the todo in place. The server
// usually answers with a message only, in which case the record is
// reloaded.
func (s *TodoStore) UpdateTodo(ctx context.Context, id int64, input model.TodoInput) error {
	const op = "update_todo"
	defer s.begin()()
	s.setError("")

	var resp api.Response
	err := s.client.Put(ctx, idPath(todosPath, id), input, &resp)
	if err == nil {
		err = resp.Check(todosPath)
	}
	var t *model.Todo
	if err == nil {
		t, err = decodeTodo(&resp)
		if errors.Is(err, errMissingPayload) {
			t, err = s.get(ctx, id)
		}
	}
	if err != nil {
		return s.fail(op, "todo_update_failed", err)
	}

	s.replace(t)
	s.FetchStats(ctx)
	return nil
}

type completeResponse struct {
	api.Envelope
	Todo      *model.Todo `json:"todo"`
	NewStatus string      `json:"new_status"`
}

// CompleteTodo toggles a todo between pending and completed. The server
// decides the new status; the reply carries either the record or just the
// new status.
func (s *TodoStore) CompleteTodo(ctx context.Context, id int64) error {
	const op = "complete_todo"
	defer s.begin()()
	s.setError("")

	var resp completeResponse
	err := s.client.Put(ctx, idPath(todosPath, id, "complete"), nil, &resp)
	if err == nil {
		err = checked(todosPath, resp.Envelope)
	}
	if err != nil {
		return s.fail(op, "todo_complete_failed", err)
	}

	switch {
	case resp.Todo != nil:
		s.replace(resp.Todo)
	default:
		s.setStatus(id, resp.NewStatus)
	}

	s.FetchStats(ctx)
	return nil
}

// setStatus applies status to the todo with id. An empty status flips the
// local value.
func (s *TodoStore) setStatus(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.todos {
		if s.todos[i].ID != id {
			continue
		}
		next := status
		if next == "" {
			next = model.TodoStatusCompleted
			if s.todos[i].Status == model.TodoStatusCompleted {
				next = model.TodoStatusPending
			}
		}
		s.todos[i].Status = next
		if s.current != nil && s.current.ID == id {
			s.current.Status = next
		}
		return
	}
}

// DeleteTodo deletes a todo and drops it from the list.
func (s *TodoStore) DeleteTodo(ctx context.Context, id int64) error {
	const op = "delete_todo"
	defer s.begin()()
	s.setError("")

	var resp api.Envelope
	err := s.client.Delete(ctx, idPath(todosPath, id), &resp)
	if err == nil {
		err = checked(todosPath, resp)
	}
	if err != nil {
		return s.fail(op, "todo_delete_failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.todos[:0:0]
	for _, t := range s.todos {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.todos = kept
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	return nil
}

// FetchProjectOptions loads the project choices for the todo form. On
// failure the list is emptied.
func (s *TodoStore) FetchProjectOptions(ctx context.Context) {
	var opts []model.ProjectOption
	var resp api.Response
	err := s.client.Get(ctx, "/api/projects/options", nil, &resp)
	if err == nil {
		err = resp.Decode("project_options", &opts)
	}
	if err != nil {
		s.logger.WithError(err).Debug("fetching project options")
		opts = nil
	}
	s.mu.Lock()
	s.projectOptions = opts
	s.mu.Unlock()
}

// FetchInvoiceOptions loads the invoice choices for the todo form. On
// failure the list is emptied.
func (s *TodoStore) FetchInvoiceOptions(ctx context.Context) {
	var opts []model.InvoiceOption
	var resp api.Response
	err := s.client.Get(ctx, "/api/invoices/options", nil, &resp)
	if err == nil {
		err = resp.Decode("invoice_options", &opts)
	}
	if err != nil {
		s.logger.WithError(err).Debug("fetching invoice options")
		opts = nil
	}
	s.mu.Lock()
	s.invoiceOptions = opts
	s.mu.Unlock()
}

// Warm fills an empty list from the snapshot cache.
func (s *TodoStore) Warm(ctx context.Context) bool {
	s.mu.RLock()
	empty := len(s.todos) == 0
	s.mu.RUnlock()
	if !empty {
		return false
	}

	var items []model.Todo
	if !s.loadSnapshot(ctx, store.ResourceTodos, &items, nil) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.todos) != 0 {
		return false
	}
	s.todos = items
	return true
}

// Todos returns a copy of the list in server order.
func (s *TodoStore) Todos() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Todo(nil), s.todos...)
}

// Sorted returns the todos ranked by priority weight times importance,
// highest first. Ties keep server order.
func (s *TodoStore) Sorted() []model.Todo {
	out := s.Todos()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})
	return out
}

func (s *TodoStore) filter(keep func(model.Todo) bool) []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Todo
	for _, t := range s.todos {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Pending returns the todos that are not done.
func (s *TodoStore) Pending() []model.Todo {
	return s.filter(model.Todo.IsPending)
}

// Completed returns the finished todos.
func (s *TodoStore) Completed() []model.Todo {
	return s.filter(func(t model.Todo) bool { return t.Status == model.TodoStatusCompleted })
}

// HighPriority returns the todos marked high priority.
func (s *TodoStore) HighPriority() []model.Todo {
	return s.filter(func(t model.Todo) bool { return t.Priority == model.TodoPriorityHigh })
}

// Upcoming returns pending todos due between now and three days later,
// both ends included.
func (s *TodoStore) Upcoming(now time.Time) []model.Todo {
	return s.filter(func(t model.Todo) bool {
		return t.IsPending() && t.DueWithin(now, model.UpcomingWindow)
	})
}

// Stats returns the last fetched counters.
func (s *TodoStore) Stats() model.TodoStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// ProjectOptions returns the project choices.
func (s *TodoStore) ProjectOptions() []model.ProjectOption {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ProjectOption(nil), s.projectOptions...)
}

// InvoiceOptions returns the invoice choices.
func (s *TodoStore) InvoiceOptions() []model.InvoiceOption {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.InvoiceOption(nil), s.invoiceOptions...)
}

// SetCurrent selects a todo, or clears the selection with nil.
func (s *TodoStore) SetCurrent(t *model.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil {
		s.current = nil
		return
	}
	c := *t
	s.current = &c
}

// Current returns a copy of the selected todo, or nil.
func (s *TodoStore) Current() *model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Error returns the current error message, or "".
func (s *TodoStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ClearError empties the error field.
func (s *TodoStore) ClearError() {
	s.setError("")
}

// Reset returns the store to its initial state.
func (s *TodoStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.todos = nil
	s.current = nil
	s.stats = model.TodoStats{}
	s.projectOptions = nil
	s.invoiceOptions = nil
	s.lastFilter = model.TodoFilter{}
	s.err = ""
	s.seq++
}

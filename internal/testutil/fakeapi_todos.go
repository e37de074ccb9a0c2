package testutil

import (
	"net/http"
	"strconv"

	"github.com/nhle/berrydesk/internal/model"
)

func (f *FakeAPI) listTodos(w http.ResponseWriter, r *http.Request, uid int64) {
	q := r.URL.Query()
	status, priority := q.Get("status"), q.Get("priority")
	importance, _ := strconv.Atoi(q.Get("importance"))

	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Todo{}
	for _, t := range f.todos {
		if f.owner[t.ID] != uid {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		if priority != "" && t.Priority != priority {
			continue
		}
		if importance > 0 && t.Importance != importance {
			continue
		}
		out = append(out, t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": out})
}

func (f *FakeAPI) findTodo(uid, id int64) int {
	for i, t := range f.todos {
		if t.ID == id && f.owner[t.ID] == uid {
			return i
		}
	}
	return -1
}

func (f *FakeAPI) todoStats(w http.ResponseWriter, _ *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.Now()
	stats := model.TodoStats{}
	for _, t := range f.todos {
		if f.owner[t.ID] != uid || !t.IsPending() {
			continue
		}
		stats.PendingTodos++
		if t.DueWithin(now, model.UpcomingWindow) {
			stats.UpcomingTodos++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (f *FakeAPI) getTodo(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findTodo(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Todoが見つかりません"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"todo": f.todos[i]})
}

func applyTodoInput(t *model.Todo, in model.TodoInput) {
	if in.Title != "" {
		t.Title = in.Title
	}
	if in.Description != "" {
		t.Description = in.Description
	}
	if in.DueDate != "" {
		if d, err := model.ParseDate(in.DueDate); err == nil {
			t.DueDate = d
		}
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	if in.Importance != 0 {
		t.Importance = in.Importance
	}
	if in.Status != "" {
		t.Status = in.Status
	}
	if in.CompanyName != "" {
		t.CompanyName = in.CompanyName
	}
	if in.ProjectName != "" {
		t.ProjectName = in.ProjectName
	}
	if in.Notes != "" {
		t.Notes = in.Notes
	}
	if in.ProjectID != nil {
		t.ProjectID = in.ProjectID
	}
	if in.InvoiceID != nil {
		t.InvoiceID = in.InvoiceID
	}
}

func (f *FakeAPI) createTodo(w http.ResponseWriter, r *http.Request, uid int64) {
	var in model.TodoInput
	if !decodeBody(r, &in) || in.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "タイトルは必須です"})
		return
	}
	t := model.Todo{Priority: model.TodoPriorityMedium, Importance: model.DefaultTodoImportance}
	applyTodoInput(&t, in)
	t = f.AddTodo(uid, t)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Todoを作成しました", "todo": t})
}

// updateTodo answers with a message only, like the real endpoint.
func (f *FakeAPI) updateTodo(w http.ResponseWriter, r *http.Request, uid int64) {
	var in model.TodoInput
	if !decodeBody(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "不正なリクエストです"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findTodo(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Todoが見つかりません"})
		return
	}
	applyTodoInput(&f.todos[i], in)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Todoを更新しました"})
}

func (f *FakeAPI) completeTodo(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findTodo(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Todoが見つかりません"})
		return
	}
	next := model.TodoStatusCompleted
	if f.todos[i].Status == model.TodoStatusCompleted {
		next = model.TodoStatusPending
	}
	f.todos[i].Status = next
	writeJSON(w, http.StatusOK, map[string]any{"message": "Todoのステータスを更新しました", "new_status": next})
}

func (f *FakeAPI) deleteTodo(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findTodo(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Todoが見つかりません"})
		return
	}
	delete(f.owner, f.todos[i].ID)
	f.todos = append(f.todos[:i], f.todos[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Todoを削除しました"})
}

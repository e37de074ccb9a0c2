package testutil

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/berrydesk/internal/model"
)

// SessionCookie is the cookie name the fake server issues.
const SessionCookie = "session"

type account struct {
	user     model.User
	password string
}

type failure struct {
	status int
	body   string
}

// FakeAPI is an in-memory stand-in for the berrydesk REST API, served over
// httptest. It keeps per-user projects, invoices and todos, issues a session
// cookie on login and answers 401 without one.
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	sessions map[string]int64
	projects []model.Project
	invoices []model.Invoice
	todos    []model.Todo
	owner    map[int64]int64
	nextID   int64
	failures map[string]failure
	requests []string

	// Now is used for upcoming-todo stats.
	Now func() time.Time
}

// NewFakeAPI starts a fake server that is closed with the test.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		accounts: make(map[string]*account),
		sessions: make(map[string]int64),
		failures: make(map[string]failure),
		owner:    make(map[int64]int64),
		Now:      time.Now,
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the server base URL.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

func (f *FakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

// AddUser registers an account and returns the stored user.
func (f *FakeAPI) AddUser(email, password, influencerName string) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := model.User{
		ID:             f.id(),
		Username:       strings.Split(email, "@")[0],
		Email:          email,
		InfluencerName: influencerName,
		IsActive:       true,
		PlanType:       "free",
	}
	f.accounts[email] = &account{user: u, password: password}
	return u
}

// AddProject stores p for its UserID and returns it with an id.
func (f *FakeAPI) AddProject(p model.Project) model.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	if p.Status == "" {
		p.Status = model.ProjectStatusProposed
	}
	p.CreatedAt = &model.Timestamp{Time: time.Now().Add(time.Duration(p.ID) * time.Second)}
	f.projects = append(f.projects, p)
	return p
}

// AddInvoice stores inv for its UserID and returns it with an id.
func (f *FakeAPI) AddInvoice(inv model.Invoice) model.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv.ID = f.id()
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = fmt.Sprintf("INV-%04d", inv.ID)
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceStatusDraft
	}
	f.invoices = append(f.invoices, inv)
	return inv
}

// AddTodo stores t and returns it with an id.
func (f *FakeAPI) AddTodo(userID int64, t model.Todo) model.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	if t.Status == "" {
		t.Status = model.TodoStatusPending
	}
	f.todos = append(f.todos, t)
	f.owner[t.ID] = userID
	return t
}

// Fail makes every request matching method and path answer with status and
// a JSON body {"error": message}. An empty message sends "{}".
func (f *FakeAPI) Fail(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body := "{}"
	if message != "" {
		data, _ := json.Marshal(map[string]string{"error": message})
		body = string(data)
	}
	f.failures[method+" "+path] = failure{status: status, body: body}
}

// FailRaw is Fail with a verbatim body.
func (f *FakeAPI) FailRaw(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = failure{status: status, body: body}
}

// ClearFailures removes every injected failure.
func (f *FakeAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]failure)
}

// ExpireSessions invalidates every issued session cookie.
func (f *FakeAPI) ExpireSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = make(map[string]int64)
}

// Requests returns "METHOD /path" for every request received so far.
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Count returns how many requests matched method and path.
func (f *FakeAPI) Count(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r == method+" "+path {
			n++
		}
	}
	return n
}

// Projects returns the stored projects of userID.
func (f *FakeAPI) Projects(userID int64) []model.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

func (f *FakeAPI) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", f.login)
	mux.HandleFunc("POST /api/auth/register", f.register)
	mux.HandleFunc("POST /api/auth/logout", f.authed(f.logout))
	mux.HandleFunc("GET /api/auth/me", f.authed(f.me))
	mux.HandleFunc("PUT /api/users/profile", f.authed(f.updateProfile))
	mux.HandleFunc("POST /api/users/change-password", f.authed(f.changePassword))

	mux.HandleFunc("GET /api/projects/{$}", f.authed(f.listProjects))
	mux.HandleFunc("POST /api/projects/{$}", f.authed(f.createProject))
	mux.HandleFunc("GET /api/projects/options", f.authed(f.projectOptions))
	mux.HandleFunc("GET /api/projects/{id}", f.authed(f.getProject))
	mux.HandleFunc("PUT /api/projects/{id}", f.authed(f.updateProject))
	mux.HandleFunc("DELETE /api/projects/{id}", f.authed(f.deleteProject))

	mux.HandleFunc("GET /api/invoices/{$}", f.authed(f.listInvoices))
	mux.HandleFunc("POST /api/invoices/{$}", f.authed(f.createInvoice))
	mux.HandleFunc("GET /api/invoices/options", f.authed(f.invoiceOptions))
	mux.HandleFunc("POST /api/invoices/create-from-project/{id}", f.authed(f.createInvoiceFromProject))
	mux.HandleFunc("GET /api/invoices/{id}", f.authed(f.getInvoice))
	mux.HandleFunc("PUT /api/invoices/{id}", f.authed(f.updateInvoice))
	mux.HandleFunc("DELETE /api/invoices/{id}", f.authed(f.deleteInvoice))

	mux.HandleFunc("GET /api/todos/{$}", f.authed(f.listTodos))
	mux.HandleFunc("POST /api/todos/{$}", f.authed(f.createTodo))
	mux.HandleFunc("GET /api/todos/stats", f.authed(f.todoStats))
	mux.HandleFunc("GET /api/todos/{id}", f.authed(f.getTodo))
	mux.HandleFunc("PUT /api/todos/{id}", f.authed(f.updateTodo))
	mux.HandleFunc("PUT /api/todos/{id}/complete", f.authed(f.completeTodo))
	mux.HandleFunc("DELETE /api/todos/{id}", f.authed(f.deleteTodo))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.requests = append(f.requests, key)
		fail, ok := f.failures[key]
		f.mu.Unlock()

		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = w.Write([]byte(fail.body))
			return
		}
		mux.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, uid int64)

func (f *FakeAPI) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(SessionCookie)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "認証が必要です"})
			return
		}
		f.mu.Lock()
		uid, ok := f.sessions[ck.Value]
		f.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "認証が必要です"})
			return
		}
		h(w, r, uid)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func (f *FakeAPI) startSession(w http.ResponseWriter, uid int64) {
	token := uuid.NewString()
	f.sessions[token] = uid
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
}

func (f *FakeAPI) userByID(uid int64) *account {
	for _, a := range f.accounts {
		if a.user.ID == uid {
			return a
		}
	}
	return nil
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var c model.Credentials
	if !decodeBody(r, &c) || c.Email == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "メールアドレスとパスワードを入力してください"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[c.Email]
	if !ok || a.password != c.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "メールアドレスまたはパスワードが正しくありません"})
		return
	}
	f.startSession(w, a.user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "ログインしました", "user": a.user})
}

func (f *FakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if !decodeBody(r, &reg) || reg.Email == "" || reg.Password == "" || reg.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "必須項目が入力されていません"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[reg.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "このメールアドレスは既に登録されています"})
		return
	}
	u := model.User{ID: f.id(), Username: reg.Username, Email: reg.Email, IsActive: true, PlanType: "free"}
	f.accounts[reg.Email] = &account{user: u, password: reg.Password}
	f.startSession(w, u.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "登録が完了しました", "user": u})
}

func (f *FakeAPI) logout(w http.ResponseWriter, r *http.Request, _ int64) {
	ck, _ := r.Cookie(SessionCookie)
	f.mu.Lock()
	delete(f.sessions, ck.Value)
	f.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"message": "ログアウトしました"})
}

func (f *FakeAPI) me(w http.ResponseWriter, _ *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.userByID(uid)
	if a == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "認証が必要です"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": a.user})
}

func (f *FakeAPI) updateProfile(w http.ResponseWriter, r *http.Request, uid int64) {
	var p model.ProfileUpdate
	if !decodeBody(r, &p) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "不正なリクエストです"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.userByID(uid)
	if p.Username != "" {
		a.user.Username = p.Username
	}
	if p.InfluencerName != "" {
		a.user.InfluencerName = p.InfluencerName
	}
	if p.Email != "" && p.Email != a.user.Email {
		delete(f.accounts, a.user.Email)
		a.user.Email = p.Email
		f.accounts[p.Email] = a
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "プロフィールを更新しました", "user": a.user})
}

func (f *FakeAPI) changePassword(w http.ResponseWriter, r *http.Request, uid int64) {
	var p model.PasswordChange
	if !decodeBody(r, &p) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "不正なリクエストです"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.userByID(uid)
	if a.password != p.CurrentPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "現在のパスワードが正しくありません"})
		return
	}
	if p.NewPassword != p.ConfirmPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "新しいパスワードが一致しません"})
		return
	}
	a.password = p.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"message": "パスワードを変更しました"})
}

func pageParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	return page, perPage
}

func paginate(total, page, perPage int) (start, end int, p model.Pagination) {
	pages := int(math.Ceil(float64(total) / float64(perPage)))
	start = (page - 1) * perPage
	if start > total {
		start = total
	}
	end = start + perPage
	if end > total {
		end = total
	}
	return start, end, model.Pagination{
		Page:    page,
		Pages:   pages,
		PerPage: perPage,
		Total:   total,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

func (f *FakeAPI) listProjects(w http.ResponseWriter, r *http.Request, uid int64) {
	q := r.URL.Query()
	status, search := q.Get("status"), q.Get("search")
	sortBy, order := q.Get("sort_by"), q.Get("order")

	f.mu.Lock()
	var rows []model.Project
	for _, p := range f.projects {
		if p.UserID != uid {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		if search != "" && !strings.Contains(p.CompanyName, search) && !strings.Contains(p.ProjectName, search) {
			continue
		}
		rows = append(rows, p)
	}
	f.mu.Unlock()

	less := func(a, b model.Project) bool { return a.ID < b.ID }
	switch sortBy {
	case "amount":
		less = func(a, b model.Project) bool { return a.Amount < b.Amount }
	case "deadline":
		less = func(a, b model.Project) bool { return a.Deadline.Before(b.Deadline.Time) }
	case "company_name":
		less = func(a, b model.Project) bool { return a.CompanyName < b.CompanyName }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if order == "asc" {
			return less(rows[i], rows[j])
		}
		return less(rows[j], rows[i])
	})

	page, perPage := pageParams(r)
	start, end, pag := paginate(len(rows), page, perPage)
	out := rows[start:end]
	if out == nil {
		out = []model.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": out, "pagination": pag})
}

func (f *FakeAPI) findProject(uid, id int64) int {
	for i, p := range f.projects {
		if p.ID == id && p.UserID == uid {
			return i
		}
	}
	return -1
}

func (f *FakeAPI) getProject(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findProject(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "プロジェクトが見つかりません"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": f.projects[i]})
}

func applyProjectInput(p *model.Project, in model.ProjectInput) {
	if in.CompanyName != "" {
		p.CompanyName = in.CompanyName
	}
	if in.ProjectName != "" {
		p.ProjectName = in.ProjectName
	}
	if in.Amount != nil {
		p.Amount = *in.Amount
	}
	if in.Deadline != "" {
		if d, err := model.ParseDate(in.Deadline); err == nil {
			p.Deadline = d
		}
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Notes != "" {
		p.Notes = in.Notes
	}
	if in.Status != "" {
		p.Status = in.Status
	}
}

func (f *FakeAPI) createProject(w http.ResponseWriter, r *http.Request, uid int64) {
	var in model.ProjectInput
	if !decodeBody(r, &in) || in.CompanyName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "企業名は必須です"})
		return
	}
	p := model.Project{UserID: uid, Status: model.ProjectStatusProposed}
	applyProjectInput(&p, in)
	p = f.AddProject(p)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "プロジェクトを作成しました", "project": p})
}

func (f *FakeAPI) updateProject(w http.ResponseWriter, r *http.Request, uid int64) {
	var in model.ProjectInput
	if !decodeBody(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "不正なリクエストです"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findProject(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "プロジェクトが見つかりません"})
		return
	}
	applyProjectInput(&f.projects[i], in)
	writeJSON(w, http.StatusOK, map[string]any{"message": "プロジェクトを更新しました", "project": f.projects[i]})
}

func (f *FakeAPI) deleteProject(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findProject(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "プロジェクトが見つかりません"})
		return
	}
	f.projects = append(f.projects[:i], f.projects[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"message": "プロジェクトを削除しました"})
}

func (f *FakeAPI) projectOptions(w http.ResponseWriter, _ *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts := []model.ProjectOption{}
	for _, p := range f.projects {
		if p.UserID == uid {
			opts = append(opts, model.ProjectOption{
				Value:       p.ID,
				CompanyName: p.CompanyName,
				ProjectName: p.ProjectName,
				Amount:      p.Amount,
				Status:      p.Status,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"project_options": opts})
}

func (f *FakeAPI) listInvoices(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	var rows []model.Invoice
	for i := len(f.invoices) - 1; i >= 0; i-- {
		if f.invoices[i].UserID == uid {
			rows = append(rows, f.invoices[i])
		}
	}
	f.mu.Unlock()

	page, perPage := pageParams(r)
	start, end, pag := paginate(len(rows), page, perPage)
	out := rows[start:end]
	if out == nil {
		out = []model.Invoice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoices": out, "pagination": pag})
}

func (f *FakeAPI) findInvoice(uid, id int64) int {
	for i, inv := range f.invoices {
		if inv.ID == id && inv.UserID == uid {
			return i
		}
	}
	return -1
}

func (f *FakeAPI) getInvoice(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findInvoice(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "請求書が見つかりません"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoice": f.invoices[i]})
}

func (f *FakeAPI) createInvoiceFromProject(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	i := f.findProject(uid, pathID(r))
	if i < 0 {
		f.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "プロジェクトが見つかりません"})
		return
	}
	p := f.projects[i]
	f.mu.Unlock()

	pid := p.ID
	tax := model.Amount(float64(p.Amount) * 0.1)
	inv := f.AddInvoice(model.Invoice{
		UserID:        uid,
		ProjectID:     &pid,
		ProjectName:   p.ProjectName,
		ClientCompany: p.CompanyName,
		Subtotal:      p.Amount,
		TaxRate:       10,
		TaxAmount:     tax,
		TotalAmount:   p.Amount + tax,
		InvoiceDate:   model.NewDate(time.Now()),
		DueDate:       model.NewDate(time.Now().AddDate(0, 0, 30)),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "請求書を作成しました", "invoice": inv})
}

func applyInvoiceInput(inv *model.Invoice, in model.InvoiceInput) {
	if in.ClientCompany != "" {
		inv.ClientCompany = in.ClientCompany
	}
	if in.ProjectName != "" {
		inv.ProjectName = in.ProjectName
	}
	if in.Description != "" {
		inv.Description = in.Description
	}
	if in.Subtotal != nil {
		inv.Subtotal = *in.Subtotal
		rate := inv.TaxRate
		if in.TaxRate != nil {
			rate = *in.TaxRate
		}
		inv.TaxRate = rate
		inv.TaxAmount = model.Amount(float64(inv.Subtotal) * float64(rate) / 100)
		inv.TotalAmount = inv.Subtotal + inv.TaxAmount
	}
	if in.Status != "" {
		inv.Status = in.Status
	}
	if in.PaymentMethod != "" {
		inv.PaymentMethod = in.PaymentMethod
	}
	if in.PaymentDate != "" {
		if d, err := model.ParseDate(in.PaymentDate); err == nil {
			inv.PaymentDate = d
		}
	}
	if in.Notes != "" {
		inv.Notes = in.Notes
	}
}

func (f *FakeAPI) createInvoice(w http.ResponseWriter, r *http.Request, uid int64) {
	var in model.InvoiceInput
	if !decodeBody(r, &in) || in.ClientCompany == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "クライアント企業名は必須です"})
		return
	}
	inv := model.Invoice{UserID: uid, TaxRate: 10}
	applyInvoiceInput(&inv, in)
	inv = f.AddInvoice(inv)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "invoice": inv})
}

func (f *FakeAPI) updateInvoice(w http.ResponseWriter, r *http.Request, uid int64) {
	var in model.InvoiceInput
	if !decodeBody(r, &in) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "不正なリクエストです"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findInvoice(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "請求書が見つかりません"})
		return
	}
	applyInvoiceInput(&f.invoices[i], in)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoice": f.invoices[i]})
}

func (f *FakeAPI) deleteInvoice(w http.ResponseWriter, r *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.findInvoice(uid, pathID(r))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "請求書が見つかりません"})
		return
	}
	f.invoices = append(f.invoices[:i], f.invoices[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "請求書を削除しました"})
}

func (f *FakeAPI) invoiceOptions(w http.ResponseWriter, _ *http.Request, uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts := []model.InvoiceOption{}
	for _, inv := range f.invoices {
		if inv.UserID == uid {
			opts = append(opts, model.InvoiceOption{
				Value:         inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				ClientCompany: inv.ClientCompany,
				ProjectName:   inv.ProjectName,
				Subtotal:      inv.Subtotal,
			})
		}
	}
	writeJSON(w, http.StatusOK, opts)
}

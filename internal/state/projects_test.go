package state

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/model"
)

func seedProjects(h *harness, n int, status string) []model.Project {
	out := make([]model.Project, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.fake.AddProject(model.Project{
			UserID:      h.user.ID,
			CompanyName: fmt.Sprintf("株式会社%d", i),
			ProjectName: fmt.Sprintf("案件%d", i),
			Amount:      model.Amount(10000 * (i + 1)),
			Status:      status,
		}))
	}
	return out
}

func ids(projects []model.Project) []int64 {
	out := make([]int64, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.ID)
	}
	return out
}

func TestFetchProjectsRequiresLogin(t *testing.T) {
	h := newHarness(t)
	s := NewProjectStore(h.deps)

	err := s.FetchProjects(context.Background(), nil)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, "認証が必要です", err.Error())
	assert.Equal(t, "認証が必要です", s.Error())
	assert.Zero(t, h.fake.Count(http.MethodGet, "/api/projects/"))
	assert.False(t, s.Loading())
}

func TestMutationsRequireLogin(t *testing.T) {
	h := newHarness(t)
	s := NewProjectStore(h.deps)
	ctx := context.Background()

	assert.ErrorIs(t, s.FetchProject(ctx, 1), ErrAuthRequired)
	assert.ErrorIs(t, s.CreateProject(ctx, model.ProjectInput{CompanyName: "x"}), ErrAuthRequired)
	assert.ErrorIs(t, s.UpdateProject(ctx, 1, model.ProjectInput{}), ErrAuthRequired)
	assert.ErrorIs(t, s.DeleteProject(ctx, 1), ErrAuthRequired)
	assert.Empty(t, h.fake.Requests())
}

func TestFetchProjectsPaginates(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedProjects(h, 12, model.ProjectStatusProposed)
	s := NewProjectStore(h.deps)
	ctx := context.Background()

	require.NoError(t, s.FetchProjects(ctx, nil))
	assert.Len(t, s.Projects(), 10)
	assert.Equal(t, model.ProjectPagination{
		CurrentPage: 1, TotalPages: 2, TotalCount: 12, PerPage: 10, HasNext: true,
	}, s.Pagination())

	require.NoError(t, s.GoToPage(ctx, 2))
	assert.Len(t, s.Projects(), 2, "pages replace, never append")
	assert.Equal(t, 2, s.Pagination().CurrentPage)
	assert.True(t, s.Pagination().HasPrev)
	assert.False(t, s.Loading())
}

func TestFetchProjectsSendsFiltersAndOverrides(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"projects":[],"pagination":{"page":1,"pages":0,"per_page":10,"total":0}}`))
	}))
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	s := NewProjectStore(Deps{Client: client, Session: &fakeSession{loggedIn: true, authenticated: true}})
	ctx := context.Background()

	require.NoError(t, s.FetchProjects(ctx, nil))
	assert.Equal(t, "1", got.Get("page"))
	assert.Equal(t, "10", got.Get("per_page"))
	assert.Equal(t, "created_at", got.Get("sort_by"))
	assert.Equal(t, "desc", got.Get("order"))
	assert.False(t, got.Has("status"))
	assert.False(t, got.Has("search"))

	require.NoError(t, s.Search(ctx, "春"))
	assert.Equal(t, "春", got.Get("search"))

	require.NoError(t, s.FetchProjects(ctx, url.Values{"per_page": {"50"}}))
	assert.Equal(t, "50", got.Get("per_page"))
	assert.Equal(t, "春", got.Get("search"))
}

func TestUpdateFiltersResetsPage(t *testing.T) {
	h := newHarness(t)
	s := NewProjectStore(h.deps)

	s.ChangePage(3)
	require.Equal(t, 3, s.Pagination().CurrentPage)

	completed := model.ProjectStatusCompleted
	s.UpdateFilters(ProjectFilterUpdate{Status: &completed})

	assert.Equal(t, 1, s.Pagination().CurrentPage)
	assert.Equal(t, model.ProjectFilters{
		Status: completed, SortBy: "created_at", Order: "desc",
	}, s.Filters())
	assert.Empty(t, h.fake.Requests(), "UpdateFilters does not fetch")
}

func TestFilterByStatus(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedProjects(h, 3, model.ProjectStatusProposed)
	contracted := seedProjects(h, 2, model.ProjectStatusContracted)
	s := NewProjectStore(h.deps)

	s.ChangePage(2)
	require.NoError(t, s.FilterByStatus(context.Background(), model.ProjectStatusContracted))

	assert.ElementsMatch(t, ids(contracted), ids(s.Projects()))
	assert.Equal(t, 1, s.Pagination().CurrentPage)
}

func TestChangeSort(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seeded := seedProjects(h, 3, model.ProjectStatusProposed)
	s := NewProjectStore(h.deps)

	require.NoError(t, s.ChangeSort(context.Background(), "amount", "asc"))
	assert.Equal(t, ids(seeded), ids(s.Projects()))
	assert.Equal(t, "amount", s.Filters().SortBy)
	assert.Equal(t, "asc", s.Filters().Order)
}

// fresh returns what a brand-new store sees for the same session.
func fresh(t *testing.T, h *harness, s *ProjectStore) []model.Project {
	t.Helper()
	other := NewProjectStore(h.deps)
	p := s.Pagination()
	other.ChangePage(p.CurrentPage)
	require.NoError(t, other.FetchProjects(context.Background(), nil))
	return other.Projects()
}

func TestProjectMutationsRefetchListing(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedProjects(h, 2, model.ProjectStatusProposed)
	s := NewProjectStore(h.deps)
	ctx := context.Background()
	require.NoError(t, s.FetchProjects(ctx, nil))

	amount := model.Amount(300000)
	require.NoError(t, s.CreateProject(ctx, model.ProjectInput{
		CompanyName: "ベリー株式会社",
		ProjectName: "夏のPR",
		Amount:      &amount,
		Deadline:    "2026-08-01",
	}))
	assert.Len(t, s.Projects(), 3)
	assert.Equal(t, fresh(t, h, s), s.Projects())

	created := s.Projects()[0]
	require.Equal(t, "ベリー株式会社", created.CompanyName)

	require.NoError(t, s.UpdateProject(ctx, created.ID, model.ProjectInput{Status: model.ProjectStatusContracted}))
	require.NotNil(t, s.Current())
	assert.Equal(t, model.ProjectStatusContracted, s.Current().Status)
	assert.Equal(t, fresh(t, h, s), s.Projects())

	require.NoError(t, s.DeleteProject(ctx, created.ID))
	assert.Nil(t, s.Current())
	assert.Len(t, s.Projects(), 2)
	assert.Equal(t, fresh(t, h, s), s.Projects())
	assert.False(t, s.Loading())
}

func TestFetchProject(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	p := seedProjects(h, 1, model.ProjectStatusCompleted)[0]
	s := NewProjectStore(h.deps)

	require.NoError(t, s.FetchProject(context.Background(), p.ID))
	require.NotNil(t, s.Current())
	assert.Equal(t, p.ID, s.Current().ID)
	assert.Empty(t, s.Projects(), "detail does not touch the listing")

	err := s.FetchProject(context.Background(), 9999)
	require.Error(t, err)
	assert.Equal(t, "プロジェクトが見つかりません", s.Error())
}

func TestProjectFailureMessages(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	s := NewProjectStore(h.deps)
	ctx := context.Background()

	h.fake.Fail(http.MethodGet, "/api/projects/", http.StatusInternalServerError, "")
	err := s.FetchProjects(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, "プロジェクトの取得に失敗しました", s.Error())
	assert.False(t, s.Loading())

	h.fake.Fail(http.MethodPost, "/api/projects/", http.StatusBadRequest, "企業名は必須です")
	err = s.CreateProject(ctx, model.ProjectInput{})
	require.Error(t, err)
	assert.Equal(t, "企業名は必須です", s.Error())

	s.ClearError()
	assert.Empty(t, s.Error())
}

func TestProjectDerivedCounts(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedProjects(h, 2, model.ProjectStatusProposed)
	seedProjects(h, 3, model.ProjectStatusContracted)
	seedProjects(h, 1, model.ProjectStatusCompleted)
	s := NewProjectStore(h.deps)
	require.NoError(t, s.FetchProjects(context.Background(), nil))

	assert.Equal(t, 2, s.ProposedCount())
	assert.Equal(t, 3, s.ContractedCount())
	assert.Equal(t, 1, s.CompletedCount())
	assert.Equal(t, 5, s.ActiveCount())
	assert.Equal(t, 5, s.PendingCount())
	assert.Equal(t, 6, s.TotalCount())
	assert.Len(t, s.ByStatus(model.ProjectStatusContracted), 3)
	// 10000+20000 + 10000+20000+30000 + 10000
	assert.InDelta(t, 100000, s.TotalAmount(), 0.001)
}

func TestStaleProjectListingIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "1" {
			close(started)
			<-release
		}
		id := 1
		if page == "2" {
			id = 2
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"projects":   []map[string]any{{"id": id, "company_name": "c"}},
			"pagination": map[string]any{"page": id, "pages": 2, "per_page": 10, "total": 11},
		})
	}))
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	s := NewProjectStore(Deps{Client: client, Session: &fakeSession{loggedIn: true, authenticated: true}})
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- s.FetchProjects(ctx, url.Values{"page": {"1"}}) }()
	<-started

	require.NoError(t, s.FetchProjects(ctx, url.Values{"page": {"2"}}))
	close(release)
	require.NoError(t, <-slow)

	require.Len(t, s.Projects(), 1)
	assert.Equal(t, int64(2), s.Projects()[0].ID)
	assert.Equal(t, 2, s.Pagination().CurrentPage)
	assert.False(t, s.Loading())
}

func TestStaleProjectListingFailureIsReported(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			close(started)
			<-release
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"projects":   []map[string]any{{"id": 2, "company_name": "c"}},
			"pagination": map[string]any{"page": 2, "pages": 2, "per_page": 10, "total": 11},
		})
	}))
	t.Cleanup(srv.Close)
	client, err := api.NewClient(api.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	s := NewProjectStore(Deps{Client: client, Session: &fakeSession{loggedIn: true, authenticated: true}})
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- s.FetchProjects(ctx, url.Values{"page": {"1"}}) }()
	<-started

	require.NoError(t, s.FetchProjects(ctx, url.Values{"page": {"2"}}))
	close(release)

	err = <-slow
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, http.StatusInternalServerError, api.StatusCode(err))

	assert.Empty(t, s.Error())
	require.Len(t, s.Projects(), 1)
	assert.Equal(t, int64(2), s.Projects()[0].ID)
}

func TestProjectWarmFromSnapshot(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedProjects(h, 3, model.ProjectStatusProposed)
	ctx := context.Background()

	first := NewProjectStore(h.deps)
	require.NoError(t, first.FetchProjects(ctx, nil))

	second := NewProjectStore(h.deps)
	assert.True(t, second.Warm(ctx))
	assert.Equal(t, ids(first.Projects()), ids(second.Projects()))
	assert.Equal(t, first.Pagination(), second.Pagination())
	assert.False(t, second.Warm(ctx), "only an empty store is warmed")
}

func TestProjectReset(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedProjects(h, 1, model.ProjectStatusProposed)
	s := NewProjectStore(h.deps)
	require.NoError(t, s.FilterByStatus(context.Background(), model.ProjectStatusProposed))

	s.Reset()
	assert.Empty(t, s.Projects())
	assert.Nil(t, s.Current())
	assert.Equal(t, model.DefaultProjectPagination(), s.Pagination())
	assert.Equal(t, model.DefaultProjectFilters(), s.Filters())
}

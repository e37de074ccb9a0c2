package state

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/model"
)

func seedInvoices(h *harness, statuses ...string) []model.Invoice {
	out := make([]model.Invoice, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, h.fake.AddInvoice(model.Invoice{
			UserID:        h.user.ID,
			ClientCompany: "ベリー株式会社",
			Status:        st,
			Subtotal:      model.Amount(1000 * (i + 1)),
			TotalAmount:   model.Amount(1100 * (i + 1)),
		}))
	}
	return out
}

func TestInvoicesRequireAuthentication(t *testing.T) {
	h := newHarness(t)
	s := NewInvoiceStore(h.deps)
	ctx := context.Background()

	err := s.FetchInvoices(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, "認証が必要です", s.Error())

	_, err = s.CreateInvoiceFromProject(ctx, 1)
	assert.ErrorIs(t, err, ErrAuthRequired)
	_, err = s.CreateInvoice(ctx, model.InvoiceInput{ClientCompany: "x"})
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.ErrorIs(t, s.UpdateInvoice(ctx, 1, model.InvoiceInput{}), ErrAuthRequired)
	assert.ErrorIs(t, s.DeleteInvoice(ctx, 1), ErrAuthRequired)

	assert.Empty(t, h.fake.Requests())
	assert.False(t, s.Loading())
}

func TestFetchInvoices(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seeded := seedInvoices(h, model.InvoiceStatusDraft, model.InvoiceStatusPaid, model.InvoiceStatusSent)
	s := NewInvoiceStore(h.deps)

	require.NoError(t, s.FetchInvoices(context.Background(), 0, 0))

	got := s.Invoices()
	require.Len(t, got, 3)
	assert.Equal(t, seeded[2].ID, got[0].ID, "newest first")
	assert.Equal(t, 3, s.TotalInvoices())
	assert.True(t, s.HasInvoices())
	assert.Equal(t, 1, s.Pagination().Page)
	assert.False(t, s.Loading())
}

func TestFetchInvoicesPaging(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedInvoices(h, model.InvoiceStatusDraft, model.InvoiceStatusDraft, model.InvoiceStatusDraft)
	s := NewInvoiceStore(h.deps)
	ctx := context.Background()

	require.NoError(t, s.FetchInvoices(ctx, 2, 2))
	assert.Len(t, s.Invoices(), 1)
	assert.Equal(t, model.Pagination{Page: 2, Pages: 2, PerPage: 2, Total: 3, HasPrev: true}, s.Pagination())

	// zero keeps the current cursor
	require.NoError(t, s.FetchInvoices(ctx, 0, 0))
	assert.Equal(t, 2, s.Pagination().Page)
	assert.Equal(t, 2, s.Pagination().PerPage)
}

func TestCreateInvoiceFromProject(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedInvoices(h, model.InvoiceStatusDraft)
	p := h.fake.AddProject(model.Project{UserID: h.user.ID, CompanyName: "ベリー株式会社", ProjectName: "夏のPR", Amount: 100000})
	s := NewInvoiceStore(h.deps)
	ctx := context.Background()
	require.NoError(t, s.FetchInvoices(ctx, 0, 0))
	before := s.TotalInvoices()

	inv, err := s.CreateInvoiceFromProject(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, before+1, s.TotalInvoices())
	assert.Equal(t, inv.ID, s.Invoices()[0].ID)
	assert.InDelta(t, 110000, float64(inv.TotalAmount), 0.001)
	require.NotNil(t, s.Current())
	assert.Equal(t, inv.ID, s.Current().ID)
	require.NotNil(t, inv.ProjectID)
	assert.Equal(t, p.ID, *inv.ProjectID)
}

func TestCreateInvoiceFromUnknownProject(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	s := NewInvoiceStore(h.deps)

	_, err := s.CreateInvoiceFromProject(context.Background(), 9999)
	require.Error(t, err)
	assert.Equal(t, "プロジェクトが見つかりません", s.Error())
	assert.Zero(t, s.TotalInvoices())
}

func TestCreateAndDeleteInvoiceAdjustTotal(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedInvoices(h, model.InvoiceStatusDraft, model.InvoiceStatusSent)
	s := NewInvoiceStore(h.deps)
	ctx := context.Background()
	require.NoError(t, s.FetchInvoices(ctx, 0, 0))

	subtotal := model.Amount(50000)
	inv, err := s.CreateInvoice(ctx, model.InvoiceInput{ClientCompany: "春株式会社", Subtotal: &subtotal})
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalInvoices())
	assert.Len(t, s.Invoices(), 3)

	require.NoError(t, s.DeleteInvoice(ctx, inv.ID))
	assert.Equal(t, 2, s.TotalInvoices())
	assert.Len(t, s.Invoices(), 2)
	assert.Nil(t, s.Current())
	for _, got := range s.Invoices() {
		assert.NotEqual(t, inv.ID, got.ID)
	}
}

func TestUpdateInvoicePatchesInPlace(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seeded := seedInvoices(h, model.InvoiceStatusDraft, model.InvoiceStatusDraft)
	s := NewInvoiceStore(h.deps)
	ctx := context.Background()
	require.NoError(t, s.FetchInvoices(ctx, 0, 0))
	require.NoError(t, s.FetchInvoice(ctx, seeded[0].ID))
	listings := h.fake.Count(http.MethodGet, "/api/invoices/")

	require.NoError(t, s.UpdateInvoice(ctx, seeded[0].ID, model.InvoiceInput{Status: model.InvoiceStatusPaid}))

	got := s.Invoices()
	require.Len(t, got, 2)
	assert.Equal(t, seeded[0].ID, got[1].ID, "position is kept")
	assert.Equal(t, model.InvoiceStatusPaid, got[1].Status)
	assert.Equal(t, model.InvoiceStatusPaid, s.Current().Status)
	assert.Equal(t, listings, h.fake.Count(http.MethodGet, "/api/invoices/"), "no re-fetch")
}

func TestUpdateInvoiceReloadsWhenReplyHasNoRecord(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	inv := seedInvoices(h, model.InvoiceStatusSent)[0]
	s := NewInvoiceStore(h.deps)
	ctx := context.Background()
	require.NoError(t, s.FetchInvoices(ctx, 0, 0))

	path := "/api/invoices/" + strconv.FormatInt(inv.ID, 10)
	h.fake.FailRaw(http.MethodPut, path, http.StatusOK, `{"success":true,"message":"更新しました"}`)

	require.NoError(t, s.UpdateInvoice(ctx, inv.ID, model.InvoiceInput{Status: model.InvoiceStatusPaid}))
	assert.Equal(t, 1, h.fake.Count(http.MethodGet, path))
	assert.Equal(t, model.InvoiceStatusSent, s.Invoices()[0].Status, "the reloaded record wins")
}

func TestInvoiceSuccessFalseIsFailure(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	s := NewInvoiceStore(h.deps)
	ctx := context.Background()

	h.fake.FailRaw(http.MethodGet, "/api/invoices/", http.StatusOK, `{"success":false,"error":"集計中です"}`)
	err := s.FetchInvoices(ctx, 0, 0)
	require.Error(t, err)
	assert.Equal(t, "集計中です", s.Error())

	h.fake.FailRaw(http.MethodGet, "/api/invoices/", http.StatusOK, `{"success":false}`)
	require.Error(t, s.FetchInvoices(ctx, 0, 0))
	assert.Equal(t, "請求書一覧の取得に失敗しました", s.Error())
	assert.False(t, s.Loading())
}

func TestInvoiceTransportFailureUsesNetworkMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()
	client, err := api.NewClient(api.Options{BaseURL: base})
	require.NoError(t, err)

	s := NewInvoiceStore(Deps{Client: client, Session: &fakeSession{authenticated: true}})
	err = s.FetchInvoices(context.Background(), 0, 0)
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))
	assert.Equal(t, "ネットワークエラーが発生しました", s.Error())
	assert.False(t, s.Loading())
}

func TestInvoiceStats(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedInvoices(h, model.InvoiceStatusDraft, model.InvoiceStatusPaid, model.InvoiceStatusPaid)
	s := NewInvoiceStore(h.deps)

	empty := s.Stats()
	for _, st := range model.InvoiceStatuses {
		assert.Contains(t, empty.Counts, st)
		assert.Zero(t, empty.Count(st))
	}

	require.NoError(t, s.FetchInvoices(context.Background(), 0, 0))
	stats := s.Stats()
	assert.Equal(t, 1, stats.Count(model.InvoiceStatusDraft))
	assert.Equal(t, 2, stats.Count(model.InvoiceStatusPaid))
	assert.Zero(t, stats.Count(model.InvoiceStatusOverdue))
	assert.InDelta(t, 1100+2200+3300, stats.TotalAmount, 0.001)
	assert.InDelta(t, 2200+3300, stats.PaidAmount, 0.001)
}

func TestInvoiceWarmAndReset(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	seedInvoices(h, model.InvoiceStatusDraft, model.InvoiceStatusSent)
	ctx := context.Background()

	first := NewInvoiceStore(h.deps)
	require.NoError(t, first.FetchInvoices(ctx, 0, 0))

	second := NewInvoiceStore(h.deps)
	require.True(t, second.Warm(ctx))
	assert.Len(t, second.Invoices(), 2)
	assert.Equal(t, 2, second.TotalInvoices())

	second.Reset()
	assert.False(t, second.HasInvoices())
	assert.Equal(t, model.DefaultPagination(), second.Pagination())
	assert.Empty(t, second.Error())
}

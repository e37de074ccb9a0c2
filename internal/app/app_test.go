package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/berrydesk/internal/model"
	appsync "github.com/nhle/berrydesk/internal/sync"
	"github.com/nhle/berrydesk/internal/testutil"
)

const (
	testEmail    = "hanako@example.com"
	testPassword = "secret123"
)

func testConfig(t *testing.T, baseURL string) *model.AppConfig {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.Display.RefreshIntervalSec = 3600
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	cfg.Log.File = ""
	return cfg
}

func arrayKeyring() (keyring.Keyring, error) {
	return keyring.NewArrayKeyring(nil), nil
}

func newTestServices(t *testing.T) (*Services, *testutil.FakeAPI, model.User) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	user := fake.AddUser(testEmail, testPassword, "はなこ")

	s, err := NewServicesWithKeyring(testConfig(t, fake.URL()), filepath.Join(t.TempDir(), "config.yaml"), arrayKeyring)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, fake, user
}

func TestNewServicesWiresStores(t *testing.T) {
	s, fake, user := newTestServices(t)
	ctx := context.Background()

	require.NotNil(t, s.Snapshots)

	fake.AddProject(model.Project{UserID: user.ID, CompanyName: "Berry Co", ProjectName: "Spring", Amount: 50000})

	_, err := s.Auth.Login(ctx, testEmail, testPassword, true)
	require.NoError(t, err)
	require.NoError(t, s.Projects.FetchProjects(ctx, nil))

	require.Len(t, s.Projects.Projects(), 1)
	assert.Equal(t, "Berry Co", s.Projects.Projects()[0].CompanyName)
}

func TestNewServicesWithoutCache(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser(testEmail, testPassword, "")

	cfg := testConfig(t, fake.URL())
	cfg.Cache.Enabled = false

	s, err := NewServicesWithKeyring(cfg, "", arrayKeyring)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	assert.Nil(t, s.Snapshots)

	ctx := context.Background()
	_, err = s.Auth.Login(ctx, testEmail, testPassword, false)
	require.NoError(t, err)
	require.NoError(t, s.Projects.FetchProjects(ctx, nil))
	assert.False(t, s.Projects.Warm(ctx))
}

func TestNewServicesSurvivesMissingKeyring(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.AddUser(testEmail, testPassword, "")

	s, err := NewServicesWithKeyring(testConfig(t, fake.URL()), "", func() (keyring.Keyring, error) {
		return nil, errors.New("no backend")
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.Auth.Login(context.Background(), testEmail, testPassword, true)
	require.NoError(t, err)
	assert.True(t, s.Auth.IsLoggedIn())
}

func TestNewServicesRejectsBadBaseURL(t *testing.T) {
	cfg := testConfig(t, "not a url")
	_, err := NewServicesWithKeyring(cfg, "", arrayKeyring)
	require.Error(t, err)
}

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "berrydesk.log")
	logger, closer := newLogger(model.LogConfig{Level: "debug", File: path})
	require.NotNil(t, closer)
	defer closer.Close()

	logger.Debug("hello")
	assert.FileExists(t, path)
	assert.Equal(t, "debug", logger.GetLevel().String())
}

func TestNewLoggerBadLevelFallsBackToInfo(t *testing.T) {
	logger, closer := newLogger(model.LogConfig{Level: "loud"})
	assert.Nil(t, closer)
	assert.Equal(t, "info", logger.GetLevel().String())
}

// update feeds msg to m and returns the concrete model.
func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sessionResult() appsync.RefreshResultMsg {
	return appsync.RefreshResultMsg{Job: appsync.JobSession, At: time.Now()}
}

func TestStartupWithoutSessionShowsLogin(t *testing.T) {
	s, _, _ := newTestServices(t)

	m := New(s)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, ViewStarting, m.currentView)

	m = update(t, m, sessionResult())
	assert.Equal(t, ViewLogin, m.currentView)
}

func loggedInModel(t *testing.T) (Model, *Services, *testutil.FakeAPI) {
	t.Helper()
	s, fake, _ := newTestServices(t)
	_, err := s.Auth.Login(context.Background(), testEmail, testPassword, false)
	require.NoError(t, err)

	m := New(s)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, sessionResult())
	require.Equal(t, ViewDashboard, m.currentView)
	return m, s, fake
}

func TestStartupWithSessionShowsDashboard(t *testing.T) {
	m, _, _ := loggedInModel(t)

	view := m.View()
	assert.Contains(t, view, "berrydesk")
	assert.Contains(t, view, "Invoices")
}

func TestTabsCycle(t *testing.T) {
	m, _, _ := loggedInModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabInvoices, m.activeTab)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabTodos, m.activeTab)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, TabProjects, m.activeTab)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, TabTodos, m.activeTab)
}

func TestModalsFollowUIStore(t *testing.T) {
	m, s, _ := loggedInModel(t)

	m = update(t, m, runes(","))
	assert.True(t, s.UI.ShowSettings())
	assert.Contains(t, m.View(), "Settings")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, s.UI.AnyOpen())

	m = update(t, m, runes("b"))
	assert.True(t, s.UI.ShowBasicData())
	assert.Contains(t, m.View(), "Basic data")

	// Keys go to the open modal, not the global bindings.
	m = update(t, m, runes(","))
	assert.False(t, s.UI.ShowSettings())
	assert.True(t, s.UI.ShowBasicData())

	update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, s.UI.AnyOpen())
}

func TestHelpToggles(t *testing.T) {
	m, _, _ := loggedInModel(t)

	m = update(t, m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	m = update(t, m, runes("?"))
	assert.Equal(t, ViewDashboard, m.currentView)
}

func TestExpiredSessionReturnsToLogin(t *testing.T) {
	m, s, fake := loggedInModel(t)
	s.UI.OpenSettings()

	fake.ExpireSessions()
	require.Error(t, s.Projects.FetchProjects(context.Background(), nil))
	require.False(t, s.Auth.IsLoggedIn())

	type tick struct{}
	m = update(t, m, tick{})
	assert.Equal(t, ViewLogin, m.currentView)
	assert.False(t, s.UI.AnyOpen())
	assert.Empty(t, s.Projects.Projects())
}

func TestSessionJobLogsOutDashboard(t *testing.T) {
	m, s, fake := loggedInModel(t)

	fake.ExpireSessions()
	require.Error(t, s.Auth.CheckAuthStatus(context.Background()))

	m = update(t, m, sessionResult())
	assert.Equal(t, ViewLogin, m.currentView)
}

func TestLogoutCommand(t *testing.T) {
	m, s, _ := loggedInModel(t)

	_, cmd := m.Update(runes("L"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.IsType(t, loggedOutMsg{}, msg)
	assert.False(t, s.Auth.IsLoggedIn())

	m = update(t, m, msg)
	assert.Equal(t, ViewLogin, m.currentView)
}

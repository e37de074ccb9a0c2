package state

import (
	"context"
	"testing"

	"github.com/99designs/keyring"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/credential"
	"github.com/nhle/berrydesk/internal/i18n"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/store"
	"github.com/nhle/berrydesk/internal/testutil"
)

const (
	testEmail    = "hanako@example.com"
	testPassword = "secret123"
)

type harness struct {
	fake      *testutil.FakeAPI
	client    *api.Client
	msgs      *i18n.Catalog
	vault     *credential.Vault
	snapshots *store.SQLiteStore
	auth      *AuthStore
	user      model.User
	deps      Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fake := testutil.NewFakeAPI(t)
	user := fake.AddUser(testEmail, testPassword, "はなこ")

	logger, _ := logtest.NewNullLogger()
	client, err := api.NewClient(api.Options{BaseURL: fake.URL(), Logger: logger})
	require.NoError(t, err)

	msgs := i18n.MustNew("ja")
	vault := credential.NewVault(keyring.NewArrayKeyring(nil))
	snapshots := testutil.NewTestStore(t)

	auth := NewAuthStore(client, msgs, AuthOptions{
		Vault:     vault,
		Snapshots: snapshots,
		Logger:    logger,
	})

	return &harness{
		fake:      fake,
		client:    client,
		msgs:      msgs,
		vault:     vault,
		snapshots: snapshots,
		auth:      auth,
		user:      user,
		deps: Deps{
			Client:    client,
			Session:   auth,
			Messages:  msgs,
			Logger:    logger,
			Snapshots: snapshots,
		},
	}
}

// login signs the harness user in.
func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.auth.Login(context.Background(), testEmail, testPassword, false)
	require.NoError(t, err)
	require.True(t, h.auth.IsLoggedIn())
}

// fakeSession is a Session whose answers are set by the test.
type fakeSession struct {
	loggedIn      bool
	authenticated bool
	uid           int64
	logouts       int
}

func (f *fakeSession) IsAuthenticated() bool { return f.authenticated }
func (f *fakeSession) IsLoggedIn() bool      { return f.loggedIn }
func (f *fakeSession) UserID() int64         { return f.uid }
func (f *fakeSession) Logout(context.Context) {
	f.logouts++
	f.loggedIn = false
	f.authenticated = false
}

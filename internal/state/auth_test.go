package state

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/store"
)

func assertSessionConsistent(t *testing.T, s *AuthStore) {
	t.Helper()
	assert.Equal(t, s.IsAuthenticated(), s.User() != nil)
	assert.Equal(t, s.IsLoggedIn(), s.IsAuthenticated() && s.User() != nil)
}

func TestLoginSuccess(t *testing.T) {
	h := newHarness(t)

	msg, err := h.auth.Login(context.Background(), testEmail, testPassword, false)
	require.NoError(t, err)

	assert.Equal(t, "ログインしました", msg)
	assert.True(t, h.auth.IsLoggedIn())
	assert.Equal(t, h.user.ID, h.auth.UserID())
	assert.Equal(t, "はなこ", h.auth.UserName())
	assert.Empty(t, h.auth.Error())
	assert.False(t, h.auth.Loading())
	assertSessionConsistent(t, h.auth)
}

func TestLoginWrongPasswordUsesServerMessage(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.Login(context.Background(), testEmail, "nope", false)
	require.Error(t, err)

	var ae *ActionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "メールアドレスまたはパスワードが正しくありません", ae.Error())
	assert.Equal(t, ae.Error(), h.auth.Error())
	assert.False(t, h.auth.IsLoggedIn())
	assert.False(t, h.auth.Loading())
	assertSessionConsistent(t, h.auth)
}

func TestLoginWithoutUserPayloadFails(t *testing.T) {
	h := newHarness(t)
	h.fake.FailRaw(http.MethodPost, "/api/auth/login", http.StatusOK, `{"message":"ok"}`)

	_, err := h.auth.Login(context.Background(), testEmail, testPassword, false)
	require.Error(t, err)
	assert.Equal(t, "ログインに失敗しました", h.auth.Error())
	assert.False(t, h.auth.IsLoggedIn())
}

func TestLoginNetworkFailureUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	client, err := api.NewClient(api.Options{BaseURL: base})
	require.NoError(t, err)
	auth := NewAuthStore(client, nil, AuthOptions{})

	_, err = auth.Login(context.Background(), testEmail, testPassword, false)
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))
	assert.Equal(t, "ログインに失敗しました", auth.Error())
	assert.False(t, auth.Loading())
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.auth.Register(ctx, "taro", "taro@example.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "登録が完了しました", msg)
	assert.True(t, h.auth.IsLoggedIn())
	assert.Equal(t, "taro", h.auth.User().Username)

	h.auth.Logout(ctx)
	_, err = h.auth.Register(ctx, "taro2", "taro@example.com", "pw123456")
	require.Error(t, err)
	assert.Equal(t, "このメールアドレスは既に登録されています", h.auth.Error())
	assert.False(t, h.auth.IsLoggedIn())
}

func TestRegisterFallbackMessage(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(http.MethodPost, "/api/auth/register", http.StatusInternalServerError, "")

	_, err := h.auth.Register(context.Background(), "taro", "taro@example.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "新規登録に失敗しました", h.auth.Error())
}

func TestLogoutAlwaysClears(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.Login(ctx, testEmail, testPassword, true)
	require.NoError(t, err)

	require.NoError(t, h.snapshots.SaveSnapshot(ctx, h.user.ID, store.ResourceTodos, []model.Todo{{ID: 1}}, nil))
	h.fake.Fail(http.MethodPost, "/api/auth/logout", http.StatusInternalServerError, "boom")

	h.auth.Logout(ctx)

	assert.False(t, h.auth.IsLoggedIn())
	assert.Nil(t, h.auth.User())
	assert.Empty(t, h.auth.Error())
	assert.False(t, h.auth.Loading())
	assert.Empty(t, h.client.Cookies())
	assertSessionConsistent(t, h.auth)

	remembered, err := h.vault.LoadSession(h.client.Host())
	require.NoError(t, err)
	assert.Empty(t, remembered)

	var todos []model.Todo
	_, found, err := h.snapshots.LoadSnapshot(ctx, h.user.ID, store.ResourceTodos, &todos, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLogoutAfterExpiryKeepsExpiredMessage(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.ExpireSessions()

	h.auth.Logout(context.Background())

	assert.False(t, h.auth.IsLoggedIn())
	assert.Equal(t, "認証の有効期限が切れました。再度ログインしてください。", h.auth.Error())
	assert.Empty(t, h.client.Cookies())
	assertSessionConsistent(t, h.auth)
}

func TestLogoutClearsErrorOnSuccess(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.Fail(http.MethodPut, "/api/users/profile", http.StatusInternalServerError, "boom")
	_, err := h.auth.UpdateUserProfile(context.Background(), model.ProfileUpdate{InfluencerName: "x"})
	require.Error(t, err)
	require.NotEmpty(t, h.auth.Error())
	h.fake.ClearFailures()

	h.auth.Logout(context.Background())
	assert.Empty(t, h.auth.Error())
}

func TestLogoutDropsCookies(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.auth.Logout(context.Background())

	err := h.auth.GetCurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestGetCurrentUser(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	require.NoError(t, h.auth.GetCurrentUser(context.Background()))
	assert.Equal(t, testEmail, h.auth.User().Email)
	assertSessionConsistent(t, h.auth)
}

func TestGetCurrentUserUnauthorizedIsSilent(t *testing.T) {
	h := newHarness(t)

	err := h.auth.GetCurrentUser(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.True(t, api.IsUnauthorized(err))
	assert.Empty(t, h.auth.Error())
	assert.False(t, h.auth.IsLoggedIn())
	assert.False(t, h.auth.Loading())
}

func TestGetCurrentUserServerError(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.Fail(http.MethodGet, "/api/auth/me", http.StatusInternalServerError, "")

	err := h.auth.GetCurrentUser(context.Background())
	require.Error(t, err)
	assert.Equal(t, "ユーザー情報の取得に失敗しました", h.auth.Error())
	assert.False(t, h.auth.IsLoggedIn())
}

func TestCheckAuthStatusRestoresRememberedSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Login(context.Background(), testEmail, testPassword, true)
	require.NoError(t, err)

	// A fresh process: new client, same keyring.
	client, err := api.NewClient(api.Options{BaseURL: h.fake.URL()})
	require.NoError(t, err)
	auth := NewAuthStore(client, h.msgs, AuthOptions{Vault: h.vault})

	require.NoError(t, auth.CheckAuthStatus(context.Background()))
	assert.True(t, auth.IsLoggedIn())
	assert.Equal(t, h.user.ID, auth.UserID())
}

func TestLoginWithoutRememberForgetsVault(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.Login(ctx, testEmail, testPassword, true)
	require.NoError(t, err)
	_, err = h.auth.Login(ctx, testEmail, testPassword, false)
	require.NoError(t, err)

	remembered, err := h.vault.LoadSession(h.client.Host())
	require.NoError(t, err)
	assert.Empty(t, remembered)
}

func TestCheckAuthStatusWithoutSession(t *testing.T) {
	h := newHarness(t)
	err := h.auth.CheckAuthStatus(context.Background())
	assert.True(t, errors.Is(err, ErrNotLoggedIn))
	assert.Empty(t, h.auth.Error())
}

func TestAnyUnauthorizedResponseEndsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	projects := NewProjectStore(h.deps)

	h.fake.ExpireSessions()
	err := projects.FetchProjects(context.Background(), nil)
	require.Error(t, err)

	assert.False(t, h.auth.IsLoggedIn())
	assert.Equal(t, "認証の有効期限が切れました。再度ログインしてください。", h.auth.Error())
	assertSessionConsistent(t, h.auth)
}

func TestUpdateUserProfile(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	msg, err := h.auth.UpdateUserProfile(context.Background(), model.ProfileUpdate{InfluencerName: "ハナコ"})
	require.NoError(t, err)
	assert.Equal(t, "プロフィールを更新しました", msg)
	assert.Equal(t, "ハナコ", h.auth.UserName())
}

func TestUpdateUserProfileFailureKeepsUser(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.Fail(http.MethodPut, "/api/users/profile", http.StatusBadRequest, "")

	_, err := h.auth.UpdateUserProfile(context.Background(), model.ProfileUpdate{InfluencerName: "x"})
	require.Error(t, err)
	assert.Equal(t, "プロフィール更新に失敗しました", h.auth.Error())
	assert.True(t, h.auth.IsLoggedIn())
	assert.Equal(t, "はなこ", h.auth.UserName())
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	_, err := h.auth.ChangePassword(ctx, model.PasswordChange{
		CurrentPassword: "wrong", NewPassword: "n", ConfirmPassword: "n",
	})
	require.Error(t, err)
	assert.Equal(t, "現在のパスワードが正しくありません", h.auth.Error())

	msg, err := h.auth.ChangePassword(ctx, model.PasswordChange{
		CurrentPassword: testPassword, NewPassword: "newpass1", ConfirmPassword: "newpass1",
	})
	require.NoError(t, err)
	assert.Equal(t, "パスワードを変更しました", msg)
	assert.Empty(t, h.auth.Error())
}

func TestUserNameFallsBackToGuest(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "ゲスト", h.auth.UserName())
	assert.Equal(t, int64(0), h.auth.UserID())
	assert.Nil(t, h.auth.User())
}

func TestClearError(t *testing.T) {
	h := newHarness(t)
	_, _ = h.auth.Login(context.Background(), testEmail, "bad", false)
	require.NotEmpty(t, h.auth.Error())

	h.auth.ClearError()
	assert.Empty(t, h.auth.Error())
}

type brokenVault struct{}

func (brokenVault) SaveSession(string, []*http.Cookie) error   { return errors.New("keyring locked") }
func (brokenVault) LoadSession(string) ([]*http.Cookie, error) { return nil, errors.New("keyring locked") }
func (brokenVault) DeleteSession(string) error                 { return errors.New("keyring locked") }

func TestVaultFailureDoesNotBreakSession(t *testing.T) {
	h := newHarness(t)
	auth := NewAuthStore(h.client, h.msgs, AuthOptions{Vault: brokenVault{}})
	ctx := context.Background()

	_, err := auth.Login(ctx, testEmail, testPassword, true)
	require.NoError(t, err)
	assert.True(t, auth.IsLoggedIn())

	require.NoError(t, auth.CheckAuthStatus(ctx))
	assert.True(t, auth.IsLoggedIn())

	auth.Logout(ctx)
	assert.False(t, auth.IsLoggedIn())
}

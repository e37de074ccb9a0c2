package state

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/i18n"
	"github.com/nhle/berrydesk/internal/model"
	"github.com/nhle/berrydesk/internal/store"
)

// SessionVault remembers session cookies between runs.
// *credential.Vault implements it.
type SessionVault interface {
	SaveSession(host string, cookies []*http.Cookie) error
	LoadSession(host string) ([]*http.Cookie, error)
	DeleteSession(host string) error
}

// AuthOptions holds the optional collaborators of an AuthStore.
type AuthOptions struct {
	Vault     SessionVault
	Snapshots store.Store
	Logger    logrus.FieldLogger
}

// AuthStore owns the signed-in user. It installs a response interceptor on
// its client so that any 401, whichever store caused it, ends the session.
type AuthStore struct {
	client    SessionClient
	msgs      i18n.Translator
	vault     SessionVault
	snapshots store.Store
	logger    logrus.FieldLogger

	inflight atomic.Int32

	mu            sync.RWMutex
	user          *model.User
	authenticated bool
	err           string
}

// NewAuthStore creates the store and registers its 401 interceptor on client.
func NewAuthStore(client SessionClient, msgs i18n.Translator, opts AuthOptions) *AuthStore {
	s := &AuthStore{
		client:    client,
		msgs:      messagesOrDefault(msgs),
		vault:     opts.Vault,
		snapshots: opts.Snapshots,
		logger:    loggerOrDiscard(opts.Logger).WithField("store", "auth"),
	}
	client.Use(s.intercept)
	return s
}

func (s *AuthStore) intercept(info api.ResponseInfo) {
	if info.Status != http.StatusUnauthorized {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"method":     info.Method,
		"path":       info.Path,
		"request_id": info.RequestID,
	}).Info("session rejected by server")

	s.mu.Lock()
	s.user = nil
	s.authenticated = false
	s.err = s.msgs.T("session_expired")
	s.mu.Unlock()
}

func (s *AuthStore) begin() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

func (s *AuthStore) setSession(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.authenticated = u != nil
}

// clearSession drops the user and sets the error field to msg.
func (s *AuthStore) clearSession(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.authenticated = false
	s.err = msg
}

func (s *AuthStore) dropUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.authenticated = false
}

func (s *AuthStore) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *AuthStore) fail(op, fallbackKey string, err error) *ActionError {
	msg := api.ServerMessage(err)
	if msg == "" {
		msg = s.msgs.T(fallbackKey)
	}
	s.logger.WithError(err).WithField("op", op).Warn("action failed")
	return &ActionError{Op: op, Message: msg, Err: err}
}

type userResponse struct {
	api.Envelope
	User *model.User `json:"user"`
}

func (r userResponse) validate(path string) error {
	if err := checked(path, r.Envelope); err != nil {
		return err
	}
	if r.User == nil {
		if r.Error != "" {
			return &api.FailureError{Path: path, Message: r.Error}
		}
		return errMissingPayload
	}
	return nil
}

// Login signs in and returns the server's greeting. With remember set, the
// session cookies are stored in the vault for the next start.
func (s *AuthStore) Login(ctx context.Context, email, password string, remember bool) (string, error) {
	const op, path = "login", "/api/auth/login"
	defer s.begin()()
	s.setError("")

	var resp userResponse
	err := s.client.Post(ctx, path, model.Credentials{
		Email:    email,
		Password: password,
		Remember: remember,
	}, &resp)
	if err == nil {
		err = resp.validate(path)
	}
	if err != nil {
		ae := s.fail(op, "login_failed", err)
		s.clearSession(ae.Message)
		return "", ae
	}

	s.setSession(resp.User)
	s.rememberSession(remember)
	s.logger.WithField("user_id", resp.User.ID).Info("logged in")
	return resp.Message, nil
}

// Register creates an account; the server signs the new user in.
func (s *AuthStore) Register(ctx context.Context, username, email, password string) (string, error) {
	const op, path = "register", "/api/auth/register"
	defer s.begin()()
	s.setError("")

	var resp userResponse
	err := s.client.Post(ctx, path, model.Registration{
		Username: username,
		Email:    email,
		Password: password,
	}, &resp)
	if err == nil {
		err = resp.validate(path)
	}
	if err != nil {
		ae := s.fail(op, "register_failed", err)
		s.clearSession(ae.Message)
		return "", ae
	}

	s.setSession(resp.User)
	s.logger.WithField("user_id", resp.User.ID).Info("registered")
	return resp.Message, nil
}

func (s *AuthStore) rememberSession(remember bool) {
	if s.vault == nil {
		return
	}
	host := s.client.Host()
	var err error
	if remember {
		err = s.vault.SaveSession(host, s.client.Cookies())
	} else {
		err = s.vault.DeleteSession(host)
	}
	if err != nil {
		s.logger.WithError(err).Warn("updating remembered session")
	}
}

// Logout ends the session locally no matter what the server answers. The
// error field is only cleared when the server accepted the logout. It also
// forgets remembered cookies and cached listings of the user.
func (s *AuthStore) Logout(ctx context.Context) {
	defer s.begin()()
	uid := s.UserID()

	if err := s.client.Post(ctx, "/api/auth/logout", nil, nil); err != nil {
		// Keep the error field: a 401 here must not wipe session_expired.
		s.logger.WithError(err).Debug("logout request failed")
		s.dropUser()
	} else {
		s.clearSession("")
	}
	s.client.ClearCookies()

	if s.vault != nil {
		if err := s.vault.DeleteSession(s.client.Host()); err != nil {
			s.logger.WithError(err).Warn("deleting remembered session")
		}
	}
	if s.snapshots != nil && uid != 0 {
		if err := s.snapshots.DeleteSnapshots(ctx, uid); err != nil {
			s.logger.WithError(err).Warn("deleting snapshots")
		}
	}
	s.logger.WithField("user_id", uid).Info("logged out")
}

// GetCurrentUser asks the server who is signed in. A 401 is the ordinary
// signed-out answer: the session is cleared and no message is shown.
func (s *AuthStore) GetCurrentUser(ctx context.Context) error {
	const op, path = "get_current_user", "/api/auth/me"
	defer s.begin()()

	var resp userResponse
	err := s.client.Get(ctx, path, nil, &resp)
	if err == nil {
		err = resp.validate(path)
	}
	if err != nil {
		if api.IsUnauthorized(err) {
			s.clearSession("")
			return &ActionError{Op: op, Err: fmt.Errorf("%w: %w", ErrNotLoggedIn, err)}
		}
		ae := s.fail(op, "fetch_user_failed", err)
		s.clearSession(ae.Message)
		return ae
	}

	s.setSession(resp.User)
	s.setError("")
	return nil
}

// CheckAuthStatus is the startup probe. Remembered cookies are loaded into
// the client first so a previous "remember me" login is resumed.
func (s *AuthStore) CheckAuthStatus(ctx context.Context) error {
	if s.vault != nil && len(s.client.Cookies()) == 0 {
		cookies, err := s.vault.LoadSession(s.client.Host())
		if err != nil {
			s.logger.WithError(err).Warn("loading remembered session")
		} else if len(cookies) > 0 {
			s.client.SetCookies(cookies)
		}
	}
	return s.GetCurrentUser(ctx)
}

// UpdateUserProfile saves profile fields and replaces the user with the
// server's copy.
func (s *AuthStore) UpdateUserProfile(ctx context.Context, data model.ProfileUpdate) (string, error) {
	const op, path = "update_profile", "/api/users/profile"
	defer s.begin()()
	s.setError("")

	var resp userResponse
	err := s.client.Put(ctx, path, data, &resp)
	if err == nil {
		err = resp.validate(path)
	}
	if err != nil {
		ae := s.fail(op, "profile_update_failed", err)
		s.setError(ae.Message)
		return "", ae
	}

	s.setSession(resp.User)
	return resp.Message, nil
}

// ChangePassword changes the password of the signed-in user.
func (s *AuthStore) ChangePassword(ctx context.Context, data model.PasswordChange) (string, error) {
	const op, path = "change_password", "/api/users/change-password"
	defer s.begin()()
	s.setError("")

	var resp api.Envelope
	err := s.client.Post(ctx, path, data, &resp)
	if err == nil {
		err = checked(path, resp)
	}
	if err != nil {
		ae := s.fail(op, "password_change_failed", err)
		s.setError(ae.Message)
		return "", ae
	}
	return resp.Message, nil
}

// ClearError empties the error field.
func (s *AuthStore) ClearError() {
	s.setError("")
}

// User returns a copy of the signed-in user, or nil.
func (s *AuthStore) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserName is the influencer name, or the localized guest label.
func (s *AuthStore) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil && s.user.InfluencerName != "" {
		return s.user.InfluencerName
	}
	return s.msgs.T("guest")
}

// UserID returns the signed-in user's id, or 0.
func (s *AuthStore) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0
	}
	return s.user.ID
}

// IsAuthenticated reports the raw authenticated flag.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// IsLoggedIn is true only when the flag is set and a user is present.
func (s *AuthStore) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated && s.user != nil
}

// Loading reports whether an auth action is in flight.
func (s *AuthStore) Loading() bool {
	return s.inflight.Load() > 0
}

// Error returns the current error message, or "".
func (s *AuthStore) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

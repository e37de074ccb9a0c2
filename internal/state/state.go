// Package state holds the client-side stores that sit between the REST API
// and the terminal UI. Each store owns one slice of application state and
// the actions that change it. Stores are safe for concurrent use; no lock
// is held while a request is in flight.
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/berrydesk/internal/api"
	"github.com/nhle/berrydesk/internal/i18n"
	"github.com/nhle/berrydesk/internal/store"
)

var (
	// ErrAuthRequired is returned when an action needs a signed-in user
	// and none is present. No request is sent.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotLoggedIn is the outcome of probing the session without one.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrStale wraps the failure of a listing request that a newer request
	// superseded. Store state is left untouched.
	ErrStale = errors.New("superseded by a newer request")

	errMissingPayload = errors.New("response did not include the expected record")
)

// ActionError is returned by every store action. Error() yields the
// user-facing (localized or server-provided) message; the cause stays
// reachable through errors.Is / errors.As.
type ActionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *ActionError) Unwrap() error { return e.Err }

// Requester is the subset of *api.Client the resource stores use.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values, result interface{}) error
	Post(ctx context.Context, path string, body, result interface{}) error
	Put(ctx context.Context, path string, body, result interface{}) error
	Delete(ctx context.Context, path string, result interface{}) error
}

// SessionClient is what the auth store needs on top of Requester.
type SessionClient interface {
	Requester
	Use(api.Interceptor)
	Host() string
	Cookies() []*http.Cookie
	SetCookies([]*http.Cookie)
	ClearCookies()
}

// Session is the view of authentication the resource stores depend on.
// *AuthStore implements it.
type Session interface {
	IsAuthenticated() bool
	IsLoggedIn() bool
	UserID() int64
	Logout(ctx context.Context)
}

// Deps bundles what a resource store is constructed with.
type Deps struct {
	Client   Requester
	Session  Session
	Messages i18n.Translator

	// Logger defaults to a discarding logger.
	Logger logrus.FieldLogger

	// Snapshots is optional; without it listings are not cached.
	Snapshots store.Store
}

// base carries the collaborators and the loading counter every store shares.
type base struct {
	client    Requester
	session   Session
	msgs      i18n.Translator
	logger    logrus.FieldLogger
	snapshots store.Store

	inflight atomic.Int32
}

func (b *base) init(d Deps, component string) {
	b.client = d.Client
	b.session = d.Session
	b.msgs = messagesOrDefault(d.Messages)
	b.logger = loggerOrDiscard(d.Logger).WithField("store", component)
	b.snapshots = d.Snapshots
}

func messagesOrDefault(t i18n.Translator) i18n.Translator {
	if t != nil {
		return t
	}
	return i18n.MustNew(i18n.DefaultLanguage)
}

func loggerOrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}

// begin marks an action in flight. The returned func must be deferred.
func (b *base) begin() func() {
	b.inflight.Add(1)
	return func() { b.inflight.Add(-1) }
}

// Loading reports whether any action of the store is in flight.
func (b *base) Loading() bool {
	return b.inflight.Load() > 0
}

// failure builds the ActionError for op. The server's own message wins over
// the localized fallback.
func (b *base) failure(op, fallbackKey string, err error) *ActionError {
	msg := api.ServerMessage(err)
	if msg == "" {
		msg = b.msgs.T(fallbackKey)
	}
	b.logger.WithError(err).WithField("op", op).Warn("action failed")
	return &ActionError{Op: op, Message: msg, Err: err}
}

// stale reports the outcome of a superseded listing request.
func (b *base) stale(op string, err error) error {
	b.logger.WithField("op", op).Debug("discarding stale listing")
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStale, err)
}

// fixedFailure is failure for ops whose message never comes from the server.
func (b *base) fixedFailure(op, key string, err error) *ActionError {
	b.logger.WithError(err).WithField("op", op).Warn("action failed")
	return &ActionError{Op: op, Message: b.msgs.T(key), Err: err}
}

// denied is the pre-check failure; it never reaches the network.
func (b *base) denied(op string) *ActionError {
	b.logger.WithField("op", op).Debug("rejected without session")
	return &ActionError{Op: op, Message: b.msgs.T("auth_required"), Err: ErrAuthRequired}
}

func (b *base) saveSnapshot(ctx context.Context, res store.Resource, items, meta interface{}) {
	if b.snapshots == nil || b.session == nil {
		return
	}
	uid := b.session.UserID()
	if uid == 0 {
		return
	}
	if err := b.snapshots.SaveSnapshot(ctx, uid, res, items, meta); err != nil {
		b.logger.WithError(err).WithField("resource", res).Warn("saving snapshot")
	}
}

func (b *base) loadSnapshot(ctx context.Context, res store.Resource, items, meta interface{}) bool {
	if b.snapshots == nil || b.session == nil || !b.session.IsLoggedIn() {
		return false
	}
	savedAt, found, err := b.snapshots.LoadSnapshot(ctx, b.session.UserID(), res, items, meta)
	if err != nil {
		b.logger.WithError(err).WithField("resource", res).Warn("loading snapshot")
		return false
	}
	if found {
		b.logger.WithFields(logrus.Fields{
			"resource": res,
			"age":      time.Since(savedAt).Round(time.Second).String(),
		}).Debug("warmed from snapshot")
	}
	return found
}

// checked adds envelope failure detection to a decoded response.
func checked(path string, env api.Envelope) error {
	if env.Failed() {
		return &api.FailureError{Path: path, Message: env.Reason()}
	}
	return nil
}

func idPath(prefix string, id int64, suffix ...string) string {
	p := fmt.Sprintf("%s/%d", prefix, id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

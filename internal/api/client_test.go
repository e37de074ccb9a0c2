package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return c, srv
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "https://example.test/"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", c.BaseURL())
	assert.Equal(t, "example.test", c.Host())
}

func TestGetSendsQueryAndHeaders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/projects/", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	var out map[string]string
	err := c.Get(context.Background(), "/api/projects/", url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out["status"])
}

func TestPostEncodesJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "value", body["key"])
		w.WriteHeader(http.StatusCreated)
	})

	err := c.Post(context.Background(), "/test", map[string]string{"key": "value"}, nil)
	assert.NoError(t, err)
}

func TestPutAndDelete(t *testing.T) {
	var methods []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	var out map[string]any
	require.NoError(t, c.Put(context.Background(), "/x/1", map[string]int{"a": 1}, &out))
	require.NoError(t, c.Delete(context.Background(), "/x/1", &out))
	assert.Equal(t, []string{http.MethodPut, http.MethodDelete}, methods)
}

func TestStatusErrorCarriesServerMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"error key", `{"error":"invalid credentials","message":"ignored"}`, "invalid credentials"},
		{"message key", `{"message":"not found"}`, "not found"},
		{"no json", `<html>oops</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			})

			err := c.Get(context.Background(), "/fail", nil, nil)
			require.Error(t, err)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, http.StatusBadRequest, se.Status)
			assert.Equal(t, tt.want, se.Message)
			assert.Equal(t, tt.want, ServerMessage(err))
			assert.False(t, IsUnauthorized(err))
			assert.False(t, IsTransport(err))
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"login required"}`))
	})

	err := c.Get(context.Background(), "/api/auth/me", nil, nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)

	err = c.Get(context.Background(), "/", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, "", ServerMessage(err))
}

func TestInterceptorsSeeEveryStatus(t *testing.T) {
	status := http.StatusOK
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	var mu sync.Mutex
	var seen []int
	c.Use(func(info ResponseInfo) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, info.Status)
		assert.NotEmpty(t, info.RequestID)
	})

	_ = c.Get(context.Background(), "/a", nil, nil)
	status = http.StatusUnauthorized
	_ = c.Post(context.Background(), "/b", nil, nil)
	status = http.StatusInternalServerError
	_ = c.Delete(context.Background(), "/c", nil)

	assert.Equal(t, []int{200, 401, 500}, seen)
}

func TestCookiesArePersistedAndCleared(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		case "/me":
			ck, err := r.Cookie("session")
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"value":"` + ck.Value + `"}`))
		}
	})

	ctx := context.Background()
	require.NoError(t, c.Post(ctx, "/login", nil, nil))

	var out map[string]string
	require.NoError(t, c.Get(ctx, "/me", nil, &out))
	assert.Equal(t, "abc", out["value"])

	saved := c.Cookies()
	require.Len(t, saved, 1)

	c.ClearCookies()
	assert.Empty(t, c.Cookies())
	assert.True(t, IsUnauthorized(c.Get(ctx, "/me", nil, nil)))

	c.SetCookies(saved)
	require.NoError(t, c.Get(ctx, "/me", nil, &out))
	assert.Equal(t, "abc", out["value"])
}

func TestRateLimiterRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Get(ctx, "/", nil, nil))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, c.Get(cancelled, "/", nil, nil))
}

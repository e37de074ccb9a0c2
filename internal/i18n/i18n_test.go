package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoadsAllLanguages(t *testing.T) {
	c, err := New("ja", nil)
	require.NoError(t, err)

	for _, lang := range SupportedLanguages {
		assert.NotZero(t, c.Count(lang), lang)
	}
	assert.Equal(t, c.Count("ja"), c.Count("en"), "catalogs should define the same keys")
}

func TestT(t *testing.T) {
	tests := []struct {
		lang     string
		key      string
		expected string
	}{
		{"ja", "auth_required", "認証が必要です"},
		{"ja", "session_expired", "認証の有効期限が切れました。再度ログインしてください。"},
		{"ja", "guest", "ゲスト"},
		{"en", "auth_required", "Authentication is required."},
		{"en", "guest", "Guest"},
		{"de", "login_failed", "ログインに失敗しました"},
		{"ja", "nonexistent.key", "nonexistent.key"},
	}

	for _, tt := range tests {
		t.Run(tt.lang+"_"+tt.key, func(t *testing.T) {
			c := MustNew(tt.lang)
			assert.Equal(t, tt.expected, c.T(tt.key))
		})
	}
}

func TestMatch(t *testing.T) {
	c := MustNew("ja")

	assert.Equal(t, "en", c.Match("en-US"))
	assert.Equal(t, "ja", c.Match("ja-JP"))
	assert.Equal(t, "en", c.Match("en-GB,en;q=0.9"))
	assert.Equal(t, "ja", c.Match("not a language"))
	assert.Equal(t, "ja", c.Match(""))
}

func TestSetLanguage(t *testing.T) {
	c := MustNew("ja")
	require.Equal(t, "ja", c.Language())

	c.SetLanguage("en")
	assert.Equal(t, "en", c.Language())
	assert.Equal(t, "Guest", c.T("guest"))

	c.SetLanguage("xx")
	assert.Equal(t, "ja", c.Language())
}

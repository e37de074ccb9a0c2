package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want record
	}{
		{"wrapped", `{"message":"ok","project":{"id":1,"name":"a"}}`, record{1, "a"}},
		{"bare", `{"id":2,"name":"b"}`, record{2, "b"}},
		{"null key falls back", `{"project":null,"id":3,"name":"c"}`, record{3, "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got record
			require.NoError(t, DecodeKey([]byte(tt.raw), "project", &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeKeyArray(t *testing.T) {
	var wrapped, bare []record
	require.NoError(t, DecodeKey([]byte(`{"project_options":[{"id":1}]}`), "project_options", &wrapped))
	require.NoError(t, DecodeKey([]byte(`[{"id":1},{"id":2}]`), "project_options", &bare))
	assert.Len(t, wrapped, 1)
	assert.Len(t, bare, 2)
}

func TestDecodeKeyEmpty(t *testing.T) {
	var got record
	assert.Error(t, DecodeKey(nil, "todo", &got))
}

func TestHasKey(t *testing.T) {
	assert.True(t, HasKey([]byte(`{"user":{"id":1}}`), "user"))
	assert.False(t, HasKey([]byte(`{"user":null}`), "user"))
	assert.False(t, HasKey([]byte(`{"message":"hi"}`), "user"))
	assert.False(t, HasKey([]byte(`[1,2]`), "user"))
}

func TestResponseCheck(t *testing.T) {
	var ok, failed, arr Response
	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"invoice":{"id":1}}`), &ok))
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"error":"boom"}`), &failed))
	require.NoError(t, json.Unmarshal([]byte(`[]`), &arr))

	assert.NoError(t, ok.Check("/api/invoices/1"))
	assert.True(t, ok.Has("invoice"))

	err := failed.Check("/api/invoices/1")
	require.Error(t, err)
	assert.Equal(t, "boom", ServerMessage(err))

	assert.NoError(t, arr.Check("/api/invoices/options"))
	assert.False(t, arr.Has("invoice_options"))
}

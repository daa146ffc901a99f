package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
)

func TestClientGetSendsHeadersAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quotes", r.URL.Path)
		assert.Equal(t, "ETH", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL + "/", Headers: map[string]string{"X-Api-Key": "key"}})
	resp, err := client.Get(context.Background(), "/v1/quotes", url.Values{"symbol": {"ETH"}})
	require.NoError(t, err)

	var out struct{ OK bool }
	require.NoError(t, DecodeResponse(resp, &out))
	assert.True(t, out.OK)
}

func TestClientRetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, MaxRetries: 2, Backoff: time.Millisecond})
	resp, err := client.Get(context.Background(), "/", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestReadResponseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 70<<10), http.StatusBadRequest)
	}))
	defer server.Close()

	resp, err := NewClient(ClientConfig{BaseURL: server.URL}).Get(context.Background(), "/", nil)
	require.NoError(t, err)
	_, err = ReadResponse(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "(truncated)")
}

func TestReadAllStrict(t *testing.T) {
	_, err := ReadAllStrict(strings.NewReader("abcdef"), 3)
	assert.Error(t, err)
	body, err := ReadAllStrict(strings.NewReader("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperrors.NotFound("collection", "c1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"collection \"c1\" not found","details":{"id":"c1"}}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("db down"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct{ Name string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "x", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.True(t, apperrors.HasCode(DecodeJSON(req, &dst), apperrors.CodeBadRequest))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.True(t, apperrors.HasCode(DecodeJSON(req, &dst), apperrors.CodeBadRequest))
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/":                             "/",
		"/healthz":                      "/healthz",
		"/v1/collections":               "/v1/collections",
		"/v1/collections/0xAbC/holders": "/v1/collections/:id/holders",
		"/v1/tiers/42/profit":           "/v1/tiers/:id/profit",
		"/v1/organizations/6f1c2b7e-1d2a-4c3b-9a8e-112233445566": "/v1/organizations/:id",
		"/v1/auth/loginWithEmail":                                "/v1/auth/loginWithEmail",
	}
	for in, want := range cases {
		assert.Equal(t, want, canonicalPath(in), in)
	}
}

func TestInstrumentHandlerPassesThrough(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/collections", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nft_platform_http_requests_total")
}

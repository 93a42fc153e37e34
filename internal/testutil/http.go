package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// MakeRequest executes a GET request against a handler and returns the
// recorded response.
func MakeRequest(t *testing.T, handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

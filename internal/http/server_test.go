package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/ingest"
)

func newTestServer(t *testing.T, st *fakeStore) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", st, ingest.NewImporter(st, nil, 0), Options{
		CacheSize: 16,
		CacheTTL:  time.Minute,
	})
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func seedTx(st *fakeStore, id, iso, amount, counterparty, memo string) {
	t, _ := time.Parse("2006-01-02", iso)
	d := core.Date{Time: t}
	st.txs[id] = core.Transaction{
		ID:           id,
		BookingDate:  d,
		ValueDate:    d,
		Amount:       decimal.RequireFromString(amount),
		Currency:     "EUR",
		Counterparty: counterparty,
		Memo:         memo,
		SourceFile:   "export.csv",
	}
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, st)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := doRequest(s, httptest.NewRequest(http.MethodDelete, "/api/dashboard", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/dashboard = %d, want 405", rec.Code)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	var last int
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPatch, "/api/transactions/bulk", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		last = doRequest(s, req).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st mutating request = %d, want 429", last)
	}

	// Reads from the same client are unaffected.
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	if code := doRequest(s, req).Code; code == http.StatusTooManyRequests {
		t.Errorf("GET after limit = %d, reads must not be throttled", code)
	}
}

func TestErrorResponsesAreJSON(t *testing.T) {
	s := newTestServer(t, newFakeStore())

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/api/transactions/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Error == "" {
		t.Error("error message must not be empty")
	}
}

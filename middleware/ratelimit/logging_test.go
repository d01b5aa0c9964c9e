package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core), "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodGet, "http://example/api/data", nil)
	r.Header.Set(DefaultKeyHeader, "abcdefghij")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["client"] != "API_KEY: abcde..." {
		t.Fatalf("expected masked key, got %v", fields["client"])
	}
	if fields["status_code"] != int64(http.StatusTeapot) {
		t.Fatalf("expected status 418, got %v", fields["status_code"])
	}
}

func TestRequestLogger_KeepsIncomingRequestID(t *testing.T) {
	h := RequestLogger(zap.NewNop(), "")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestDisplayKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.RemoteAddr = "10.0.0.1:99"
	if got := displayKey(r, DefaultKeyHeader); got != "IP: 10.0.0.1:99" {
		t.Fatalf("got %q", got)
	}
	r.Header.Set(AdminKeyHeader, "adm")
	if got := displayKey(r, DefaultKeyHeader); got != "ADMIN_KEY: adm" {
		t.Fatalf("got %q", got)
	}
}

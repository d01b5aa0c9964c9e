package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adaptive-gateway/middleware/ratelimit/application"
	"adaptive-gateway/middleware/ratelimit/domain"
	"adaptive-gateway/middleware/ratelimit/infra"

	"go.uber.org/zap"
)

type testServer struct {
	h     http.Handler
	cfg   *infra.ConfigStore
	trust *infra.TrustStore
	stats *infra.MemoryStatsStore
}

func newTestServer(def domain.Rule) testServer {
	cfg := infra.NewConfigStore(def)
	trust := infra.NewTrustStore()
	store := infra.NewStore()
	stats := infra.NewMemoryStatsStore()
	h := newRouter(deps{
		svc:         application.NewService(cfg, store, trust, nil),
		admin:       application.AdminService{Config: cfg, Limiters: store, Trust: trust},
		stats:       stats,
		adminAPIKey: "adm",
		log:         zap.NewNop(),
	})
	return testServer{h: h, cfg: cfg, trust: trust, stats: stats}
}

func (s testServer) do(method, path, apiKey, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, "http://example"+path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, "http://example"+path, nil)
	}
	if apiKey != "" {
		r.Header.Set("X-Api-Key", apiKey)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, r)
	return w
}

func TestData(t *testing.T) {
	s := newTestServer(infra.DefaultRule)

	w := s.do(http.MethodGet, "/api/data", "client-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["requesterIdentifier"] != "client-1" {
		t.Fatalf("unexpected identifier %v", body["requesterIdentifier"])
	}
	if w.Header().Get("X-RateLimit-Remaining") != "99" {
		t.Fatalf("expected remaining 99, got %q", w.Header().Get("X-RateLimit-Remaining"))
	}
	if s.trust.Score("client-1") != domain.BaseTrustScore {
		t.Fatalf("read must not change trust")
	}
}

func TestSubmit_RewardsTrust(t *testing.T) {
	s := newTestServer(infra.DefaultRule)

	w := s.do(http.MethodPost, "/api/submit", "client-2", `{"answer":42}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var body struct {
		Message      string         `json:"message"`
		DataReceived map[string]any `json:"dataReceived"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Message != "Data submitted successfully!" || body.DataReceived["answer"] != float64(42) {
		t.Fatalf("unexpected body %+v", body)
	}
	if got := s.trust.Score("client-2"); got != domain.BaseTrustScore+1 {
		t.Fatalf("expected trust %d, got %d", domain.BaseTrustScore+1, got)
	}
}

func TestThrottle(t *testing.T) {
	s := newTestServer(domain.Rule{Points: 2, Duration: 60})

	for i := 0; i < 2; i++ {
		if w := s.do(http.MethodGet, "/api/data", "c", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := s.do(http.MethodGet, "/api/data", "c", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := s.stats.Total(); got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestAdminMounted(t *testing.T) {
	s := newTestServer(infra.DefaultRule)

	r := httptest.NewRequest(http.MethodGet, "http://example/admin/scores", nil)
	r.Header.Set("X-Admin-Api-Key", "adm")
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestBannerAndNotFound(t *testing.T) {
	s := newTestServer(infra.DefaultRule)

	if w := s.do(http.MethodGet, "/", "", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Adaptive Trust Protocol") {
		t.Fatalf("unexpected banner response %d", w.Code)
	}
	if w := s.do(http.MethodGet, "/nope", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

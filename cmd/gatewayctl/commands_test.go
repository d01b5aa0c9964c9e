package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"adaptive-gateway/middleware/ratelimit"
	"adaptive-gateway/middleware/ratelimit/application"
	"adaptive-gateway/middleware/ratelimit/domain"
	"adaptive-gateway/middleware/ratelimit/infra"

	"github.com/gorilla/mux"
)

const adminKey = "ctl-key"

func newGateway(t *testing.T) (*httptest.Server, *infra.ConfigStore, *infra.TrustStore) {
	t.Helper()
	cfg := infra.NewConfigStore(infra.DefaultRule)
	trust := infra.NewTrustStore()
	r := mux.NewRouter()
	ratelimit.RegisterAdminRoutes(r.PathPrefix("/admin").Subrouter(), ratelimit.AdminOptions{
		Service: application.AdminService{Config: cfg, Limiters: infra.NewStore(), Trust: trust},
		APIKey:  adminKey,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, cfg, trust
}

func run(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--addr", addr, "--admin-key", adminKey}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSetDefault_WithRate(t *testing.T) {
	srv, cfg, _ := newGateway(t)

	out, err := run(t, srv.URL, "set-default", "--rate", "30-S", "--block", "15")
	if err != nil {
		t.Fatalf("set-default: %v", err)
	}
	if !strings.Contains(out, "Default rate limit rule updated successfully.") {
		t.Fatalf("unexpected output %q", out)
	}
	want := domain.Rule{KeyPrefix: domain.GlobalPrefix, Points: 30, Duration: 1, BlockDuration: 15}
	if got := cfg.DefaultRule(); got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if _, err := run(t, srv.URL, "set-default", "--clear-block"); err != nil {
		t.Fatalf("clear-block: %v", err)
	}
	if got := cfg.DefaultRule().BlockDuration; got != 0 {
		t.Fatalf("expected block cleared, got %d", got)
	}
}

func TestSetAndDeleteUser(t *testing.T) {
	srv, cfg, _ := newGateway(t)

	if _, err := run(t, srv.URL, "set-user", "partner", "--points", "500"); err != nil {
		t.Fatalf("set-user: %v", err)
	}
	if ur, ok := cfg.UserRule("partner"); !ok || ur.Points != 500 {
		t.Fatalf("unexpected user rule %+v (found=%v)", ur, ok)
	}

	if _, err := run(t, srv.URL, "delete-user", "partner"); err != nil {
		t.Fatalf("delete-user: %v", err)
	}
	_, err := run(t, srv.URL, "delete-user", "partner")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
}

func TestSetDefault_RejectedByGateway(t *testing.T) {
	srv, cfg, _ := newGateway(t)

	_, err := run(t, srv.URL, "set-default", "--points", "0")
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected 400 error, got %v", err)
	}
	if cfg.DefaultRule() != infra.DefaultRule {
		t.Fatalf("default rule must not change")
	}
}

func TestSetDefault_NothingToChange(t *testing.T) {
	srv, _, _ := newGateway(t)
	if _, err := run(t, srv.URL, "set-default"); err == nil {
		t.Fatalf("expected error without flags")
	}
}

func TestScores_SortedLowestFirst(t *testing.T) {
	srv, _, trust := newGateway(t)
	trust.Increase("good", 5)
	trust.Decrease("bad", 4)

	out, err := run(t, srv.URL, "scores")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "bad") || !strings.HasPrefix(lines[1], "good") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWrongAdminKey(t *testing.T) {
	srv, _, _ := newGateway(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--addr", srv.URL, "--admin-key", "wrong", "config"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

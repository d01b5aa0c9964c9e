package infra

import (
	"context"
	"errors"
	"testing"

	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMemoryStatsStore_Counts(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: true, RuleClass: domain.RuleClassGlobal, Method: "GET", Path: "/api/data"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "a", Allowed: false, RuleClass: domain.RuleClassGlobal, Method: "GET", Path: "/api/data"})
	_ = s.Record(ctx, domain.StatsEvent{Key: "b", Allowed: true, RuleClass: domain.RuleClassUser, Method: "POST", Path: "/api/submit"})

	if got := s.Total(); got.Allowed != 2 || got.Denied != 1 {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got := s.ByRoute()["GET /api/data"]; got.Allowed != 1 || got.Denied != 1 {
		t.Fatalf("unexpected route counters %+v", got)
	}
	if got := s.ByRuleClass()[domain.RuleClassUser]; got.Allowed != 1 {
		t.Fatalf("unexpected rule class counters %+v", got)
	}
	if got := s.ByKey()["a"]; got.Denied != 1 {
		t.Fatalf("unexpected key counters %+v", got)
	}
}

func TestPrometheusStatsStore_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusStatsStore(reg, "test")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_ = s.Record(context.Background(), domain.StatsEvent{Allowed: false, RuleClass: domain.RuleClassGlobal, Kind: domain.KindRead, TrustScore: 8})

	got := testutil.ToFloat64(s.decisions.WithLabelValues("throttled", "global", "read"))
	if got != 1 {
		t.Fatalf("expected 1 throttled decision, got %v", got)
	}
}

func TestLimiterGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := NewStore()
	if err := NewLimiterGauge(reg, "test", store); err != nil {
		t.Fatalf("register: %v", err)
	}
	store.Get(globalRule("a", 1, 1))
	store.Get(globalRule("b", 1, 1))

	if n, err := testutil.GatherAndCount(reg, "test_cached_limiters"); err != nil || n != 1 {
		t.Fatalf("expected gauge to be gathered, n=%d err=%v", n, err)
	}
}

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestMultiStatsStore_RecordsAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	mem := NewMemoryStatsStore()
	m := MultiStatsStore{failingStats{err: boom}, nil, mem}

	err := m.Record(context.Background(), domain.StatsEvent{Allowed: true})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if mem.Total().Allowed != 1 {
		t.Fatalf("expected later stores to still receive the event")
	}
}

func TestRedisStatsStore_NoClientIsNoop(t *testing.T) {
	var nilStore *RedisStatsStore
	if err := nilStore.Record(context.Background(), domain.StatsEvent{Allowed: true}); err != nil {
		t.Fatalf("nil store: %v", err)
	}
	s := NewRedisStatsStore(nil, WithStatsPrefix(":custom:"), WithStatsBucket(" NONE "))
	if s.prefix != "custom" || s.bucket != "none" {
		t.Fatalf("unexpected options prefix=%q bucket=%q", s.prefix, s.bucket)
	}
	if err := s.Record(context.Background(), domain.StatsEvent{}); err != nil {
		t.Fatalf("store without client: %v", err)
	}
}

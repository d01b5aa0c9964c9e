package application

import (
	"math"
	"testing"

	"adaptive-gateway/middleware/ratelimit/domain"
	"adaptive-gateway/middleware/ratelimit/infra"

	"github.com/google/go-cmp/cmp"
)

func intPtr(v int) *int { return &v }

func TestTrustMultiplier_Boundaries(t *testing.T) {
	cases := map[int]float64{
		0:  0.5,
		4:  0.5,
		5:  1.0,
		10: 1.0,
		15: 1.0,
		16: 2.0,
		20: 2.0,
	}
	for score, want := range cases {
		if got := TrustMultiplier(score); got != want {
			t.Errorf("TrustMultiplier(%d) = %v, want %v", score, got, want)
		}
	}
}

func TestAdjustPoints_FloorOfOne(t *testing.T) {
	for _, p := range []int{0, 1, 2, 3, 7, 100} {
		for _, m := range []float64{0.5, 1.0, 2.0} {
			if got := AdjustPoints(p, m); got < 1 {
				t.Fatalf("AdjustPoints(%d, %v) = %d, must be >= 1", p, m, got)
			}
		}
	}
	if got := AdjustPoints(11, 0.5); got != 5 {
		t.Fatalf("expected floor(11*0.5)=5, got %d", got)
	}
	if got := AdjustPoints(1, 0.5); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
}

func TestAdjustPoints_LargeValues(t *testing.T) {
	if got := AdjustPoints(domain.MaxRuleValue, 2.0); got != 2*domain.MaxRuleValue {
		t.Fatalf("expected %d, got %d", 2*domain.MaxRuleValue, got)
	}
	if got := AdjustPoints(math.MaxInt, 2.0); got != math.MaxInt {
		t.Fatalf("expected saturation at math.MaxInt, got %d", got)
	}
}

func TestResolver_AppliesTrustToPointsOnly(t *testing.T) {
	cfg := infra.NewConfigStore(domain.Rule{Points: 10, Duration: 60, BlockDuration: 5})
	trust := infra.NewTrustStore()
	r := Resolver{Rules: cfg, Trust: trust}

	type step struct {
		name   string
		mutate func(id string)
		points int
	}
	steps := []step{
		{"score 4", func(id string) { trust.Decrease(id, 6) }, 5},
		{"score 5", func(id string) { trust.Decrease(id, 5) }, 10},
		{"score 15", func(id string) { trust.Increase(id, 5) }, 10},
		{"score 16", func(id string) { trust.Increase(id, 6) }, 20},
	}
	for _, st := range steps {
		id := st.name
		st.mutate(id)
		got := r.Resolve(id)
		want := domain.Rule{KeyPrefix: "global_" + id, Points: st.points, Duration: 60, BlockDuration: 5}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: Resolve mismatch (-want +got):\n%s", st.name, diff)
		}
	}
}

func TestResolver_OverridePrecedence(t *testing.T) {
	cfg := infra.NewConfigStore(infra.DefaultRule)
	trust := infra.NewTrustStore()
	r := Resolver{Rules: cfg, Trust: trust}

	cfg.SetUserRule("k", domain.RuleUpdate{Points: intPtr(5), Duration: intPtr(10)})
	got := r.Resolve("k")
	if got.KeyPrefix != "user_k" || got.Points != 5 || got.Duration != 10 {
		t.Fatalf("expected override rule, got %+v", got)
	}
	if got.Class() != domain.RuleClassUser {
		t.Fatalf("expected user-specific class")
	}

	cfg.DeleteUserRule("k")
	got = r.Resolve("k")
	if got.KeyPrefix != "global_k" || got.Points != 100 || got.Duration != 60 {
		t.Fatalf("expected default-derived rule after delete, got %+v", got)
	}
}

func TestResolver_CreatesTrustEntry(t *testing.T) {
	trust := infra.NewTrustStore()
	r := Resolver{Rules: infra.NewConfigStore(infra.DefaultRule), Trust: trust}

	r.Resolve("fresh")
	if _, ok := trust.Scores()["fresh"]; !ok {
		t.Fatalf("expected Resolve to initialise the trust score")
	}
}

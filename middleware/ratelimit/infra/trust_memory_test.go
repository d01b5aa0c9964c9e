package infra

import (
	"math/rand"
	"sync"
	"testing"

	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/google/go-cmp/cmp"
)

func TestTrustStore_LazyInitToBase(t *testing.T) {
	s := NewTrustStore()
	if s.Len() != 0 {
		t.Fatalf("expected empty store")
	}
	if got := s.Score("a"); got != domain.BaseTrustScore {
		t.Fatalf("expected base score %d, got %d", domain.BaseTrustScore, got)
	}
	if s.Len() != 1 {
		t.Fatalf("expected Score to create the entry")
	}
}

func TestTrustStore_IncreaseDecrease(t *testing.T) {
	s := NewTrustStore()
	if got := s.Increase("a", domain.DefaultTrustReward); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
	if got := s.Decrease("a", domain.DefaultTrustPenalty); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	if got := s.Score("a"); got != 9 {
		t.Fatalf("mutation not visible to later read: %d", got)
	}
}

func TestTrustStore_ClampInvariant(t *testing.T) {
	s := NewTrustStore()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		delta := rng.Intn(7)
		var got int
		if rng.Intn(2) == 0 {
			got = s.Increase("a", delta)
		} else {
			got = s.Decrease("a", delta)
		}
		if got < domain.MinTrustScore || got > domain.MaxTrustScore {
			t.Fatalf("score %d escaped [0,20] at step %d", got, i)
		}
	}
}

func TestTrustStore_ConcurrentUpdatesSameID(t *testing.T) {
	s := NewTrustStore()
	s.Decrease("a", 10) // 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Increase("a", 1)
		}()
	}
	wg.Wait()

	if got := s.Score("a"); got != 20 {
		t.Fatalf("expected 20 after 20 concurrent increments, got %d", got)
	}
}

func TestTrustStore_ScoresSnapshot(t *testing.T) {
	s := NewTrustStore()
	s.Increase("a", 1)
	s.Decrease("b", 2)
	s.Score("c")

	got := s.Scores()
	want := map[string]int{"a": 11, "b": 8, "c": 10}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Scores mismatch (-want +got):\n%s", diff)
	}

	got["a"] = 0
	if s.Score("a") != 11 {
		t.Fatalf("snapshot mutation leaked into store")
	}
}

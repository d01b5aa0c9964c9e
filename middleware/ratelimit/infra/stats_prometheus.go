package infra

import (
	"context"

	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStatsStore expõe as decisões como métricas.
// Labels de baixa cardinalidade apenas (nada de identificador).
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
	trust     *prometheus.HistogramVec
}

func NewPrometheusStatsStore(reg prometheus.Registerer, namespace string) (*PrometheusStatsStore, error) {
	s := &PrometheusStatsStore{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Admission decisions by outcome, rule class and request kind.",
		}, []string{"decision", "rule_class", "kind"}),
		trust: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admission_trust_score",
			Help:      "Trust score observed after each admission decision.",
			Buckets:   prometheus.LinearBuckets(domain.MinTrustScore, 2, 11),
		}, []string{"decision"}),
	}
	for _, c := range []prometheus.Collector{s.decisions, s.trust} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	decision := "throttled"
	if ev.Allowed {
		decision = "admitted"
	}
	s.decisions.WithLabelValues(decision, string(ev.RuleClass), string(ev.Kind)).Inc()
	s.trust.WithLabelValues(decision).Observe(float64(ev.TrustScore))
	return nil
}

// NewLimiterGauge publica quantos limiters estão em cache no registry.
func NewLimiterGauge(reg prometheus.Registerer, namespace string, store *Store) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cached_limiters",
		Help:      "Limiter instances currently cached by rule shape.",
	}, func() float64 { return float64(store.Len()) }))
}

// NewTrustGauge publica quantos identificadores têm trust score.
func NewTrustGauge(reg prometheus.Registerer, namespace string, trust *TrustStore) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_identifiers",
		Help:      "Identifiers holding a trust score.",
	}, func() float64 { return float64(trust.Len()) }))
}

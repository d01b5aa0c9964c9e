package application

import (
	"adaptive-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// Service concentra a regra de aplicação da admissão:
// resolve a regra → pega o limiter → consome → realimenta o trust score.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Resolver Resolver
	Limiters domain.LimiterRegistry
	Trust    domain.TrustStore
	// Reward/Penalty: variação do trust em sucesso elegível / rejeição.
	// Zero usa os defaults (1 e 2).
	Reward  int
	Penalty int
	Logger  *zap.Logger
}

// NewService monta um Service com Resolver ligado às mesmas stores.
func NewService(rules domain.RuleSource, limiters domain.LimiterRegistry, trust domain.TrustStore, log *zap.Logger) Service {
	return Service{
		Resolver: Resolver{Rules: rules, Trust: trust},
		Limiters: limiters,
		Trust:    trust,
		Logger:   log,
	}
}

// Admit decide se a requisição do identificador entra.
//
// Em caso de rejeição a Decision vem preenchida junto com um
// *domain.ThrottledError (errors.Is(err, domain.ErrRateLimitExceeded)).
// O ponto consumido não é devolvido se a requisição for cancelada depois.
func (s Service) Admit(id string, kind domain.RequestKind) (domain.Decision, error) {
	if id == "" {
		return domain.Decision{}, domain.ErrMissingIdentifier
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	reward, penalty := s.Reward, s.Penalty
	if reward <= 0 {
		reward = domain.DefaultTrustReward
	}
	if penalty <= 0 {
		penalty = domain.DefaultTrustPenalty
	}

	rule := s.Resolver.Resolve(id)
	res := s.Limiters.Get(rule).Consume(id)

	dec := domain.Decision{
		Allowed:    res.Allowed,
		Identifier: id,
		Rule:       rule,
		Remaining:  res.Remaining,
	}

	if res.Allowed {
		if kind.RewardEligible() {
			dec.TrustScore = s.Trust.Increase(id, reward)
		} else {
			dec.TrustScore = s.Trust.Score(id)
		}
		log.Debug("request_admitted",
			zap.String("identifier", id),
			zap.String("limiter_key", rule.CacheKey()),
			zap.Int("remaining", res.Remaining),
			zap.Int("trust_score", dec.TrustScore),
		)
		return dec, nil
	}

	// a penalidade vale para qualquer tipo de requisição
	dec.TrustScore = s.Trust.Decrease(id, penalty)
	dec.RetryAfter = res.MsBeforeNext

	return dec, &domain.ThrottledError{
		Identifier:        id,
		RetryAfterSeconds: dec.RetryAfterSeconds(),
		RuleClass:         rule.Class(),
	}
}

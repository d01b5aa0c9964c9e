package application

import (
	"math"

	"adaptive-gateway/middleware/ratelimit/domain"
)

const (
	lowTrustBelow  = 5
	highTrustAbove = 15
)

// TrustMultiplier: score < 5 → 0.5; score > 15 → 2.0; senão 1.0.
// Os limites 5 e 15 usam 1.0.
func TrustMultiplier(score int) float64 {
	switch {
	case score < lowTrustBelow:
		return 0.5
	case score > highTrustAbove:
		return 2.0
	default:
		return 1.0
	}
}

// AdjustPoints aplica o multiplicador; o resultado nunca fica abaixo de 1.
// Valores que não cabem em int saturam em math.MaxInt.
func AdjustPoints(points int, multiplier float64) int {
	f := math.Floor(float64(points) * multiplier)
	if f >= math.MaxInt {
		return math.MaxInt
	}
	return max(1, int(f))
}

// Resolver calcula a regra efetiva de um identificador:
// override (ou default) + ajuste de pontos pelo trust score.
type Resolver struct {
	Rules domain.RuleSource
	Trust domain.TrustStore
}

// Resolve é determinístico dado o estado atual de config e trust.
// Efeito colateral: cria o trust score do identificador se ainda não existir.
func (r Resolver) Resolve(id string) domain.Rule {
	var base domain.Rule
	if ur, ok := r.Rules.UserRule(id); ok {
		base = ur.Rule
		base.KeyPrefix = domain.UserKeyPrefix(id)
	} else {
		base = r.Rules.DefaultRule()
		base.KeyPrefix = domain.GlobalKeyPrefix(id)
	}

	score := r.Trust.Score(id)
	base.Points = AdjustPoints(base.Points, TrustMultiplier(score))
	return base
}

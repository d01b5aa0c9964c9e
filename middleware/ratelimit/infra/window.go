package infra

import (
	"sync"
	"time"

	"adaptive-gateway/middleware/ratelimit/domain"

	"k8s.io/utils/clock"
)

// windowLimiter aplica uma regra: cada chave (keyPrefix:id) tem um contador de
// pontos que reinicia `duration` depois do primeiro consumo da janela.
//
// Ao estourar a janela com blockDuration > 0, a chave fica bloqueada por
// blockDuration a partir do estouro e a janela passa a terminar junto com o
// bloqueio. Depois dele a chave começa uma janela nova, seja o bloqueio mais
// curto ou mais longo que a janela.
type windowLimiter struct {
	rule   domain.Rule
	window time.Duration
	block  time.Duration
	clock  clock.PassiveClock

	// owner é o registry que criou o limiter; depois de aposentado pela
	// limpeza, Consume volta por ele em vez de contar numa instância órfã.
	owner *Store

	mu      sync.Mutex
	entries map[string]*windowEntry
	retired bool
}

type windowEntry struct {
	consumed     int
	resetAt      time.Time
	blockedUntil time.Time
}

func newWindowLimiter(rule domain.Rule, clk clock.PassiveClock) *windowLimiter {
	return &windowLimiter{
		rule:    rule,
		window:  rule.Window(),
		block:   rule.Block(),
		clock:   clk,
		entries: make(map[string]*windowEntry),
	}
}

func (l *windowLimiter) key(id string) string { return l.rule.KeyPrefix + ":" + id }

// Consume implementa domain.Limiter.
func (l *windowLimiter) Consume(id string) domain.ConsumeResult {
	l.mu.Lock()
	if l.retired && l.owner != nil {
		l.mu.Unlock()
		return l.owner.Get(l.rule).Consume(id)
	}
	defer l.mu.Unlock()

	now := l.clock.Now()
	k := l.key(id)

	ent, ok := l.entries[k]
	if ok && now.Before(ent.blockedUntil) {
		return domain.ConsumeResult{MsBeforeNext: ent.blockedUntil.Sub(now), Blocked: true}
	}
	if !ok || !now.Before(ent.resetAt) {
		ent = &windowEntry{resetAt: now.Add(l.window)}
		l.entries[k] = ent
	}

	ent.consumed++
	if ent.consumed <= l.rule.Points {
		return domain.ConsumeResult{
			Allowed:      true,
			Remaining:    l.rule.Points - ent.consumed,
			MsBeforeNext: ent.resetAt.Sub(now),
		}
	}

	if l.block > 0 {
		// o bloqueio substitui a expiração da chave: ao terminar, a janela é nova
		ent.blockedUntil = now.Add(l.block)
		ent.resetAt = ent.blockedUntil
		return domain.ConsumeResult{MsBeforeNext: l.block, Blocked: true}
	}
	return domain.ConsumeResult{MsBeforeNext: ent.resetAt.Sub(now)}
}

// retireIfIdle remove chaves com janela e bloqueio vencidos. Se não sobrar
// nenhuma, marca o limiter como aposentado e devolve true; a partir daí quem
// ainda tiver a referência é redirecionado ao registry.
// Uma chave removida se comporta igual a uma chave nunca vista.
func (l *windowLimiter) retireIfIdle(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if !now.Before(ent.resetAt) && !now.Before(ent.blockedUntil) {
			delete(l.entries, k)
		}
	}
	if len(l.entries) == 0 {
		l.retired = true
	}
	return l.retired
}

package infra

import (
	"sync"
	"time"

	"adaptive-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Store é o registry de limiters: uma instância por formato de regra
// (keyPrefix, points, duration, blockDuration), com limpeza periódica.
//
// O cache é indexado pelo formato da regra, não pelo identificador. Como o
// keyPrefix normalmente embute o identificador, na prática fica um limiter por
// identificador; uma regra sem identificador no prefixo passaria a compartilhar
// a instância.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*windowLimiter
	clock        clock.PassiveClock
	cleanupEvery time.Duration
	log          *zap.Logger
}

type StoreOption func(*Store)

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *Store) { s.cleanupEvery = d }
}

func WithClock(c clock.PassiveClock) StoreOption {
	return func(s *Store) { s.clock = c }
}

func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries:      make(map[string]*windowLimiter),
		clock:        clock.RealClock{},
		cleanupEvery: 2 * time.Minute,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CleanupEvery() time.Duration { return s.cleanupEvery }

// Get implementa domain.LimiterRegistry.
func (s *Store) Get(rule domain.Rule) domain.Limiter {
	key := rule.CacheKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if lim, ok := s.entries[key]; ok {
		return lim
	}

	lim := newWindowLimiter(rule, s.clock)
	lim.owner = s
	s.entries[key] = lim
	s.log.Debug("limiter_created", zap.String("limiter_key", key))
	return lim
}

// InvalidateAll descarta todos os limiters; usado depois de qualquer mudança
// administrativa, senão limiters antigos aplicariam parâmetros obsoletos.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]*windowLimiter)
	s.mu.Unlock()

	s.log.Info("limiters_invalidated", zap.Int("count", n))
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup remove chaves vencidas e limiters que ficaram vazios.
// Não muda comportamento: um limiter vazio equivale a um recém-criado, e uma
// requisição que pegou o limiter antes da limpeza consome no que o registry
// devolver agora (ver windowLimiter.retireIfIdle).
func (s *Store) Cleanup() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, lim := range s.entries {
		if lim.retireIfIdle(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *Store) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
// (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}

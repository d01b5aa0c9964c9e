package infra

import (
	"sync"

	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const trustShards = 32

// TrustStore é uma implementação em memória de domain.TrustStore.
//
// O mapa é particionado em shards (xxhash do identificador), cada um com o
// próprio mutex. O read-modify-write de um mesmo identificador é serializado.
//
// Não há expiração: um identificador que parou de mandar tráfego continua
// ocupando memória pelo resto do processo.
type TrustStore struct {
	shards [trustShards]trustShard
	log    *zap.Logger
}

type trustShard struct {
	mu     sync.Mutex
	scores map[string]int
}

type TrustOption func(*TrustStore)

func WithTrustLogger(l *zap.Logger) TrustOption {
	return func(s *TrustStore) { s.log = l }
}

func NewTrustStore(opts ...TrustOption) *TrustStore {
	s := &TrustStore{log: zap.NewNop()}
	for i := range s.shards {
		s.shards[i].scores = make(map[string]int)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TrustStore) shard(id string) *trustShard {
	return &s.shards[xxhash.Sum64String(id)%trustShards]
}

// scoreLocked devolve o score, criando a entrada se preciso. Exige sh.mu.
func (sh *trustShard) scoreLocked(id string) int {
	v, ok := sh.scores[id]
	if !ok {
		v = domain.BaseTrustScore
		sh.scores[id] = v
	}
	return v
}

// Score implementa domain.TrustStore.
func (s *TrustStore) Score(id string) int {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.scoreLocked(id)
}

func (s *TrustStore) Increase(id string, delta int) int {
	v := s.add(id, delta)
	s.log.Debug("trust_score_increased", zap.String("identifier", id), zap.Int("score", v))
	return v
}

func (s *TrustStore) Decrease(id string, delta int) int {
	v := s.add(id, -delta)
	s.log.Debug("trust_score_decreased", zap.String("identifier", id), zap.Int("score", v))
	return v
}

func (s *TrustStore) add(id string, delta int) int {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	v := domain.ClampTrust(sh.scoreLocked(id) + delta)
	sh.scores[id] = v
	return v
}

// Scores devolve uma cópia de todos os scores (diagnóstico).
func (s *TrustStore) Scores() map[string]int {
	out := make(map[string]int)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k, v := range sh.scores {
			out[k] = v
		}
		sh.mu.Unlock()
	}
	return out
}

func (s *TrustStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.scores)
		sh.mu.Unlock()
	}
	return n
}

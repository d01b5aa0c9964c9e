package infra

import (
	"sync"

	"adaptive-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// ConfigStore guarda a regra default e as regras por identificador.
// Leituras usam RLock: o caminho de admissão só lê.
type ConfigStore struct {
	mu    sync.RWMutex
	def   domain.Rule
	users map[string]domain.UserRule
	log   *zap.Logger
}

type ConfigOption func(*ConfigStore)

func WithConfigLogger(l *zap.Logger) ConfigOption {
	return func(s *ConfigStore) { s.log = l }
}

// DefaultRule é a regra inicial do processo: 100 pontos por 60 segundos.
var DefaultRule = domain.Rule{KeyPrefix: domain.GlobalPrefix, Points: 100, Duration: 60}

func NewConfigStore(def domain.Rule, opts ...ConfigOption) *ConfigStore {
	def.KeyPrefix = domain.GlobalPrefix
	s := &ConfigStore{
		def:   def,
		users: make(map[string]domain.UserRule),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ConfigStore) DefaultRule() domain.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.def
}

func (s *ConfigStore) UserRule(id string) (domain.UserRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.users[id]
	return r, ok
}

// Snapshot devolve uma cópia independente do estado atual.
func (s *ConfigStore) Snapshot() domain.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Config{Default: s.def, UserSpecific: s.users}.Clone()
}

// SetDefault mescla os campos informados. O keyPrefix é sempre o sentinela global.
func (s *ConfigStore) SetDefault(u domain.RuleUpdate) domain.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.def = u.Apply(s.def)
	s.def.KeyPrefix = domain.GlobalPrefix
	s.log.Info("default_rule_updated",
		zap.Int("points", s.def.Points),
		zap.Int("duration", s.def.Duration),
		zap.Int("block_duration", s.def.BlockDuration),
	)
	return s.def
}

// SetUserRule cria (a partir de points/duration da default) ou atualiza a regra
// do identificador. Identifier e keyPrefix são sempre derivados.
func (s *ConfigStore) SetUserRule(id string, u domain.RuleUpdate) domain.UserRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[id]
	if !ok {
		cur = domain.UserRule{Rule: domain.Rule{Points: s.def.Points, Duration: s.def.Duration}}
	}
	cur.Rule = u.Apply(cur.Rule)
	cur.Identifier = id
	cur.KeyPrefix = domain.UserKeyPrefix(id)
	s.users[id] = cur

	s.log.Info("user_rule_updated",
		zap.String("identifier", id),
		zap.Int("points", cur.Points),
		zap.Int("duration", cur.Duration),
		zap.Int("block_duration", cur.BlockDuration),
	)
	return cur
}

func (s *ConfigStore) DeleteUserRule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	s.log.Info("user_rule_deleted", zap.String("identifier", id))
	return true
}

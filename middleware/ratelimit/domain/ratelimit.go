package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"fmt"
	"strings"
	"time"
)

const (
	// GlobalPrefix é o keyPrefix sentinela da regra default.
	GlobalPrefix = "global"
	// UserPrefix é o prefixo das regras específicas por identificador.
	UserPrefix = "user"
)

type Key string

// RuleClass diz de onde veio a regra aplicada ("global" ou "user-specific").
type RuleClass string

const (
	RuleClassGlobal RuleClass = "global"
	RuleClassUser   RuleClass = "user-specific"
)

// Rule é uma regra de admissão: `Points` por janela de `Duration` segundos.
// BlockDuration (segundos) é opcional; 0 significa sem bloqueio extra.
type Rule struct {
	KeyPrefix     string `json:"keyPrefix"`
	Points        int    `json:"points"`
	Duration      int    `json:"duration"`
	BlockDuration int    `json:"blockDuration,omitempty"`
}

// CacheKey é a chave composta usada pelo registry de limiters.
// Duas regras com o mesmo formato compartilham a mesma instância.
func (r Rule) CacheKey() string {
	return fmt.Sprintf("%s_%d_%d_%d", r.KeyPrefix, r.Points, r.Duration, r.BlockDuration)
}

func (r Rule) Class() RuleClass {
	if strings.HasPrefix(r.KeyPrefix, GlobalPrefix) {
		return RuleClassGlobal
	}
	return RuleClassUser
}

func (r Rule) Window() time.Duration { return time.Duration(r.Duration) * time.Second }
func (r Rule) Block() time.Duration  { return time.Duration(r.BlockDuration) * time.Second }

// GlobalKeyPrefix e UserKeyPrefix embutem o identificador no keyPrefix,
// o que torna os limiters, na prática, por identificador.
func GlobalKeyPrefix(id string) string { return GlobalPrefix + "_" + id }
func UserKeyPrefix(id string) string   { return UserPrefix + "_" + id }

// UserRule é uma regra que sobrescreve a default para um identificador.
type UserRule struct {
	Rule
	Identifier string `json:"identifier"`
}

// Config é o estado de configuração do processo.
type Config struct {
	Default      Rule                `json:"default"`
	UserSpecific map[string]UserRule `json:"userSpecific"`
}

// Clone devolve uma cópia independente (alterar o clone não afeta o original).
func (c Config) Clone() Config {
	out := Config{
		Default:      c.Default,
		UserSpecific: make(map[string]UserRule, len(c.UserSpecific)),
	}
	for id, r := range c.UserSpecific {
		out.UserSpecific[id] = r
	}
	return out
}

// MaxRuleValue é o maior points/duration/blockDuration aceito. As tags de
// RuleUpdate repetem o valor.
const MaxRuleValue = 1_000_000_000

// RuleUpdate é uma atualização parcial de regra: campos nil não mudam.
// ClearBlockDuration remove o bloqueio (equivale a `blockDuration: null`).
type RuleUpdate struct {
	Points             *int `validate:"omitnil,gt=0,lte=1000000000"`
	Duration           *int `validate:"omitnil,gt=0,lte=1000000000"`
	BlockDuration      *int `validate:"omitnil,gte=0,lte=1000000000"`
	ClearBlockDuration bool
}

func (u RuleUpdate) Apply(r Rule) Rule {
	if u.Points != nil {
		r.Points = *u.Points
	}
	if u.Duration != nil {
		r.Duration = *u.Duration
	}
	if u.BlockDuration != nil {
		r.BlockDuration = *u.BlockDuration
	}
	if u.ClearBlockDuration {
		r.BlockDuration = 0
	}
	return r
}

// RequestKind é uma marcação grossa do tipo de requisição.
// Só serve para decidir se um sucesso rende recompensa de trust.
type RequestKind string

const (
	KindRead   RequestKind = "read"
	KindSubmit RequestKind = "submit"
)

// RewardEligible indica ações "positivas" (envio de dados).
func (k RequestKind) RewardEligible() bool { return k == KindSubmit }

// ConsumeResult é o retorno de um consumo em um limiter.
type ConsumeResult struct {
	Allowed   bool
	Remaining int
	// MsBeforeNext: tempo até a janela reiniciar ou o bloqueio acabar.
	MsBeforeNext time.Duration
	Blocked      bool
}

// Limiter consome um ponto da chave informada.
//
// A implementação é uma janela com contador decrescente + bloqueio opcional.
type Limiter interface {
	Consume(id string) ConsumeResult
}

// LimiterRegistry mantém uma instância de limiter por formato de regra.
type LimiterRegistry interface {
	Get(rule Rule) Limiter
	InvalidateAll()
}

type Decision struct {
	Allowed    bool
	Identifier string
	Rule       Rule
	Remaining  int
	// RetryAfter é o valor bruto (ms) até a próxima tentativa quando bloquear.
	RetryAfter time.Duration
	TrustScore int
}

// RetryAfterSeconds arredonda RetryAfter para cima em segundos inteiros.
func (d Decision) RetryAfterSeconds() int {
	return CeilSeconds(d.RetryAfter)
}

func CeilSeconds(d time.Duration) int {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}

package domain

// RuleSource é o lado de leitura da configuração usado no caminho de admissão.
type RuleSource interface {
	DefaultRule() Rule
	UserRule(id string) (UserRule, bool)
}

// ConfigStore é o estado mutável de configuração.
//
// Quem chama qualquer mutação deve invalidar o LimiterRegistry em seguida.
type ConfigStore interface {
	RuleSource
	Snapshot() Config
	SetDefault(u RuleUpdate) Rule
	SetUserRule(id string, u RuleUpdate) UserRule
	DeleteUserRule(id string) bool
}

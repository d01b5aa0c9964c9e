package application

import (
	"fmt"
	"strings"

	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// AdminService é o lado administrativo: toda mutação aceita invalida os
// limiters em cache, senão eles continuariam aplicando a regra antiga.
type AdminService struct {
	Config   domain.ConfigStore
	Limiters domain.LimiterRegistry
	Trust    domain.TrustStore
	Logger   *zap.Logger
}

func (s AdminService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Snapshot devolve uma cópia independente da configuração.
func (s AdminService) Snapshot() domain.Config {
	return s.Config.Snapshot()
}

// UpdateDefault valida antes de mexer no estado: update inválido não aplica nada.
func (s AdminService) UpdateDefault(u domain.RuleUpdate) (domain.Rule, error) {
	if err := validateUpdate(u); err != nil {
		return domain.Rule{}, err
	}
	r := s.Config.SetDefault(u)
	s.Limiters.InvalidateAll()
	return r, nil
}

func (s AdminService) UpsertUserRule(id string, u domain.RuleUpdate) (domain.UserRule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.UserRule{}, domain.ErrMissingIdentifier
	}
	if err := validateUpdate(u); err != nil {
		return domain.UserRule{}, err
	}
	r := s.Config.SetUserRule(id, u)
	s.Limiters.InvalidateAll()
	return r, nil
}

func (s AdminService) DeleteUserRule(id string) error {
	if !s.Config.DeleteUserRule(id) {
		return fmt.Errorf("%w: %q", domain.ErrRuleNotFound, id)
	}
	s.Limiters.InvalidateAll()
	return nil
}

func (s AdminService) Scores() map[string]int {
	return s.Trust.Scores()
}

func validateUpdate(u domain.RuleUpdate) error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

package infra

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"adaptive-gateway/middleware/ratelimit/domain"

	"gopkg.in/yaml.v3"
)

// RuleFile é o formato do arquivo de carga inicial de regras:
//
//	default:
//	  points: 100
//	  duration: 60
//	users:
//	  - identifier: partner-key
//	    points: 1000
//	    duration: 60
//	    blockDuration: 30
type RuleFile struct {
	Default *RuleSpec      `yaml:"default"`
	Users   []UserRuleSpec `yaml:"users"`
}

type RuleSpec struct {
	Points        *int `yaml:"points"`
	Duration      *int `yaml:"duration"`
	BlockDuration *int `yaml:"blockDuration"`
}

type UserRuleSpec struct {
	Identifier string `yaml:"identifier"`
	RuleSpec   `yaml:",inline"`
}

func (r RuleSpec) Update() domain.RuleUpdate {
	return domain.RuleUpdate{Points: r.Points, Duration: r.Duration, BlockDuration: r.BlockDuration}
}

func LoadRuleFile(path string) (RuleFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleFile{}, fmt.Errorf("read rule file: %w", err)
	}
	return ParseRuleFile(raw)
}

func ParseRuleFile(raw []byte) (RuleFile, error) {
	var rf RuleFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return RuleFile{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	for i, u := range rf.Users {
		if u.Identifier == "" {
			return RuleFile{}, fmt.Errorf("%w: users[%d] has no identifier", domain.ErrInvalidConfiguration, i)
		}
	}
	return rf, nil
}

// RuleAdmin é o lado administrativo usado para aplicar o arquivo
// (application.AdminService), assim o seed passa pela mesma validação.
type RuleAdmin interface {
	UpdateDefault(u domain.RuleUpdate) (domain.Rule, error)
	UpsertUserRule(id string, u domain.RuleUpdate) (domain.UserRule, error)
}

// ApplyTo aplica a default e depois cada regra de usuário, na ordem do arquivo.
// Para no primeiro erro.
func (f RuleFile) ApplyTo(admin RuleAdmin) error {
	if f.Default != nil {
		if _, err := admin.UpdateDefault(f.Default.Update()); err != nil {
			return fmt.Errorf("default rule: %w", err)
		}
	}
	for _, u := range f.Users {
		if _, err := admin.UpsertUserRule(u.Identifier, u.Update()); err != nil {
			return fmt.Errorf("user rule %q: %w", u.Identifier, err)
		}
	}
	return nil
}

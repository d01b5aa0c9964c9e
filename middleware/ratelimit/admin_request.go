package ratelimit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"adaptive-gateway/middleware/ratelimit/domain"
)

const maxAdminBody = 1 << 16

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	body := map[string]json.RawMessage{}
	if r.Body == nil {
		return body, nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBody)).Decode(&body)
	if errors.Is(err, io.EOF) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidConfiguration, err)
	}
	return body, nil
}

// ruleUpdateFrom converte os campos opcionais points/duration/blockDuration.
// Aceita número JSON ou string numérica; `blockDuration: null` limpa o bloqueio.
// Qualquer valor não numérico falha antes de qualquer mudança de estado.
func ruleUpdateFrom(body map[string]json.RawMessage) (domain.RuleUpdate, error) {
	var u domain.RuleUpdate
	var err error

	if u.Points, err = intField(body, "points"); err != nil {
		return domain.RuleUpdate{}, err
	}
	if u.Duration, err = intField(body, "duration"); err != nil {
		return domain.RuleUpdate{}, err
	}
	if raw, ok := body["blockDuration"]; ok && isNull(raw) {
		u.ClearBlockDuration = true
	} else if u.BlockDuration, err = intField(body, "blockDuration"); err != nil {
		return domain.RuleUpdate{}, err
	}
	return u, nil
}

func intField(body map[string]json.RawMessage, name string) (*int, error) {
	raw, ok := body[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidConfiguration, name)
	}
	if i, err := n.Int64(); err == nil {
		if i > domain.MaxRuleValue || i < -domain.MaxRuleValue {
			return nil, outOfRange(name)
		}
		v := int(i)
		return &v, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return nil, fmt.Errorf("%w: %s must be a whole number", domain.ErrInvalidConfiguration, name)
	}
	if f > domain.MaxRuleValue || f < -domain.MaxRuleValue {
		return nil, outOfRange(name)
	}
	v := int(f)
	return &v, nil
}

func outOfRange(name string) error {
	return fmt.Errorf("%w: %s must be at most %d", domain.ErrInvalidConfiguration, name, domain.MaxRuleValue)
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

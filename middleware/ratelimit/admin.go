package ratelimit

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"adaptive-gateway/middleware/ratelimit/application"
	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// AdminKeyHeader é o header com o segredo compartilhado das rotas admin.
const AdminKeyHeader = "X-Admin-Api-Key"

type AdminOptions struct {
	Service application.AdminService
	APIKey  string
	Logger  *zap.Logger
}

// AdminAuth: 500 se a chave não foi configurada, 401 sem header, 403 se errada.
func AdminAuth(apiKey string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(AdminKeyHeader)
			switch {
			case apiKey == "":
				respondMessage(w, http.StatusInternalServerError, "Admin functionality not configured.")
			case provided == "":
				respondMessage(w, http.StatusUnauthorized, "Unauthorized: Admin API key missing.")
			case subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1:
				respondMessage(w, http.StatusForbidden, "Forbidden: Invalid Admin API key.")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RegisterAdminRoutes monta as rotas administrativas em r (normalmente um
// subrouter em /admin).
func RegisterAdminRoutes(r *mux.Router, opts AdminOptions) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := adminHandler{svc: opts.Service, log: opts.Logger}

	r.Use(AdminAuth(opts.APIKey))
	r.HandleFunc("/config", h.getConfig).Methods(http.MethodGet)
	r.HandleFunc("/config/default", h.updateDefault).Methods(http.MethodPost)
	r.HandleFunc("/config/user", h.upsertUser).Methods(http.MethodPost)
	r.HandleFunc("/config/user/{identifier}", h.deleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/scores", h.scores).Methods(http.MethodGet)
}

type adminHandler struct {
	svc application.AdminService
	log *zap.Logger
}

type ruleResponse struct {
	Message string `json:"message"`
	Rule    any    `json:"rule,omitempty"`
}

func (h adminHandler) getConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Snapshot())
}

func (h adminHandler) updateDefault(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	u, err := ruleUpdateFrom(body)
	if err != nil {
		h.fail(w, err)
		return
	}
	rule, err := h.svc.UpdateDefault(u)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ruleResponse{Message: "Default rate limit rule updated successfully.", Rule: rule})
}

func (h adminHandler) upsertUser(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var id string
	if raw, ok := body["identifier"]; ok {
		_ = json.Unmarshal(raw, &id)
	}
	if strings.TrimSpace(id) == "" {
		respondMessage(w, http.StatusBadRequest, "User identifier is required.")
		return
	}
	u, err := ruleUpdateFrom(body)
	if err != nil {
		h.fail(w, err)
		return
	}
	rule, err := h.svc.UpsertUserRule(id, u)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ruleResponse{Message: fmt.Sprintf("User-specific rule for '%s' updated.", rule.Identifier), Rule: rule})
}

func (h adminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["identifier"]
	if err := h.svc.DeleteUserRule(id); err != nil {
		if errors.Is(err, domain.ErrRuleNotFound) {
			respondMessage(w, http.StatusNotFound, fmt.Sprintf("User-specific rule for '%s' not found.", id))
			return
		}
		h.fail(w, err)
		return
	}
	respondMessage(w, http.StatusOK, fmt.Sprintf("User-specific rule for '%s' deleted.", id))
}

func (h adminHandler) scores(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Scores())
}

func (h adminHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfiguration):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"message": "All provided rule values must be positive whole numbers.",
			"error":   err.Error(),
		})
	case errors.Is(err, domain.ErrMissingIdentifier):
		respondMessage(w, http.StatusBadRequest, "User identifier is required.")
	case errors.Is(err, domain.ErrRuleNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("admin_request_failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

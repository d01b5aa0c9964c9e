package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"adaptive-gateway/middleware/ratelimit"
	"adaptive-gateway/middleware/ratelimit/application"
	"adaptive-gateway/middleware/ratelimit/domain"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const banner = `<body style="background-color: #000; color: #0f0; font-family: 'Courier New', Courier, monospace; text-align: center; padding-top: 15%;">
  <pre style="font-size: 1.2em;">
 :: Adaptive Trust Protocol :: Online
  </pre>
</body>
`

type deps struct {
	svc         application.Service
	admin       application.AdminService
	stats       domain.StatsStore
	adminAPIKey string
	log         *zap.Logger
}

// newRouter monta a API de demonstração: /api protegida pela admissão,
// /admin com as rotas administrativas e o banner em /.
func newRouter(d deps) http.Handler {
	r := mux.NewRouter()

	identify := ratelimit.DefaultKeyFunc(ratelimit.DefaultKeyHeader, false)
	admission := func(kind domain.RequestKind) mux.MiddlewareFunc {
		return mux.MiddlewareFunc(ratelimit.Middleware(ratelimit.Options{
			Service:             d.svc,
			Stats:               d.stats,
			KeyFn:               identify,
			KindFn:              ratelimit.StaticKind(kind),
			AddRateLimitHeaders: true,
			Logger:              d.log,
		}))
	}

	read := r.PathPrefix("/api").Methods(http.MethodGet).Subrouter()
	read.Use(admission(domain.KindRead))
	read.HandleFunc("/data", dataHandler(identify))

	submit := r.PathPrefix("/api").Methods(http.MethodPost).Subrouter()
	submit.Use(admission(domain.KindSubmit))
	submit.HandleFunc("/submit", submitHandler(identify))

	ratelimit.RegisterAdminRoutes(r.PathPrefix("/admin").Subrouter(), ratelimit.AdminOptions{
		Service: d.admin,
		APIKey:  d.adminAPIKey,
		Logger:  d.log,
	})

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, banner)
	}).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})

	h := ratelimit.RequestLogger(d.log, ratelimit.DefaultKeyHeader)(r)
	return cors.AllowAll().Handler(h)
}

func dataHandler(identify ratelimit.KeyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":             "You have successfully accessed the super secret AI data!",
			"timestamp":           time.Now().UTC().Format(time.RFC3339Nano),
			"requesterIdentifier": identify(r),
		})
	}
}

func submitHandler(identify ratelimit.KeyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		received, err := readSubmitted(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body.", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":             "Data submitted successfully!",
			"dataReceived":        received,
			"timestamp":           time.Now().UTC().Format(time.RFC3339Nano),
			"requesterIdentifier": identify(r),
		})
	}
}

// readSubmitted aceita JSON ou formulário; corpo vazio vira objeto vazio.
func readSubmitted(r *http.Request) (any, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
		return out, nil
	}

	var body any
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body)
	if errors.Is(err, io.EOF) {
		return map[string]any{}, nil
	}
	return body, err
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

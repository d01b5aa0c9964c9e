package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"adaptive-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultKeyHeader é o header de API key usado como identificador.
const DefaultKeyHeader = "X-Api-Key"

type KeyFunc func(r *http.Request) string

// KindFunc marca o tipo da requisição; só influencia a recompensa de trust.
type KindFunc func(r *http.Request) domain.RequestKind

// Admitter é o caso de uso consumido pelo middleware (application.Service).
type Admitter interface {
	Admit(id string, kind domain.RequestKind) (domain.Decision, error)
}

type Options struct {
	Service             Admitter
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	KindFn              KindFunc
	AddRateLimitHeaders bool
	Logger              *zap.Logger
}

// DefaultKeyFunc: API key no header, depois (opcionalmente) o primeiro IP do
// X-Forwarded-For, depois o host de RemoteAddr. Vazio se nada estiver disponível.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		addr := strings.TrimSpace(r.RemoteAddr)
		host, _, err := net.SplitHostPort(addr)
		if err == nil && host != "" {
			return host
		}
		return addr
	}
}

// StaticKind marca todas as requisições de uma rota com o mesmo tipo.
func StaticKind(kind domain.RequestKind) KindFunc {
	return func(*http.Request) domain.RequestKind { return kind }
}

// PathKind marca como KindSubmit as requisições com o método e um dos paths
// informados; o resto é KindRead.
func PathKind(method string, paths ...string) KindFunc {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	return func(r *http.Request) domain.RequestKind {
		if r.Method != method {
			return domain.KindRead
		}
		if _, ok := set[r.URL.Path]; ok {
			return domain.KindSubmit
		}
		return domain.KindRead
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyHeader == "" {
		opts.KeyHeader = DefaultKeyHeader
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.KindFn == nil {
		opts.KindFn = StaticKind(domain.KindRead)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger
	// avisos de throttle amostrados: no máximo uma rajada de 10 e depois 1/s
	warn := &rate.Sometimes{First: 10, Interval: time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			kind := opts.KindFn(r)

			dec, err := opts.Service.Admit(key, kind)
			if errors.Is(err, domain.ErrMissingIdentifier) {
				respondMessage(w, http.StatusBadRequest, "Client identifier missing for rate limiting.")
				return
			}

			if opts.Stats != nil {
				if serr := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:        domain.Key(key),
					Allowed:    dec.Allowed,
					Kind:       kind,
					RuleClass:  dec.Rule.Class(),
					TrustScore: dec.TrustScore,
					Method:     r.Method,
					Path:       r.URL.Path,
					At:         time.Now(),
				}); serr != nil {
					log.Warn("stats_record_failed", zap.Error(serr))
				}
			}

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				w.Header().Set("X-RateLimit-Limit", formatInt(dec.Rule.Points))
				w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
			}

			var throttled *domain.ThrottledError
			if errors.As(err, &throttled) {
				w.Header().Set("Retry-After", formatInt(throttled.RetryAfterSeconds))
				respondJSON(w, http.StatusTooManyRequests, throttleBody{
					Message:           http.StatusText(http.StatusTooManyRequests),
					Error:             "Rate limit exceeded. Try again in " + formatInt(throttled.RetryAfterSeconds) + " seconds.",
					RetryAfterSeconds: throttled.RetryAfterSeconds,
					ClientIdentifier:  key,
					RuleApplied:       throttled.RuleClass,
				})
				warn.Do(func() {
					log.Warn("rate_limit_exceeded",
						zap.String("identifier", key),
						zap.String("key_prefix", dec.Rule.KeyPrefix),
						zap.Int("retry_after_s", throttled.RetryAfterSeconds),
						zap.Int("trust_score", dec.TrustScore),
					)
				})
				return
			}
			if err != nil {
				log.Error("admission_failed", zap.Error(err))
				respondMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type throttleBody struct {
	Message           string           `json:"message"`
	Error             string           `json:"error"`
	RetryAfterSeconds int              `json:"retryAfterSeconds"`
	ClientIdentifier  string           `json:"clientIdentifier"`
	RuleApplied       domain.RuleClass `json:"ruleApplied"`
}

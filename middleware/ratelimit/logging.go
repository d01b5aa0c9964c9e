package ratelimit

import (
	"net/http"
	"strings"
	"time"

	"adaptive-gateway/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger loga cada requisição com um request id e a chave do cliente
// mascarada (API key, chave admin ou IP).
func RequestLogger(log *zap.Logger, keyHeader string) func(http.Handler) http.Handler {
	if keyHeader == "" {
		keyHeader = DefaultKeyHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			log.Info("http_request",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", logger.SanitizePath(r.URL.Path)),
				zap.String("client", displayKey(r, keyHeader)),
				zap.Int("status_code", wrapped.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func displayKey(r *http.Request, keyHeader string) string {
	if k := r.Header.Get(keyHeader); k != "" {
		return "API_KEY: " + maskKey(k)
	}
	if k := r.Header.Get(AdminKeyHeader); k != "" {
		return "ADMIN_KEY: " + maskKey(k)
	}
	return "IP: " + r.RemoteAddr
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/nazarhussain/portfolio-contact/internal/contact"
	"github.com/nazarhussain/portfolio-contact/internal/logging"
)

const requestIDHeader = "X-Request-ID"

func secHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

// requestID reuses an incoming X-Request-ID or mints one, and echoes it back.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		r.Header.Set(requestIDHeader, id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// cors answers preflights and sets Access-Control-Allow-Origin for allowed
// origins. With no origins configured it does nothing; with origins
// configured, requests from any other origin are refused.
func cors(allowed []string) func(http.Handler) http.Handler {
	wildcard := false
	originSet := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		originSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		if len(allowed) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				switch {
				case wildcard:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				case originSet[origin]:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				default:
					contact.RespondWithError(w, http.StatusForbidden, "Origin not allowed")
					return
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestLogger := baseLogger.With(
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", r.Header.Get(requestIDHeader),
			)

			ctx := logging.ContextWithLogger(r.Context(), requestLogger)
			r = r.WithContext(ctx)

			lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if rec := recover(); rec != nil {
					requestLogger.Error("panic recovered",
						"err", rec,
						"type", fmt.Sprintf("%T", rec),
						"stack", string(debug.Stack()),
					)
					if !lrw.wrote {
						contact.RespondWithError(lrw, http.StatusInternalServerError, contact.MsgSendFailed)
					}
				}
				duration := time.Since(start)
				level := slog.LevelInfo
				switch {
				case lrw.status >= 500:
					level = slog.LevelError
				case lrw.status >= 400:
					level = slog.LevelWarn
				}
				requestLogger.Log(ctx, level, "request completed",
					"status", lrw.status,
					"duration_ms", duration.Milliseconds(),
					"bytes", lrw.length,
				)
			}()

			next.ServeHTTP(lrw, r)
		})
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	length int
	wrote  bool
}

func (lrw *loggingResponseWriter) WriteHeader(status int) {
	if !lrw.wrote {
		lrw.ResponseWriter.WriteHeader(status)
		lrw.wrote = true
		lrw.status = status
	}
}

func (lrw *loggingResponseWriter) Write(p []byte) (int, error) {
	if !lrw.wrote {
		lrw.WriteHeader(http.StatusOK)
	}
	n, err := lrw.ResponseWriter.Write(p)
	lrw.length += n
	return n, err
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nazarhussain/portfolio-contact/internal/config"
	"github.com/nazarhussain/portfolio-contact/internal/contact"
	"github.com/nazarhussain/portfolio-contact/internal/mailer"
	"github.com/nazarhussain/portfolio-contact/internal/ratelimit"
)

const shutdownTimeout = 15 * time.Second

// Server hosts the contact relay and owns the rate limiter's sweeper.
type Server struct {
	httpServer *http.Server
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

// New wires the router. sender may be nil when mail is not configured.
func New(cfg *config.Config, logger *slog.Logger, sender mailer.Sender) *Server {
	limiter := ratelimit.New(ratelimit.Options{
		Limit:  cfg.RateLimitMax,
		Window: cfg.RateLimitWindow,
	})

	contactHandler := contact.NewHandler(contact.Options{
		Limiter:      limiter,
		Mail:         cfg.Mail,
		Sender:       sender,
		MaxBodyBytes: int64(cfg.MaxBodyKB) * 1024,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           NewRouter(logger, cfg.AllowedOrigins, contactHandler),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Dispatch may take up to the mail timeout.
			WriteTimeout: cfg.Mail.Timeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// NewRouter mounts the health check and the contact endpoint.
func NewRouter(logger *slog.Logger, allowedOrigins []string, contactHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(loggingMiddleware(logger))
	r.Use(secHeaders)

	r.Get("/health", HandleHealth)

	r.Route("/api/contact", func(r chi.Router) {
		r.Use(cors(allowedOrigins))
		r.Post("/", contactHandler.ServeHTTP)
		r.Options("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Allow", "POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.limiter.Run(sweepCtx, func(removed int) {
		if removed > 0 {
			s.logger.Debug("rate limit records swept", "removed", removed, "tracked", s.limiter.Len())
		}
	})

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("contact relay listening", "addr", s.httpServer.Addr)
		errc <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

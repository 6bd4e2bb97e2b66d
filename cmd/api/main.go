package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nazarhussain/portfolio-contact/internal/config"
	"github.com/nazarhussain/portfolio-contact/internal/logging"
	"github.com/nazarhussain/portfolio-contact/internal/mailer"
	"github.com/nazarhussain/portfolio-contact/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config failed", "err", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		slog.Error("logger failed", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Without mail settings the server still starts; submissions are answered
	// with "not configured" until the environment is fixed.
	var sender mailer.Sender
	if err := cfg.Mail.Check(); err != nil {
		logger.Warn("mail relay not configured", "err", err)
	} else if sender, err = mailer.NewSender(ctx, cfg.Mail); err != nil {
		logger.Warn("mail relay unavailable", "driver", cfg.Mail.Driver, "err", err)
		sender = nil
	}

	logger.Info("starting contact relay",
		"addr", cfg.ListenAddr,
		"driver", cfg.Mail.Driver,
		"rate_limit", cfg.RateLimitMax,
		"window", cfg.RateLimitWindow,
	)

	if err := server.New(cfg, logger, sender).Run(ctx); err != nil {
		logger.Error("server failed", "err", err)
		closer.Close()
		os.Exit(1)
	}
}

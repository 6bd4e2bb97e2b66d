package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nazarhussain/portfolio-contact/internal/config"
	"github.com/nazarhussain/portfolio-contact/internal/logging"
	"github.com/nazarhussain/portfolio-contact/internal/mailer"
	"github.com/nazarhussain/portfolio-contact/internal/ratelimit"
	"github.com/nazarhussain/portfolio-contact/internal/submission"
)

// Messages returned to the caller besides the validation reasons.
const (
	MsgSent            = "Email sent successfully"
	MsgTooManyRequests = "Too many requests. Please try again later."
	MsgInvalidBody     = "Invalid request body"
	MsgNotConfigured   = "Email service not configured. Please try again later."
	MsgSendFailed      = "Failed to send message. Please try again later."
)

const (
	defaultMaxBody = 64 << 10
	defaultTimeout = 10 * time.Second
)

var errNoSender = errors.New("no mail sender")

// Handler serves POST /api/contact. Each request runs rate check, validation,
// sanitization, configuration check and dispatch in that order and gets
// exactly one response.
type Handler struct {
	limiter *ratelimit.Limiter
	mail    config.MailConfig
	sender  mailer.Sender
	timeout time.Duration
	maxBody int64
}

type Options struct {
	Limiter *ratelimit.Limiter
	Mail    config.MailConfig
	// Sender may be nil when the relay is not configured; every submission
	// that passes validation is then answered with MsgNotConfigured.
	Sender       mailer.Sender
	MaxBodyBytes int64
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		limiter: opts.Limiter,
		mail:    opts.Mail,
		sender:  opts.Sender,
		timeout: opts.Mail.Timeout,
		maxBody: opts.MaxBodyBytes,
	}
	if h.limiter == nil {
		h.limiter = ratelimit.New(ratelimit.Options{})
	}
	if h.timeout <= 0 {
		h.timeout = defaultTimeout
	}
	if h.maxBody <= 0 {
		h.maxBody = defaultMaxBody
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client := ClientID(r)
	logger := logging.LoggerFromContext(r.Context()).With("client", client)

	if h.limiter.CheckAndRecord(client) {
		logger.Warn("contact submission rate limited")
		RespondWithError(w, http.StatusTooManyRequests, MsgTooManyRequests)
		return
	}

	var req submission.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		logger.Info("contact body rejected", "err", err)
		RespondWithError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	if res := submission.Validate(req); !res.Valid {
		if res.Reason == submission.MsgInvalidSubmission {
			logger.Info("contact honeypot tripped")
		} else {
			logger.Debug("contact submission invalid", "reason", res.Reason)
		}
		RespondWithError(w, http.StatusBadRequest, res.Reason)
		return
	}

	fields := req.Sanitized()

	if err := h.configured(); err != nil {
		logger.Error("contact mail relay not configured", "err", err)
		RespondWithError(w, http.StatusInternalServerError, MsgNotConfigured)
		return
	}

	start := time.Now()
	if err := h.dispatch(r.Context(), fields); err != nil {
		logger.Error("contact message not sent",
			"err", err,
			"driver", h.mail.Driver,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		RespondWithError(w, http.StatusInternalServerError, MsgSendFailed)
		return
	}

	logger.Info("contact message relayed", "to", h.mail.To, "duration_ms", time.Since(start).Milliseconds())
	RespondWithJSON(w, http.StatusOK, SuccessBody{Success: true, Message: MsgSent})
}

func (h *Handler) configured() error {
	if err := h.mail.Check(); err != nil {
		return err
	}
	if h.sender == nil {
		return errNoSender
	}
	return nil
}

// dispatch sends one message bounded by the handler timeout. The caller going
// away does not cancel a send that has started.
func (h *Handler) dispatch(ctx context.Context, f submission.Fields) error {
	msg, err := mailer.Compose(f, h.mail.FromAddress(), h.mail.To)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	return h.sender.Send(ctx, msg)
}

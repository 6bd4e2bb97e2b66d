package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/nazarhussain/portfolio-contact/internal/config"
)

// ErrUnknownDriver is returned by NewSender for an unsupported MAIL_DRIVER.
var ErrUnknownDriver = errors.New("unknown mail driver")

// Sender delivers one message. Implementations must return once ctx is done
// and report that as an error; they never retry.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// NewSender builds the relay for cfg.Driver, wrapped in the outbound throttle.
// cfg must pass Check.
func NewSender(ctx context.Context, cfg config.MailConfig) (Sender, error) {
	var (
		s   Sender
		err error
	)
	switch cfg.Driver {
	case config.DriverSMTP, "":
		s = NewSMTPSender(cfg)
	case config.DriverSES:
		s, err = NewSESSenderFromConfig(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	return NewThrottled(s, cfg.SendPerMinute, cfg.SendBurst), nil
}

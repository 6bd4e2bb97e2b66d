package contactform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/nazarhussain/portfolio-contact/internal/submission"
)

// Messages shown when the server rejects a submission or cannot be reached.
const (
	MsgTooManyRequests = "Too many requests. Please try again later."
	MsgSendFailed      = "Failed to send message"
	MsgUnreachable     = "Something went wrong"
)

var (
	// ErrInFlight is returned while a submission is awaiting its answer.
	ErrInFlight = errors.New("submission already in flight")

	// ErrInvalid is returned when local validation fails; see FieldErrors.
	ErrInvalid = errors.New("form has invalid fields")

	// ErrNotReset is returned when submitting again after a success without
	// calling Reset first.
	ErrNotReset = errors.New("form must be reset before sending another message")

	// ErrRejected wraps the message shown for a failed submission.
	ErrRejected = errors.New("submission rejected")
)

// Controller drives one contact form through idle, loading, success and
// error. At most one submission can be in flight.
type Controller struct {
	submitter Submitter

	mu          sync.Mutex
	state       State
	fields      Fields
	fieldErrors FieldErrors
	serverError string
	onChange    func(State)
}

func New(submitter Submitter) *Controller {
	return &Controller{submitter: submitter}
}

// OnChange registers fn to be called after every state transition. fn runs
// outside the controller's lock.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetFields replaces the inputs. Inputs are locked while loading.
func (c *Controller) SetFields(f Fields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Loading {
		return ErrInFlight
	}
	c.fields = f
	return nil
}

func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) FieldErrors() FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fieldErrors
}

// ServerError is the message to show in the error state.
func (c *Controller) ServerError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverError
}

// CanSubmit mirrors the submit button: disabled while loading.
func (c *Controller) CanSubmit() bool {
	return c.State() != Loading
}

// Submit validates the inputs locally and, if they pass, sends them and
// waits for the answer. Invalid inputs leave the state unchanged and make no
// request.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Loading:
		c.mu.Unlock()
		return ErrInFlight
	case Success:
		c.mu.Unlock()
		return ErrNotReset
	}

	if errs := Validate(c.fields); !errs.Empty() {
		c.fieldErrors = errs
		c.mu.Unlock()
		return ErrInvalid
	}

	req := submission.Request{
		Name:     c.fields.Name,
		Email:    c.fields.Email,
		Message:  c.fields.Message,
		Honeypot: c.fields.Website,
	}
	c.fieldErrors = FieldErrors{}
	c.serverError = ""
	notify := c.transition(Loading)
	c.mu.Unlock()
	notify()

	resp, err := c.submitter.Submit(ctx, req)

	c.mu.Lock()
	var result error
	switch {
	case err != nil:
		c.serverError = MsgUnreachable
		result = fmt.Errorf("%w: %s: %w", ErrRejected, MsgUnreachable, err)
		notify = c.transition(Error)
	case resp.Status == http.StatusTooManyRequests:
		c.serverError = MsgTooManyRequests
		result = fmt.Errorf("%w: %s", ErrRejected, c.serverError)
		notify = c.transition(Error)
	case !resp.OK():
		c.serverError = resp.Error
		if c.serverError == "" {
			c.serverError = MsgSendFailed
		}
		result = fmt.Errorf("%w: %s", ErrRejected, c.serverError)
		notify = c.transition(Error)
	default:
		c.fields = Fields{}
		notify = c.transition(Success)
	}
	c.mu.Unlock()
	notify()

	return result
}

// Reset returns to idle after a success or an error ("send another
// message"). It is a no-op while idle and refused while loading.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.state == Loading {
		c.mu.Unlock()
		return ErrInFlight
	}
	c.fieldErrors = FieldErrors{}
	c.serverError = ""
	notify := func() {}
	if c.state != Idle {
		notify = c.transition(Idle)
	}
	c.mu.Unlock()
	notify()
	return nil
}

// transition must be called with mu held; the returned func must be called
// after releasing it.
func (c *Controller) transition(to State) func() {
	c.state = to
	fn := c.onChange
	if fn == nil {
		return func() {}
	}
	return func() { fn(to) }
}

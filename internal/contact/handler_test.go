package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazarhussain/portfolio-contact/internal/config"
	"github.com/nazarhussain/portfolio-contact/internal/logging"
	"github.com/nazarhussain/portfolio-contact/internal/mailer"
	"github.com/nazarhussain/portfolio-contact/internal/ratelimit"
	"github.com/nazarhussain/portfolio-contact/internal/submission"
)

const validBody = `{"name":"Alice","email":"alice@example.com","message":"Hello there, nice site!"}`

type fakeSender struct {
	mu       sync.Mutex
	calls    int
	last     *mailer.Message
	lastCtx  context.Context
	err      error
	blocking bool
}

func (f *fakeSender) Send(ctx context.Context, m *mailer.Message) error {
	f.mu.Lock()
	f.calls++
	f.last = m
	f.lastCtx = ctx
	f.mu.Unlock()

	if f.blocking {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeSender) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func mailConfig() config.MailConfig {
	return config.MailConfig{
		Driver:   config.DriverSMTP,
		Host:     "smtp.example.com",
		Port:     587,
		User:     "relay@example.com",
		Password: "secret",
		To:       "owner@example.com",
		Timeout:  time.Second,
	}
}

type testEnv struct {
	handler *Handler
	sender  *fakeSender
	clock   *fakeClock
	logs    *bytes.Buffer
}

func setup(t *testing.T, mutate func(o *Options)) *testEnv {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	sender := &fakeSender{}
	opts := Options{
		Limiter:      ratelimit.New(ratelimit.Options{Limit: 3, Window: time.Minute, Now: clock.Now}),
		Mail:         mailConfig(),
		Sender:       sender,
		MaxBodyBytes: 1024,
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &testEnv{
		handler: NewHandler(opts),
		sender:  sender,
		clock:   clock,
		logs:    &bytes.Buffer{},
	}
}

func (e *testEnv) post(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	logger := slog.New(slog.NewTextHandler(e.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	req = req.WithContext(logging.ContextWithLogger(req.Context(), logger))

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestHandleContact_Success(t *testing.T) {
	env := setup(t, nil)

	rec := env.post(validBody, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SuccessBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, MsgSent, resp.Message)

	require.Equal(t, 1, env.sender.Calls())
	m := env.sender.last
	assert.Equal(t, `"Portfolio Contact Form" <relay@example.com>`, m.From)
	assert.Equal(t, "owner@example.com", m.To)
	assert.Equal(t, "alice@example.com", m.ReplyTo)
	assert.Equal(t, "New Contact Form Message from Alice", m.Subject)
	assert.Contains(t, m.Text, "Hello there, nice site!")
}

func TestHandleContact_SanitizesBeforeDispatch(t *testing.T) {
	env := setup(t, nil)

	body := `{"name":"  <b>Alice</b> ","email":"alice@example.com","message":"  <script>alert(1)</script> hello  "}`
	rec := env.post(body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	m := env.sender.last
	assert.Equal(t, "New Contact Form Message from bAlice/b", m.Subject)
	assert.Contains(t, m.Text, "scriptalert(1)/script hello")
	assert.NotContains(t, m.Text, "<script>")
}

func TestHandleContact_FromAddressOverride(t *testing.T) {
	env := setup(t, func(o *Options) { o.Mail.From = "contact@example.com" })

	rec := env.post(validBody, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"Portfolio Contact Form" <contact@example.com>`, env.sender.last.From)
}

func TestHandleContact_RateLimited(t *testing.T) {
	env := setup(t, nil)
	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}

	for i := 1; i <= 3; i++ {
		rec := env.post(validBody, headers)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := env.post(validBody, headers)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, MsgTooManyRequests, decodeError(t, rec))
	assert.Equal(t, 3, env.sender.Calls())

	// Another caller is unaffected.
	rec = env.post(validBody, map[string]string{"X-Forwarded-For": "198.51.100.1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleContact_RateLimitCountsInvalidSubmissions(t *testing.T) {
	env := setup(t, nil)
	headers := map[string]string{"X-Real-IP": "203.0.113.9"}

	for i := 0; i < 3; i++ {
		rec := env.post(`{"name":""}`, headers)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := env.post(validBody, headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 0, env.sender.Calls())
}

func TestHandleContact_RateLimitRunsBeforeBodyParsing(t *testing.T) {
	env := setup(t, nil)

	for i := 0; i < 3; i++ {
		env.post(`not json`, nil)
	}

	rec := env.post(`not json`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleContact_RateLimitWindowResets(t *testing.T) {
	env := setup(t, nil)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, env.post(validBody, nil).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, env.post(validBody, nil).Code)

	env.clock.Advance(61 * time.Second)

	assert.Equal(t, http.StatusOK, env.post(validBody, nil).Code)
}

func TestHandleContact_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{"honeypot", `{"name":"A","email":"a@b.com","message":"exactly10!","honeypot":"http://x"}`, submission.MsgInvalidSubmission},
		{"honeypot wins over invalid fields", `{"honeypot":"bot"}`, submission.MsgInvalidSubmission},
		{"missing name", `{"email":"a@b.com","message":"exactly10!"}`, submission.MsgNameRequired},
		{"name before email", `{"name":"","email":"nope","message":"exactly10!"}`, submission.MsgNameRequired},
		{"missing email", `{"name":"A","message":"exactly10!"}`, submission.MsgEmailRequired},
		{"bad email", `{"name":"A","email":"a@b","message":"exactly10!"}`, submission.MsgInvalidEmail},
		{"missing message", `{"name":"A","email":"a@b.com"}`, submission.MsgMessageRequired},
		{"short message", `{"name":"A","email":"a@b.com","message":"short"}`, submission.MsgMessageTooShort},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setup(t, nil)

			rec := env.post(tc.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.expected, decodeError(t, rec))
			assert.Equal(t, 0, env.sender.Calls())
		})
	}
}

func TestHandleContact_HoneypotLogged(t *testing.T) {
	env := setup(t, nil)

	env.post(`{"name":"A","email":"a@b.com","message":"exactly10!","honeypot":"x"}`, nil)

	assert.Contains(t, env.logs.String(), "honeypot")
}

func TestHandleContact_InvalidBody(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"not json", `name=alice`},
		{"wrong type", `{"name":42,"email":"a@b.com","message":"exactly10!"}`},
		{"empty", ``},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setup(t, nil)

			rec := env.post(tc.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, MsgInvalidBody, decodeError(t, rec))
		})
	}
}

func TestHandleContact_BodyTooLarge(t *testing.T) {
	env := setup(t, nil)

	body := `{"name":"A","email":"a@b.com","message":"` + strings.Repeat("x", 4096) + `"}`
	rec := env.post(body, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidBody, decodeError(t, rec))
	assert.Equal(t, 0, env.sender.Calls())
}

func TestHandleContact_NotConfigured(t *testing.T) {
	env := setup(t, func(o *Options) { o.Mail.Host = "" })

	rec := env.post(validBody, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgNotConfigured, decodeError(t, rec))
	assert.Equal(t, 0, env.sender.Calls())

	logs := env.logs.String()
	assert.Contains(t, logs, "not configured")
	assert.Contains(t, logs, "Host")
	assert.NotContains(t, rec.Body.String(), "Host")
}

func TestHandleContact_MissingCredentials(t *testing.T) {
	for _, mutate := range []func(o *Options){
		func(o *Options) { o.Mail.User = "" },
		func(o *Options) { o.Mail.Password = "" },
	} {
		env := setup(t, mutate)

		rec := env.post(validBody, nil)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, MsgNotConfigured, decodeError(t, rec))
		assert.NotContains(t, rec.Body.String(), "secret")
	}
}

func TestHandleContact_NoSender(t *testing.T) {
	env := setup(t, func(o *Options) { o.Sender = nil })

	rec := env.post(validBody, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgNotConfigured, decodeError(t, rec))
}

func TestHandleContact_ValidationPrecedesConfigCheck(t *testing.T) {
	env := setup(t, func(o *Options) { o.Mail.Host = "" })

	rec := env.post(`{"name":"A","email":"a@b.com","message":"short"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, submission.MsgMessageTooShort, decodeError(t, rec))
}

func TestHandleContact_DeliveryFailure(t *testing.T) {
	env := setup(t, nil)
	env.sender.err = errors.New("dial tcp 10.0.0.1:587: connection refused")

	rec := env.post(validBody, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgSendFailed, decodeError(t, rec))
	assert.Equal(t, 1, env.sender.Calls(), "delivery must not be retried")
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, env.logs.String(), "connection refused")
}

func TestHandleContact_DeliveryTimeout(t *testing.T) {
	env := setup(t, func(o *Options) { o.Mail.Timeout = 20 * time.Millisecond })
	env.sender.blocking = true

	rec := env.post(validBody, nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgSendFailed, decodeError(t, rec))
	assert.Equal(t, 1, env.sender.Calls())
}

func TestHandleContact_DispatchIgnoresCallerCancel(t *testing.T) {
	env := setup(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(validBody)).WithContext(ctx)
	rec := httptest.NewRecorder()

	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.sender.lastCtx)
	assert.NoError(t, env.sender.lastCtx.Err())
	_, hasDeadline := env.sender.lastCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestClientID(t *testing.T) {
	testCases := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "203.0.113.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1, 10.0.0.2"}, "203.0.113.7"},
		{"forwarded beats real ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.1"}, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.1"}, "198.51.100.1"},
		{"empty forwarded segment", map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.1"}, "198.51.100.1"},
		{"no headers", nil, UnknownClient},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tc.expected, ClientID(req))
		})
	}
}

func TestClientID_IgnoresRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = "192.0.2.10:51234"

	assert.Equal(t, UnknownClient, ClientID(req))
}

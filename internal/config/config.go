package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/nazarhussain/portfolio-contact/internal/logging"
)

/*
ENV-ONLY CONFIG (an optional .env file, or the file named by ENV_FILE, is
loaded first; real environment variables win):

  Server:
    LISTEN_ADDR (default ":3000")
    ALLOWED_ORIGINS="https://a.com,https://b.com" (or "*")
    MAX_BODY_KB (default 64)
    RATE_LIMIT_MAX (default 3)
    RATE_LIMIT_WINDOW (default 60s)

  Mail:
    MAIL_DRIVER ("smtp" or "ses", default "smtp")
    SMTP_HOST, SMTP_PORT (default 587), SMTP_USER, SMTP_PASS
    CONTACT_TO_EMAIL (default DefaultToAddress)
    CONTACT_FROM_EMAIL (defaults to SMTP_USER)
    AWS_REGION (ses only)
    MAIL_TIMEOUT (default 10s)
    MAIL_SEND_PER_MINUTE (default 30, 0 disables), MAIL_SEND_BURST (default 5)

  Logging:
    LOG_LEVEL, LOG_FORMAT ("text"/"json"), LOG_FILE and rotation settings

Missing mail settings never stop the server; every submission is answered
with "service not configured" until they are provided.
*/

// DefaultToAddress receives submissions when CONTACT_TO_EMAIL is unset.
const DefaultToAddress = "hello@nazarhussain.dev"

const (
	DriverSMTP = "smtp"
	DriverSES  = "ses"
)

// ErrMailNotConfigured is returned by MailConfig.Check.
var ErrMailNotConfigured = errors.New("mail relay not configured")

var validate = validator.New()

type Config struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":3000"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyKB       int           `env:"MAX_BODY_KB" envDefault:"64"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"3"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	Mail MailConfig
	Log  logging.Config
}

// MailConfig describes the outbound relay.
type MailConfig struct {
	Driver   string `env:"MAIL_DRIVER" envDefault:"smtp" validate:"oneof=smtp ses"`
	Host     string `env:"SMTP_HOST" validate:"required_if=Driver smtp"`
	Port     int    `env:"SMTP_PORT" envDefault:"587" validate:"required_if=Driver smtp,gte=0,lte=65535"`
	User     string `env:"SMTP_USER" validate:"required_if=Driver smtp"`
	Password string `env:"SMTP_PASS" validate:"required_if=Driver smtp"`
	To       string `env:"CONTACT_TO_EMAIL" envDefault:"hello@nazarhussain.dev" validate:"required"`
	From     string `env:"CONTACT_FROM_EMAIL" validate:"required_if=Driver ses"`
	Region   string `env:"AWS_REGION" validate:"required_if=Driver ses"`

	Timeout       time.Duration `env:"MAIL_TIMEOUT" envDefault:"10s"`
	SendPerMinute int           `env:"MAIL_SEND_PER_MINUTE" envDefault:"30"`
	SendBurst     int           `env:"MAIL_SEND_BURST" envDefault:"5"`
}

// Load reads the optional env file and parses the environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.AllowedOrigins = splitString(strings.Join(cfg.AllowedOrigins, ","))

	if cfg.MaxBodyKB <= 0 {
		return nil, fmt.Errorf("MAX_BODY_KB must be positive, got %d", cfg.MaxBodyKB)
	}
	if cfg.RateLimitMax <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", cfg.RateLimitWindow)
	}
	if cfg.Mail.Timeout <= 0 {
		cfg.Mail.Timeout = 10 * time.Second
	}
	if err := cfg.Log.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// Check reports whether the relay has everything it needs to send. The error
// names the missing settings and is meant for operators only.
func (m MailConfig) Check() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrMailNotConfigured, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: missing or invalid %s", ErrMailNotConfigured, strings.Join(fields, ", "))
}

// Secure reports whether the relay expects implicit TLS.
func (m MailConfig) Secure() bool {
	return m.Port == 465
}

// FromAddress falls back to the auth user.
func (m MailConfig) FromAddress() string {
	if m.From != "" {
		return m.From
	}
	return m.User
}

func (m MailConfig) Addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

func splitString(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package submission

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MinMessageLength is the shortest accepted message, counted in
	// characters after trimming.
	MinMessageLength = 10

	// MaxFieldLength caps every forwarded field, in characters.
	MaxFieldLength = 5000
)

// Rejection messages returned to the caller.
const (
	MsgInvalidSubmission = "Invalid submission"
	MsgNameRequired      = "Name is required"
	MsgEmailRequired     = "Email is required"
	MsgInvalidEmail      = "Invalid email format"
	MsgMessageRequired   = "Message is required"
	MsgMessageTooShort   = "Message must be at least 10 characters"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Request is a contact form submission as posted by the browser.
type Request struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Message  string `json:"message"`
	Honeypot string `json:"honeypot,omitempty"`
}

// Fields are the sanitized values forwarded to the mail relay. The honeypot
// never makes it this far.
type Fields struct {
	Name    string
	Email   string
	Message string
}

// Result is the outcome of Validate. Reason is set only when Valid is false.
type Result struct {
	Valid  bool
	Reason string
}

// Rule pairs a predicate that must hold with the message reported when it
// does not.
type Rule struct {
	OK      func(Request) bool
	Message string
}

// Rules is evaluated top to bottom; the first failing rule is reported.
var Rules = []Rule{
	{OK: func(r Request) bool { return IsBlank(r.Honeypot) }, Message: MsgInvalidSubmission},
	{OK: func(r Request) bool { return !IsBlank(r.Name) }, Message: MsgNameRequired},
	{OK: func(r Request) bool { return !IsBlank(r.Email) }, Message: MsgEmailRequired},
	{OK: func(r Request) bool { return IsEmail(r.Email) }, Message: MsgInvalidEmail},
	{OK: func(r Request) bool { return !IsBlank(r.Message) }, Message: MsgMessageRequired},
	{OK: func(r Request) bool { return MessageLongEnough(r.Message) }, Message: MsgMessageTooShort},
}

// Validate runs Rules in order against r.
func Validate(r Request) Result {
	for _, rule := range Rules {
		if !rule.OK(r) {
			return Result{Reason: rule.Message}
		}
	}
	return Result{Valid: true}
}

// Sanitize trims s, strips angle brackets and caps it at MaxFieldLength
// characters.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	if utf8.RuneCountInString(s) <= MaxFieldLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxFieldLength])
}

// Sanitized cleans each forwarded field of r independently. Callers must
// Validate first.
func (r Request) Sanitized() Fields {
	return Fields{
		Name:    Sanitize(r.Name),
		Email:   Sanitize(r.Email),
		Message: Sanitize(r.Message),
	}
}

func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsEmail checks the local@domain.tld shape on the raw value.
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

func MessageLongEnough(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= MinMessageLength
}

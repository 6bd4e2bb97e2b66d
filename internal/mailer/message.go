package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"github.com/nazarhussain/portfolio-contact/internal/submission"
)

const (
	// FromName is the display name on every relayed message.
	FromName = "Portfolio Contact Form"

	subjectTemplate = "New Contact Form Message from %s"
	footer          = "Sent from your portfolio contact form"
)

// Message is one outbound email, independent of the relay that delivers it.
type Message struct {
	From    string // formatted address, display name included
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Compose builds the operator notification for an accepted submission.
// f must already be sanitized.
func Compose(f submission.Fields, fromAddr, toAddr string) (*Message, error) {
	html, err := buildHTML(f)
	if err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	return &Message{
		From:    (&mail.Address{Name: FromName, Address: fromAddr}).String(),
		To:      toAddr,
		ReplyTo: f.Email,
		Subject: fmt.Sprintf(subjectTemplate, f.Name),
		Text:    buildText(f),
		HTML:    html,
	}, nil
}

func buildText(f submission.Fields) string {
	return fmt.Sprintf(`Name: %s
Email: %s

Message:
%s

---
%s`, f.Name, f.Email, f.Message, footer)
}

var htmlTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: linear-gradient(135deg, #D97706 0%, #B45309 100%); color: white; padding: 20px; border-radius: 8px 8px 0 0; }
    .content { background: #f9f9f9; padding: 20px; border-radius: 0 0 8px 8px; }
    .field { margin-bottom: 16px; }
    .label { font-weight: 600; color: #666; font-size: 12px; text-transform: uppercase; }
    .value { margin-top: 4px; }
    .message { background: white; padding: 16px; border-radius: 4px; border-left: 4px solid #D97706; }
    .footer { margin-top: 20px; font-size: 12px; color: #999; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h2 style="margin: 0;">New Contact Form Message</h2>
    </div>
    <div class="content">
      <div class="field">
        <div class="label">From</div>
        <div class="value">{{.Name}}</div>
      </div>
      <div class="field">
        <div class="label">Email</div>
        <div class="value"><a href="{{.MailTo}}">{{.Email}}</a></div>
      </div>
      <div class="field">
        <div class="label">Message</div>
        <div class="message">{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div>
      </div>
      <div class="footer">
        {{.Footer}}
      </div>
    </div>
  </div>
</body>
</html>`))

func buildHTML(f submission.Fields) (string, error) {
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Name   string
		Email  string
		MailTo string
		Lines  []string
		Footer string
	}{
		Name:   f.Name,
		Email:  f.Email,
		MailTo: "mailto:" + f.Email,
		Lines:  strings.Split(f.Message, "\n"),
		Footer: footer,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Package email sends transactional email through a configurable provider.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/studentos/studentos/internal/config"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers messages. Delivery failures are returned as errors; the
// callers on notification paths log and swallow them.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender builds a Sender from the email config section.
func NewSender(cfg *config.EmailConfig, logger zerolog.Logger) Sender {
	switch cfg.GetProvider() {
	case "sendgrid":
		return &sendgridSender{
			apiKey: cfg.APIKey,
			from:   cfg.GetFrom(),
			url:    sendgridURL,
			client: &http.Client{Timeout: 10 * time.Second},
		}
	case "resend":
		return &resendSender{
			apiKey: cfg.APIKey,
			from:   cfg.GetFrom(),
			url:    resendURL,
			client: &http.Client{Timeout: 10 * time.Second},
		}
	default:
		return &consoleSender{logger: logger}
	}
}

// consoleSender logs messages instead of delivering them. Development default.
type consoleSender struct {
	logger zerolog.Logger
}

func (s *consoleSender) Send(_ context.Context, msg Message) error {
	body := msg.Text
	if body == "" {
		body = stripTags(msg.HTML)
	}
	if len(body) > 100 {
		body = body[:100] + "..."
	}
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", body).
		Msg("email would be sent")
	return nil
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return htmlTag.ReplaceAllString(html, "")
}

type sendgridSender struct {
	apiKey string
	from   string
	url    string
	client *http.Client
}

const sendgridURL = "https://api.sendgrid.com/v3/mail/send"

func (s *sendgridSender) Send(ctx context.Context, msg Message) error {
	text := msg.Text
	if text == "" {
		text = stripTags(msg.HTML)
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": msg.To}}},
		},
		"from":    map[string]string{"email": s.from},
		"subject": msg.Subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": text},
			{"type": "text/html", "value": msg.HTML},
		},
	}

	return postJSON(ctx, s.client, s.url, s.apiKey, payload)
}

type resendSender struct {
	apiKey string
	from   string
	url    string
	client *http.Client
}

const resendURL = "https://api.resend.com/emails"

func (s *resendSender) Send(ctx context.Context, msg Message) error {
	payload := map[string]any{
		"from":    s.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
		"text":    msg.Text,
	}

	return postJSON(ctx, s.client, s.url, s.apiKey, payload)
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned %d", resp.StatusCode)
	}
	return nil
}

// JobAlert builds the message sent when a new job posting matches a student.
func JobAlert(to, jobTitle, company string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("New Job Match: %s at %s", jobTitle, company),
		HTML: fmt.Sprintf(
			`<div><h1>New Job Match!</h1><p>We found a job that matches your profile:</p><h2>%s</h2><p>%s</p></div>`,
			jobTitle, company,
		),
		Text: fmt.Sprintf("New job match: %s at %s.", jobTitle, company),
	}
}

// Package notification delivers booking emails. Delivery is best effort:
// callers never wait for it and failures never affect a booking.
package notification

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Template identifies the kind of email.
type Template string

const (
	TemplateBookingRequested Template = "booking_requested"
	TemplatePaymentRequired  Template = "payment_required"
	TemplateBookingConfirmed Template = "booking_confirmed"
	TemplateBookingCancelled Template = "booking_cancelled"
	TemplateBookingCompleted Template = "booking_completed"
)

var subjects = map[Template]string{
	TemplateBookingRequested: "New booking request",
	TemplatePaymentRequired:  "Complete your payment",
	TemplateBookingConfirmed: "Your booking is confirmed",
	TemplateBookingCancelled: "Your booking was cancelled",
	TemplateBookingCompleted: "Thanks for renting with Lokato",
}

// Sender sends one email.
type Sender interface {
	SendEmail(ctx context.Context, template Template, recipient string, data map[string]string) error
}

// SendGridConfig configures SendGridSender. TemplateIDs maps a Template to a
// SendGrid dynamic template; templates without an ID are sent as plain text.
type SendGridConfig struct {
	APIKey      string
	Host        string
	FromEmail   string
	FromName    string
	TemplateIDs map[Template]string
}

// SendGridSender sends email through the SendGrid v3 API.
type SendGridSender struct {
	cfg  SendGridConfig
	from *mail.Email
}

// NewSendGridSender creates a SendGridSender. An empty Host means the public API.
func NewSendGridSender(cfg SendGridConfig) *SendGridSender {
	if cfg.Host == "" {
		cfg.Host = "https://api.sendgrid.com"
	}
	return &SendGridSender{cfg: cfg, from: mail.NewEmail(cfg.FromName, cfg.FromEmail)}
}

// SendEmail builds the message for template and posts it to SendGrid.
func (s *SendGridSender) SendEmail(ctx context.Context, template Template, recipient string, data map[string]string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("no recipient for %s email", template)
	}

	message := s.buildMessage(template, recipient, data)
	request := sendgrid.GetRequest(s.cfg.APIKey, "/v3/mail/send", s.cfg.Host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *SendGridSender) buildMessage(template Template, recipient string, data map[string]string) *mail.SGMailV3 {
	to := mail.NewEmail("", recipient)

	if id, ok := s.cfg.TemplateIDs[template]; ok && id != "" {
		message := mail.NewV3Mail()
		message.SetFrom(s.from)
		message.SetTemplateID(id)
		p := mail.NewPersonalization()
		p.AddTos(to)
		for k, v := range data {
			p.SetDynamicTemplateData(k, v)
		}
		message.AddPersonalizations(p)
		return message
	}

	subject, ok := subjects[template]
	if !ok {
		subject = string(template)
	}
	return mail.NewSingleEmail(s.from, subject, to, plainBody(data), "")
}

func plainBody(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", strings.ReplaceAll(k, "_", " "), data[k])
	}
	return b.String()
}

// LogSender logs emails instead of sending them. Used when no SendGrid key
// is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, template Template, recipient string, data map[string]string) error {
	s.logger.Info("email not sent (no provider configured)",
		zap.String("template", string(template)),
		zap.String("recipient", recipient),
		zap.Any("data", data),
	)
	return nil
}

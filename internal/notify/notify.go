// Package notify delivers invitation e-mails through one of several transports.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender delivers an invitation carrying the claim link to an address.
type Sender interface {
	SendInvitation(ctx context.Context, to, claimLink string) error
}

// Message is the transport-neutral invitation mail.
type Message struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	ClaimLink string    `json:"claim_link"`
	CreatedAt time.Time `json:"created_at"`
}

// Template holds the fixed parts of every invitation.
type Template struct {
	From    string
	Subject string
}

// Build renders the invitation for one recipient.
func (t Template) Build(to, claimLink string) Message {
	body := fmt.Sprintf(
		"Hello,\n\nYou have been invited to join the OFA tech member directory.\n\n"+
			"Sign in and claim your invitation here:\n\n    %s\n\n"+
			"The link can be used once.\n", claimLink)
	return Message{
		From:      t.From,
		To:        to,
		Subject:   t.Subject,
		Body:      body,
		ClaimLink: claimLink,
		CreatedAt: time.Now().UTC(),
	}
}

// RFC822 renders the message with minimal headers for SMTP delivery.
func (m Message) RFC822() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(m.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogSender only records the invitation; used in development and tests.
type LogSender struct {
	template Template
	logger   *zap.Logger
}

func NewLogSender(template Template, logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{template: template, logger: logger}
}

func (s *LogSender) SendInvitation(_ context.Context, to, claimLink string) error {
	msg := s.template.Build(to, claimLink)
	s.logger.Info("invitation mail (log transport)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("claim_link", msg.ClaimLink))
	return nil
}

package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTemplate = Template{From: "noreply@ofa.tech", Subject: "Invitation\r\nBcc: evil@example.com"}

func TestTemplate_BuildContainsClaimLink(t *testing.T) {
	msg := testTemplate.Build("alice@example.com", "https://members.example/invitations/claim?key=abc")

	assert.Equal(t, "alice@example.com", msg.To)
	assert.Contains(t, msg.Body, "https://members.example/invitations/claim?key=abc")
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestMessage_RFC822HeadersCannotBeInjected(t *testing.T) {
	raw := string(testTemplate.Build("alice@example.com", "link").RFC822())

	headers, body, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)
	assert.Contains(t, headers, "Subject: Invitation  Bcc: evil@example.com")
	assert.NotContains(t, headers, "\r\nBcc:")
	assert.Contains(t, body, "link")
}

func TestSMTPSender_SendsToRelay(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotAuth smtp.Auth
	)
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: "2525", Username: "u", Password: "p"}, testTemplate)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotAuth = addr, to, a
		return nil
	}

	require.NoError(t, s.SendInvitation(context.Background(), "alice@example.com", "link"))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.NotNil(t, gotAuth)
}

func TestSMTPSender_PropagatesFailures(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: "25"}, testTemplate)
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("relay down") }

	assert.EqualError(t, s.SendInvitation(context.Background(), "alice@example.com", "link"), "relay down")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SendInvitation(ctx, "alice@example.com", "link"), context.Canceled)
}

func TestLogSender_NeverFails(t *testing.T) {
	assert.NoError(t, NewLogSender(testTemplate, zap.NewNop()).SendInvitation(context.Background(), "a@b.c", "link"))
}

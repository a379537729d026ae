package notify

import (
	"context"
	"net"
	"net/smtp"
)

// SMTPConfig locates the relay. Credentials are optional.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
}

// SMTPSender relays invitations through an SMTP server.
type SMTPSender struct {
	cfg      SMTPConfig
	template Template
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig, template Template) *SMTPSender {
	return &SMTPSender{cfg: cfg, template: template, send: smtp.SendMail}
}

func (s *SMTPSender) SendInvitation(ctx context.Context, to, claimLink string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := s.template.Build(to, claimLink)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return s.send(net.JoinHostPort(s.cfg.Host, s.cfg.Port), auth, msg.From, []string{msg.To}, msg.RFC822())
}

package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dropDatabas3/registrar/internal/observability/logger"
	mail "github.com/go-mail/mail"
)

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

type SMTPConfig struct {
	Host               string
	Port               int
	From               string
	Username           string
	Password           string
	TLSMode            string
	InsecureSkipVerify bool
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	mode := cfg.TLSMode
	if mode == "" {
		mode = "auto"
	}
	from := cfg.From
	if from == "" {
		from = "noreply@courseregistration.com"
	}
	return &SMTPSender{
		Host:               cfg.Host,
		Port:               cfg.Port,
		From:               from,
		User:               cfg.Username,
		Pass:               cfg.Password,
		TLSMode:            mode,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
}

func (s *SMTPSender) message(to, subject, htmlBody, textBody string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// multipart/alternative (txt + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}
	return m
}

func (s *SMTPSender) dialer(timeout time.Duration) *mail.Dialer {
	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.Timeout = timeout
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	default:
		// auto: go-mail negocia STARTTLS si el server lo ofrece
	}
	return d
}

// Send respeta el deadline del contexto: se usa como timeout del dial y
// además se abandona la espera si el contexto se cancela.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	log := logger.From(ctx).With(
		logger.Layer("infra"),
		logger.Component("email.smtp"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
	)

	timeout := 10 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return fmt.Errorf("smtp send: %w", context.DeadlineExceeded)
		}
	}

	m := s.message(to, subject, htmlBody, textBody)
	d := s.dialer(timeout)

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			diag := DiagnoseSMTP(err)
			log.Warn("smtp send failed",
				logger.String("diag", diag.Code),
				logger.Bool("temporary", diag.Temporary),
				logger.Err(err))
			return fmt.Errorf("smtp send: %w", err)
		}
		log.Debug("email sent", logger.String("subject", subject))
		return nil
	case <-ctx.Done():
		log.Warn("smtp send abandoned", logger.Err(ctx.Err()))
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

package email

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

const (
	subjectOTP          = "Your Verification Code - Course Registration System"
	subjectConfirmation = "Course Registration Confirmed"
)

// CourseInfo es lo que la confirmación muestra del curso.
type CourseInfo struct {
	Name string
	Code string
}

// Notifier arma y envía los correos del dominio con un timeout acotado.
type Notifier struct {
	Sender    Sender
	Templates *Templates
	AppName   string
	Timeout   time.Duration
	OTPTTL    time.Duration
	// LogOTP escribe el código en el log (dev).
	LogOTP bool
}

func NewNotifier(sender Sender, appName string, timeout, otpTTL time.Duration) (*Notifier, error) {
	tpl, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{Sender: sender, Templates: tpl, AppName: appName, Timeout: timeout, OTPTTL: otpTTL}, nil
}

func (n *Notifier) send(ctx context.Context, to, subject, tpl string, vars any) error {
	html, text, err := n.Templates.Render(tpl, vars)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()
	return n.Sender.Send(ctx, to, subject, html, text)
}

// SendOTP entrega el código de verificación.
func (n *Notifier) SendOTP(ctx context.Context, to, code, username string) error {
	if n.LogOTP {
		logger.From(ctx).Info("otp issued (dev)",
			logger.Component("email.notifier"), logger.Email(to), logger.String("otp", code))
	}
	vars := OTPVars{
		AppName:  n.AppName,
		Username: username,
		Code:     code,
		Minutes:  int(n.OTPTTL / time.Minute),
	}
	if err := n.send(ctx, to, subjectOTP, TemplateOTP, vars); err != nil {
		return fmt.Errorf("email: otp: %w", err)
	}
	return nil
}

// SendRegistrationConfirmation confirma una inscripción ya comprometida.
func (n *Notifier) SendRegistrationConfirmation(ctx context.Context, to, username string, c CourseInfo) error {
	vars := ConfirmationVars{
		AppName:    n.AppName,
		Username:   username,
		CourseName: c.Name,
		CourseCode: c.Code,
	}
	if err := n.send(ctx, to, subjectConfirmation, TemplateRegistrationConfirmed, vars); err != nil {
		return fmt.Errorf("email: confirmation: %w", err)
	}
	return nil
}

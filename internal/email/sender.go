package email

import (
	"context"

	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

// Sender envía un correo con cuerpo HTML y texto plano
// (multipart/alternative cuando vienen ambos).
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// LogSender no envía nada: escribe el correo en el log. Se usa cuando no
// hay SMTP configurado.
type LogSender struct {
	// IncludeBody agrega el texto plano al log (sólo dev).
	IncludeBody bool
}

func (s LogSender) Send(ctx context.Context, to, subject, _, textBody string) error {
	log := logger.From(ctx).With(logger.Layer("infra"), logger.Component("email.log"))
	fields := []logger.Field{logger.String("to", to), logger.String("subject", subject)}
	if s.IncludeBody {
		fields = append(fields, logger.String("body", textBody))
	}
	log.Info("email not sent (no smtp configured)", fields...)
	return nil
}

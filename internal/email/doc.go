// Package email entrega los correos del sistema: el código OTP del login y
// la confirmación de inscripción.
//
//	Notifier (templates + timeout)
//	   │
//	   ▼
//	Sender ── SMTPSender (go-mail)
//	       └─ LogSender  (dev: sólo log)
//
// El envío es best-effort: el caller decide qué hacer con el error, pero
// nunca falla el flujo principal por un correo.
package email

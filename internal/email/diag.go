package email

import (
	"errors"
	"net"
	"strings"
)

// SMTPDiag clasifica un error SMTP para los logs.
type SMTPDiag struct {
	Code      string // auth|tls|dial|timeout|rate_limited|invalid_recipient|rejected|network|unknown
	Temporary bool   // si conviene reintentar
}

var smtpPatterns = []struct {
	diag  SMTPDiag
	match []string
}{
	{SMTPDiag{"timeout", true}, []string{"timeout"}},
	{SMTPDiag{"dial", true}, []string{"connection refused", "no such host", "dial tcp"}},
	{SMTPDiag{"tls", false}, []string{"x509:", "tls: handshake", "certificate"}},
	{SMTPDiag{"auth", false}, []string{"535", "5.7.8", "authentication failed", "username and password not accepted"}},
	{SMTPDiag{"rate_limited", true}, []string{"4.7.0", "rate limit", "try again later", "421", "451"}},
	{SMTPDiag{"invalid_recipient", false}, []string{"5.1.1", "user unknown", "mailbox not found"}},
	{SMTPDiag{"rejected", false}, []string{"5.7.1", "message rejected", "dmarc", "spf"}},
}

func DiagnoseSMTP(err error) SMTPDiag {
	if err == nil {
		return SMTPDiag{Code: "unknown"}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return SMTPDiag{Code: "timeout", Temporary: true}
	}
	s := strings.ToLower(err.Error())
	for _, p := range smtpPatterns {
		for _, m := range p.match {
			if strings.Contains(s, m) {
				return p.diag
			}
		}
	}
	if ne != nil {
		return SMTPDiag{Code: "network", Temporary: true}
	}
	return SMTPDiag{Code: "unknown"}
}

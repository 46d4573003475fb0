package policy

import (
	"fmt"
	"time"

	"github.com/dropDatabas3/registrar/internal/domain/types"
)

// Formato de fecha en los mensajes.
const dateLayout = "2006-01-02"

// Mensajes de evaluación.
const (
	MsgNoRegistrationWindow = "No registration window configured"
	MsgRegistrationOpen     = "Registration is open"
	MsgNoDropDeadline       = "No drop deadline configured"
)

// WindowStatus es el resultado de evaluar una ventana.
type WindowStatus struct {
	Allowed  bool   `json:"allowed"`
	Message  string `json:"message"`
	Start    string `json:"startDate,omitempty"`
	End      string `json:"endDate,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

// Settings son los valores crudos por clave. Una clave ausente no está
// configurada.
type Settings map[types.PolicyKey]string

// ParseValue interpreta un valor de política (RFC 3339).
func ParseValue(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not an RFC 3339 timestamp", ErrInvalidValue, v)
	}
	return t, nil
}

// EvaluateRegistration decide si now cae dentro de [start, end]. Ambos
// extremos son inclusivos.
func EvaluateRegistration(s Settings, now time.Time) (WindowStatus, error) {
	rawStart, okStart := s[types.PolicyRegistrationStart]
	rawEnd, okEnd := s[types.PolicyRegistrationEnd]
	if !okStart || !okEnd {
		return WindowStatus{Allowed: true, Message: MsgNoRegistrationWindow}, nil
	}
	start, err := ParseValue(rawStart)
	if err != nil {
		return WindowStatus{}, err
	}
	end, err := ParseValue(rawEnd)
	if err != nil {
		return WindowStatus{}, err
	}

	ws := WindowStatus{Start: rawStart, End: rawEnd}
	switch {
	case now.Before(start):
		ws.Message = "Registration opens on " + start.UTC().Format(dateLayout)
	case now.After(end):
		ws.Message = "Registration closed on " + end.UTC().Format(dateLayout)
	default:
		ws.Allowed = true
		ws.Message = MsgRegistrationOpen
	}
	return ws, nil
}

// EvaluateDrop decide si now <= drop_deadline.
func EvaluateDrop(s Settings, now time.Time) (WindowStatus, error) {
	raw, ok := s[types.PolicyDropDeadline]
	if !ok {
		return WindowStatus{Allowed: true, Message: MsgNoDropDeadline}, nil
	}
	deadline, err := ParseValue(raw)
	if err != nil {
		return WindowStatus{}, err
	}
	ws := WindowStatus{Deadline: raw}
	if now.After(deadline) {
		ws.Message = "Drop deadline passed on " + deadline.UTC().Format(dateLayout)
		return ws, nil
	}
	ws.Allowed = true
	ws.Message = "Drop allowed until " + deadline.UTC().Format(dateLayout)
	return ws, nil
}

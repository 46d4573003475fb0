package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field es un alias para no importar zap sólo por el tipo.
type Field = zap.Field

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// ---- Dominio ----

// UserID identifica al actor o al usuario afectado.
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Email: usar con cuidado en prod.
func Email(v string) zap.Field { return zap.String("email", v) }

func Role(v string) zap.Field { return zap.String("role", v) }
func SessionID(v string) zap.Field { return zap.String("session_id", v) }
func CourseID(v string) zap.Field { return zap.String("course_id", v) }
func CourseCode(v string) zap.Field { return zap.String("course_code", v) }
func RegistrationID(v string) zap.Field { return zap.String("registration_id", v) }
func AuditID(v string) zap.Field { return zap.String("audit_id", v) }

// Action es la acción de auditoría (COURSE_REGISTER, LOGIN_FAILED, ...).
func Action(v string) zap.Field { return zap.String("action", v) }

// ---- Sistema ----

// Component: módulo que loguea (auth, registration, store.pg, ...).
func Component(v string) zap.Field { return zap.String("component", v) }

// Op: operación en curso.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer: handler, service, repository, infra.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

// ---- Genéricos ----

func Count(v int) zap.Field { return zap.Int("count", v) }
func Key(v string) zap.Field { return zap.String("key", v) }
func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }


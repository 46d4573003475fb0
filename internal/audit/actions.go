package audit

// Action es el vocabulario cerrado de eventos auditables.
type Action string

const (
	ActionUserRegister       Action = "USER_REGISTER"
	ActionLoginAttempt       Action = "LOGIN_ATTEMPT"
	ActionLoginFailed        Action = "LOGIN_FAILED"
	ActionOTPFailed          Action = "OTP_FAILED"
	ActionOTPResend          Action = "OTP_RESEND"
	ActionLoginSuccess       Action = "LOGIN_SUCCESS"
	ActionLogout             Action = "LOGOUT"
	ActionUnauthorizedAccess Action = "UNAUTHORIZED_ACCESS"
	ActionCourseCreate       Action = "COURSE_CREATE"
	ActionCourseUpdate       Action = "COURSE_UPDATE"
	ActionCourseDelete       Action = "COURSE_DELETE"
	ActionCourseRegister     Action = "COURSE_REGISTER"
	ActionCourseDrop         Action = "COURSE_DROP"
	ActionPolicyUpdate       Action = "POLICY_UPDATE"
	ActionUserActivate       Action = "USER_ACTIVATE"
	ActionUserDeactivate     Action = "USER_DEACTIVATE"
)

// Tipos de recurso usados en las entradas.
const (
	ResourceUser         = "user"
	ResourceSession      = "session"
	ResourceCourse       = "course"
	ResourceRegistration = "registration"
	ResourcePolicy       = "policy"
	ResourceEndpoint     = "endpoint"
)

// IsSecurityFailure reporta si la acción registra un intento fallido.
func (a Action) IsSecurityFailure() bool {
	switch a {
	case ActionLoginFailed, ActionOTPFailed, ActionUnauthorizedAccess:
		return true
	}
	return false
}

func (a Action) String() string { return string(a) }

// Meta son los datos del request que acompañan a una entrada.
type Meta struct {
	IP        string
	UserAgent string
}

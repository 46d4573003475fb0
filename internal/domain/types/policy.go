package types

// PolicyKey identifica una de las tres ventanas de política del sistema.
type PolicyKey string

const (
	PolicyRegistrationStart PolicyKey = "registration_start"
	PolicyRegistrationEnd   PolicyKey = "registration_end"
	PolicyDropDeadline      PolicyKey = "drop_deadline"
)

// PolicyKeys lista las claves válidas.
var PolicyKeys = []PolicyKey{PolicyRegistrationStart, PolicyRegistrationEnd, PolicyDropDeadline}

// IsValid retorna true si la clave es una de las tres conocidas.
func (k PolicyKey) IsValid() bool {
	switch k {
	case PolicyRegistrationStart, PolicyRegistrationEnd, PolicyDropDeadline:
		return true
	}
	return false
}

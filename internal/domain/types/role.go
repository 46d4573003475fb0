// Package types define tipos de dominio compartidos entre paquetes.
package types

import (
	"fmt"
	"strings"
)

// Role es el conjunto cerrado de roles del sistema.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// Roles lista todos los roles válidos en orden estable.
var Roles = []Role{RoleStudent, RoleFaculty, RoleAdmin}

// ParseRole normaliza y valida un rol.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// IsValid retorna true si el rol pertenece al conjunto cerrado.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Capability es una acción autorizable. Los handlers preguntan por
// capacidades, nunca comparan strings de rol.
type Capability string

const (
	CapRegister             Capability = "registration:write"
	CapViewOwnRegistrations Capability = "registration:read:own"
	CapViewAvailable        Capability = "course:read:available"
	CapViewOwnCourses       Capability = "course:read:own"
	CapViewRoster           Capability = "course:roster"
	CapManageCourses        Capability = "course:write"
	CapManageUsers          Capability = "user:write"
	CapManagePolicy         Capability = "policy:write"
	CapViewAudit            Capability = "audit:read"
	CapVerifyIntegrity      Capability = "registration:verify"
	CapViewStats            Capability = "registration:stats"
)

var capabilities = map[Role]map[Capability]bool{
	RoleStudent: {
		CapRegister:             true,
		CapViewOwnRegistrations: true,
		CapViewAvailable:        true,
	},
	RoleFaculty: {
		CapViewOwnCourses: true,
		CapViewRoster:     true,
	},
	RoleAdmin: {
		CapViewRoster:      true,
		CapManageCourses:   true,
		CapManageUsers:     true,
		CapManagePolicy:    true,
		CapViewAudit:       true,
		CapVerifyIntegrity: true,
		CapViewStats:       true,
	},
}

// Can reporta si el rol tiene la capacidad.
func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}

// RequiresOwnership indica si, para este rol, la capacidad sólo aplica a
// recursos propios (ej: faculty sólo ve el roster de sus cursos).
func (r Role) RequiresOwnership(c Capability) bool {
	return r == RoleFaculty && c == CapViewRoster
}

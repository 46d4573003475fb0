// Package validation contiene las reglas de formato de los datos de entrada.
// Sólo valida forma; la unicidad y el resto de las reglas de negocio viven
// en los servicios.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	UsernameMin    = 3
	UsernameMax    = 50
	CourseNameMin  = 3
	CourseNameMax  = 100
	DescriptionMax = 500
	MaxSeatsMin    = 1
	MaxSeatsMax    = 500
)

var (
	// Letras, dígitos y guión bajo.
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

	// Mayúsculas, dígitos y guión; 2..20. Se valida después de upper-case.
	courseCodeRe = regexp.MustCompile(`^[A-Z0-9-]{2,20}$`)

	otpRe = regexp.MustCompile(`^[0-9]{6}$`)
)

// Username: 3..50 caracteres de [a-zA-Z0-9_].
func Username(s string) bool {
	n := len(s)
	return n >= UsernameMin && n <= UsernameMax && usernameRe.MatchString(s)
}

// Email acepta sólo una dirección simple (sin display name).
func Email(s string) bool {
	if s == "" || len(s) > 255 || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// CourseCode recibe el código ya normalizado a mayúsculas.
func CourseCode(s string) bool { return courseCodeRe.MatchString(s) }

func CourseName(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= CourseNameMin && n <= CourseNameMax
}

func Description(s string) bool { return utf8.RuneCountInString(s) <= DescriptionMax }

func MaxSeats(n int) bool { return n >= MaxSeatsMin && n <= MaxSeatsMax }

// OTP: exactamente 6 dígitos.
func OTP(s string) bool { return otpRe.MatchString(s) }

// ID verifica que s sea un UUID canónico.
func ID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

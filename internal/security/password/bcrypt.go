// Package password hashea y valida contraseñas de usuario.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost es el work-factor de bcrypt (2^12 rondas).
const DefaultCost = 12

// maxBytes es el límite de entrada de bcrypt.
const maxBytes = 72

var ErrTooLong = errors.New("password: longer than 72 bytes")

// Hash genera un hash bcrypt con sal aleatoria propia. La sal queda
// embebida en el string resultante ($2a$12$<salt><hash>).
func Hash(plain string) (string, error) {
	return HashWithCost(plain, DefaultCost)
}

// HashWithCost permite bajar el costo en tests.
func HashWithCost(plain string, cost int) (string, error) {
	if len(plain) > maxBytes {
		return "", ErrTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify compara en tiempo constante. Hash malformado => false.
func Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

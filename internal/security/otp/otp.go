// Package otp genera y verifica códigos de un solo uso de 6 dígitos.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

const (
	Digits  = 6
	lowest  = 100000
	highest = 999999
)

// Generate devuelve un código uniforme en [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(highest-lowest+1))
	if err != nil {
		return "", fmt.Errorf("otp random: %w", err)
	}
	return strconv.FormatInt(n.Int64()+lowest, 10), nil
}

// Hash aplica SHA-256 (hex). Alcanza porque el código vive minutos y las
// verificaciones están limitadas por rate limit.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Verify compara el hash del candidato contra el guardado en tiempo constante.
func Verify(code, hash string) bool {
	got := Hash(code)
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}

// WellFormed reporta si el string tiene forma de código (6 dígitos).
func WellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Package tokens genera tokens aleatorios, ids de sesión y codificaciones
// URL-safe.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// DefaultTokenBytes es el largo por defecto de GenerateHex (64 chars hex).
const DefaultTokenBytes = 32

// GenerateHex genera nBytes aleatorios y los devuelve en hexadecimal.
func GenerateHex(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = DefaultTokenBytes
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSessionID devuelve un identificador único (uuid v4).
func NewSessionID() string {
	return uuid.NewString()
}

// SHA256Hex devuelve sha256(input) en hexadecimal (para guardar en DB).
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EncodeBase64 / DecodeBase64 usan el alfabeto estándar con padding.
func EncodeBase64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func DecodeBase64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeBase64URL codifica en base64url sin padding (seguro para paths).
func EncodeBase64URL(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

// DecodeBase64URL acepta base64url con o sin padding.
func DecodeBase64URL(s string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(trimPadding(s))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func trimPadding(s string) string {
	for len(s) > 0 && s[len(s)-1] == '=' {
		s = s[:len(s)-1]
	}
	return s
}

// Package secretbox cifra payloads con AES-256-GCM.
//
// Formato del ciphertext: base64(nonce)|base64(ciphertext+tag).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	nonceSizeGCM      = 12  // AES-GCM nonce size recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

var (
	// ErrIntegrity: el ciphertext fue alterado, está malformado o la clave
	// no es la correcta. Nunca se devuelve texto parcial.
	ErrIntegrity = errors.New("secretbox: integrity check failed")

	// ErrClosed: la clave ya fue borrada con Close.
	ErrClosed = errors.New("secretbox: closed")
)

// Box guarda la clave en memoria durante la vida del proceso.
type Box struct {
	mu   sync.RWMutex
	aead cipher.AEAD
	key  []byte
}

// New crea un Box a partir de una clave de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: clave inválida: %d bytes (requiere %d)", len(key), requiredKeyLength)
	}
	k := make([]byte, len(key))
	copy(k, key)
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead, key: k}, nil
}

// ParseKey acepta base64 (std o raw) o hex de 64 caracteres.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if len(s) == 2*requiredKeyLength {
		if h, err := hex.DecodeString(s); err == nil {
			return h, nil
		}
	}
	return nil, fmt.Errorf("secretbox: la clave debe ser base64 o hex de %d bytes", requiredKeyLength)
}

// Seal cifra plain y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plain []byte) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.aead == nil {
		return "", ErrClosed
	}

	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra. Cualquier falla de formato o de autenticación es ErrIntegrity.
func (b *Box) Open(cipherText string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.aead == nil {
		return nil, ErrClosed
	}

	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: esperado base64(nonce)|base64(ciphertext)", ErrIntegrity)
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSizeGCM {
		return nil, fmt.Errorf("%w: nonce inválido", ErrIntegrity)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext", ErrIntegrity)
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return pt, nil
}

// Close pone la clave en cero y deja el Box inutilizable.
func (b *Box) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.key {
		b.key[i] = 0
	}
	b.key = nil
	b.aead = nil
}

package app

import (
	"crypto/rand"
	"fmt"

	"github.com/dropDatabas3/registrar/internal/config"
	"github.com/dropDatabas3/registrar/internal/security/secretbox"
)

// Keys es el material decodificado de la configuración.
type Keys struct {
	Encryption []byte
	Integrity  []byte
	JWT        []byte
	// Ephemeral: al menos una clave se generó al vuelo (sólo dev + memory).
	Ephemeral bool
}

// LoadKeys decodifica las claves. Las que falten se generan sólo si la
// configuración lo permite; si no, es error.
func LoadKeys(cfg *config.Config) (*Keys, error) {
	k := &Keys{}
	allow := cfg.EphemeralKeysAllowed()

	switch {
	case cfg.Security.EncryptionKey != "":
		b, err := secretbox.ParseKey(cfg.Security.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("app: encryption key: %w", err)
		}
		k.Encryption = b
	case allow:
		k.Encryption, k.Ephemeral = random(32), true
	default:
		return nil, fmt.Errorf("app: security.encryption_key is required")
	}

	switch {
	case len(cfg.Security.IntegrityKey) >= 32:
		k.Integrity = []byte(cfg.Security.IntegrityKey)
	case allow:
		k.Integrity, k.Ephemeral = random(32), true
	default:
		return nil, fmt.Errorf("app: security.integrity_key must be at least 32 bytes")
	}

	switch {
	case len(cfg.JWT.Secret) >= 32:
		k.JWT = []byte(cfg.JWT.Secret)
	case allow:
		k.JWT, k.Ephemeral = random(32), true
	default:
		return nil, fmt.Errorf("app: jwt.secret must be at least 32 bytes")
	}
	return k, nil
}

func random(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("app: crypto/rand: %v", err))
	}
	return b
}

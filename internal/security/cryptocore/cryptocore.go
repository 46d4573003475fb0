// Package cryptocore agrupa las primitivas criptográficas que usan los
// servicios: hashing de passwords, OTP, cifrado de payloads y hashes de
// integridad. Se construye una vez al arrancar y se inyecta; nunca se lee
// material de claves desde variables globales.
package cryptocore

import (
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/registrar/internal/security/integrity"
	"github.com/dropDatabas3/registrar/internal/security/otp"
	"github.com/dropDatabas3/registrar/internal/security/password"
	"github.com/dropDatabas3/registrar/internal/security/secretbox"
	tokens "github.com/dropDatabas3/registrar/internal/security/token"
)

// Keys es el material con el que se construye un Core.
type Keys struct {
	EncryptionKey []byte // 32 bytes, AES-256-GCM
	IntegrityKey  []byte // >= 32 bytes, HMAC-SHA256
	BcryptCost    int    // 0 => password.DefaultCost
}

// Core es seguro para uso concurrente.
type Core struct {
	box    *secretbox.Box
	signer *integrity.Signer
	cost   int
}

func New(k Keys) (*Core, error) {
	box, err := secretbox.New(k.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("cryptocore: encryption key: %w", err)
	}
	signer, err := integrity.NewSigner(k.IntegrityKey)
	if err != nil {
		box.Close()
		return nil, fmt.Errorf("cryptocore: integrity key: %w", err)
	}
	cost := k.BcryptCost
	if cost == 0 {
		cost = password.DefaultCost
	}
	return &Core{box: box, signer: signer, cost: cost}, nil
}

func (c *Core) HashPassword(plain string) (string, error) {
	return password.HashWithCost(plain, c.cost)
}

func (c *Core) VerifyPassword(plain, hash string) bool {
	return password.Verify(plain, hash)
}

func (c *Core) GenerateOTP() (string, error) { return otp.Generate() }

func (c *Core) HashOTP(code string) string { return otp.Hash(code) }

func (c *Core) VerifyOTP(code, hash string) bool { return otp.Verify(code, hash) }

// Encrypt serializa v a JSON y lo cifra.
func (c *Core) Encrypt(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cryptocore: marshal payload: %w", err)
	}
	return c.box.Seal(raw)
}

// Decrypt descifra ct y lo decodifica en v. Un texto alterado o cifrado con
// otra clave devuelve un error que envuelve secretbox.ErrIntegrity.
func (c *Core) Decrypt(ct string, v any) error {
	raw, err := c.box.Open(ct)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("cryptocore: unmarshal payload: %w", err)
	}
	return nil
}

func (c *Core) ActionHash(a integrity.Action) (string, error) {
	return c.signer.Sign(a)
}

func (c *Core) VerifyActionHash(a integrity.Action, hash string) (bool, error) {
	return c.signer.Verify(a, hash)
}

// GenerateToken devuelve nBytes aleatorios en hex.
func (c *Core) GenerateToken(nBytes int) (string, error) {
	return tokens.GenerateHex(nBytes)
}

func (c *Core) GenerateSessionID() string { return tokens.NewSessionID() }

// Close borra las claves en memoria. El Core no se puede usar después.
func (c *Core) Close() {
	c.box.Close()
	c.signer.Close()
}

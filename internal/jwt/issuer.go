package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTTL coincide con la vida de una sesión completa.
	DefaultTTL = 24 * time.Hour

	minSecretBytes = 32
)

var ErrShortSecret = errors.New("jwt: secret must be at least 32 bytes")

// Claims del bearer emitido tras completar MFA.
type Claims struct {
	UserID    string `json:"uid"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwtv5.RegisteredClaims
}

// Issuer firma bearer tokens con HS256.
type Issuer struct {
	Iss    string        // "iss"
	TTL    time.Duration // exp - iat
	Now    func() time.Time
	secret []byte
}

func NewIssuer(iss string, secret []byte) (*Issuer, error) {
	if len(secret) < minSecretBytes {
		return nil, ErrShortSecret
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Issuer{Iss: iss, TTL: DefaultTTL, Now: time.Now, secret: s}, nil
}

// Issue emite un token para la sesión dada. Devuelve el token y su exp.
func (i *Issuer) Issue(c Claims) (string, time.Time, error) {
	now := i.Now().UTC()
	exp := now.Add(i.TTL)

	c.RegisteredClaims = jwtv5.RegisteredClaims{
		Issuer:    i.Iss,
		Subject:   c.UserID,
		IssuedAt:  jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(exp),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, c)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, exp, nil
}

// Close borra el secreto.
func (i *Issuer) Close() {
	for k := range i.secret {
		i.secret[k] = 0
	}
}

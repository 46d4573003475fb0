package jwt

import (
	"errors"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("jwt: token expired")
	ErrTokenInvalid = errors.New("jwt: token invalid")
)

// Parse valida firma (sólo HS256), iss y exp. Un token vencido devuelve
// ErrTokenExpired; cualquier otro problema, ErrTokenInvalid.
func (i *Issuer) Parse(token string) (*Claims, error) {
	var c Claims
	tok, err := jwtv5.ParseWithClaims(token, &c,
		func(*jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(i.Now),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid || c.UserID == "" || c.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return &c, nil
}

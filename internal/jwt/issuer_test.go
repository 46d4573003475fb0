package jwt

import (
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, now time.Time) *Issuer {
	t.Helper()
	is, err := NewIssuer("registrar", []byte(strings.Repeat("s", 32)))
	require.NoError(t, err)
	is.Now = func() time.Time { return now }
	return is
}

func TestIssueParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	is := newTestIssuer(t, now)

	tok, exp, err := is.Issue(Claims{UserID: "u1", Username: "john_doe", Role: "student", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), exp)

	c, err := is.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "john_doe", c.Username)
	assert.Equal(t, "student", c.Role)
	assert.Equal(t, "s1", c.SessionID)
	assert.Equal(t, "registrar", c.Issuer)
}

func TestParse_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	is := newTestIssuer(t, now)
	tok, _, err := is.Issue(Claims{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	is.Now = func() time.Time { return now.Add(25 * time.Hour) }
	_, err = is.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParse_Invalid(t *testing.T) {
	now := time.Now()
	is := newTestIssuer(t, now)
	tok, _, err := is.Issue(Claims{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)

	other, err := NewIssuer("registrar", []byte(strings.Repeat("x", 32)))
	require.NoError(t, err)
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = is.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// alg none
	unsigned := jwtv5.NewWithClaims(jwtv5.SigningMethodNone, Claims{UserID: "u1", SessionID: "s1"})
	raw, err := unsigned.SignedString(jwtv5.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = is.Parse(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParse_WrongIssuer(t *testing.T) {
	now := time.Now()
	is := newTestIssuer(t, now)
	tok, _, err := is.Issue(Claims{UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	is.Iss = "someone-else"
	_, err = is.Parse(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewIssuer_ShortSecret(t *testing.T) {
	_, err := NewIssuer("x", []byte("short"))
	assert.ErrorIs(t, err, ErrShortSecret)
}

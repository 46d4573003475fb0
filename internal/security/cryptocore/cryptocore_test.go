package cryptocore

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/registrar/internal/security/integrity"
	"github.com/dropDatabas3/registrar/internal/security/secretbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCore arma un Core con claves fijas y bcrypt barato.
func newTestCore(t *testing.T) *Core {
	t.Helper()
	c, err := New(Keys{
		EncryptionKey: bytes.Repeat([]byte{1}, 32),
		IntegrityKey:  bytes.Repeat([]byte{2}, 32),
		BcryptCost:    4,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNew_RejectsBadKeys(t *testing.T) {
	_, err := New(Keys{EncryptionKey: []byte("short"), IntegrityKey: bytes.Repeat([]byte{2}, 32)})
	require.Error(t, err)
	_, err = New(Keys{EncryptionKey: bytes.Repeat([]byte{1}, 32), IntegrityKey: []byte("short")})
	require.ErrorIs(t, err, integrity.ErrShortKey)
}

func TestPassword(t *testing.T) {
	c := newTestCore(t)
	h1, err := c.HashPassword("Str0ng@Pass")
	require.NoError(t, err)
	h2, err := c.HashPassword("Str0ng@Pass")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "salt must differ per call")
	assert.True(t, c.VerifyPassword("Str0ng@Pass", h1))
	assert.True(t, c.VerifyPassword("Str0ng@Pass", h2))
	assert.False(t, c.VerifyPassword("str0ng@Pass", h1))
}

func TestOTP(t *testing.T) {
	c := newTestCore(t)
	code, err := c.GenerateOTP()
	require.NoError(t, err)
	require.Len(t, code, 6)
	h := c.HashOTP(code)
	assert.True(t, c.VerifyOTP(code, h))
	assert.False(t, c.VerifyOTP("000000", h))
}

func TestEncryptDecrypt(t *testing.T) {
	c := newTestCore(t)
	in := map[string]any{"studentId": "s1", "courseId": "c1", "action": "REGISTER"}
	ct, err := c.Encrypt(in)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, c.Decrypt(ct, &out))
	assert.Equal(t, in, out)

	// bit-flip en el ciphertext
	parts := strings.SplitN(ct, "|", 2)
	require.Len(t, parts, 2)
	b := []byte(parts[1])
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	err = c.Decrypt(parts[0]+"|"+string(b), &out)
	assert.ErrorIs(t, err, secretbox.ErrIntegrity)
}

func TestActionHash(t *testing.T) {
	c := newTestCore(t)
	a := integrity.Action{
		Name:         "LOGIN_FAILED",
		ResourceType: "user",
		Details:      map[string]any{"email": "a@b.edu", "reason": "User not found"},
		Timestamp:    time.Now(),
	}
	h, err := c.ActionHash(a)
	require.NoError(t, err)
	ok, err := c.VerifyActionHash(a, h)
	require.NoError(t, err)
	assert.True(t, ok)

	a.ActorID = "u1"
	ok, err = c.VerifyActionHash(a, h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokens(t *testing.T) {
	c := newTestCore(t)
	tok, err := c.GenerateToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 64)
	assert.NotEqual(t, c.GenerateSessionID(), c.GenerateSessionID())
}

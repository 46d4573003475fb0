package tokens

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHex(t *testing.T) {
	a, err := GenerateHex(32)
	require.NoError(t, err)
	b, err := GenerateHex(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)

	d, err := GenerateHex(0)
	require.NoError(t, err)
	assert.Len(t, d, 2*DefaultTokenBytes)
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewSessionID())
}

func TestSHA256Hex(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256Hex("abc"))
}

func TestBase64URL(t *testing.T) {
	in := "course/id+?"
	enc := EncodeBase64URL(in)
	assert.NotContains(t, enc, "/")
	assert.NotContains(t, enc, "+")
	assert.NotContains(t, enc, "=")

	out, err := DecodeBase64URL(enc)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	padded, err := DecodeBase64URL(enc + "==")
	require.NoError(t, err)
	assert.Equal(t, in, padded)
}

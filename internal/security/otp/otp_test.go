package otp

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.True(t, WellFormed(code), "code %q", code)
		n, _ := strconv.Atoi(code)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestHashVerify(t *testing.T) {
	h := Hash("123456")
	assert.Len(t, h, 64)
	assert.True(t, Verify("123456", h))
	assert.False(t, Verify("123457", h))
	assert.False(t, Verify("123456", ""))
}

func TestWellFormed(t *testing.T) {
	assert.True(t, WellFormed("000123"))
	assert.False(t, WellFormed("12345"))
	assert.False(t, WellFormed("12345a"))
	assert.False(t, WellFormed("1234567"))
}

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j…@u….edu", MaskEmail(" John.Doe@Uni.edu "))
	assert.Equal(t, "a@b.edu", MaskEmail("a@b.edu"))
	assert.Equal(t, "n…l", MaskEmail("noemail"))
	assert.Equal(t, "", MaskEmail(""))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", MaskSecret("1234"))
	assert.Equal(t, "4…9", MaskSecret("482019"))
}

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/security/secretbox"
)

func TestGenerateKeys(t *testing.T) {
	vals, err := generateKeys()
	require.NoError(t, err)

	enc, err := base64.StdEncoding.DecodeString(vals["ENCRYPTION_KEY"])
	require.NoError(t, err)
	assert.Len(t, enc, 32)
	_, err = secretbox.ParseKey(vals["ENCRYPTION_KEY"])
	assert.NoError(t, err)

	assert.GreaterOrEqual(t, len(vals["INTEGRITY_KEY"]), 32)
	_, err = hex.DecodeString(vals["JWT_SECRET"])
	assert.NoError(t, err)
}

func TestKeysCmd_WriteEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"keys", "--write-env", path})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "wrote "+path)

	first, err := godotenv.Read(path)
	require.NoError(t, err)
	require.NotEmpty(t, first["JWT_SECRET"])

	// segunda corrida sin --force conserva las claves
	root = newRootCmd()
	out.Reset()
	root.SetOut(&out)
	root.SetArgs([]string{"keys", "--write-env", path})
	require.NoError(t, root.Execute())
	assert.Equal(t, 3, strings.Count(out.String(), "kept existing"))

	second, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestKeysCmd_Stdout(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"keys"})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ENCRYPTION_KEY="))
	assert.True(t, strings.HasPrefix(lines[1], "INTEGRITY_KEY="))
	assert.True(t, strings.HasPrefix(lines[2], "JWT_SECRET="))
}

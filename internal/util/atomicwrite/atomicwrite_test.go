package atomicwrite

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	require.NoError(t, WriteFile(path, []byte("one"), 0o600))
	require.NoError(t, WriteFile(path, []byte("two"), 0o600))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestMergeEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_ENV=dev\nJWT_SECRET=keepme\n"), 0o600))

	kept, err := MergeEnv(path, map[string]string{
		"JWT_SECRET":     "new",
		"ENCRYPTION_KEY": "abc",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"JWT_SECRET"}, kept)

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", env["APP_ENV"])
	assert.Equal(t, "keepme", env["JWT_SECRET"])
	assert.Equal(t, "abc", env["ENCRYPTION_KEY"])

	kept, err = MergeEnv(path, map[string]string{"JWT_SECRET": "new"}, true)
	require.NoError(t, err)
	assert.Empty(t, kept)
	env, err = godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "new", env["JWT_SECRET"])

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"APP_ENV", "ENCRYPTION_KEY", "JWT_SECRET"}, keys)
}

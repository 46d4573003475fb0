package store

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	applied map[int]bool
	ran     []int
	failOn  int
}

func (f *fakeExec) EnsureTable(context.Context) error { return nil }
func (f *fakeExec) AppliedVersions(context.Context) (map[int]bool, error) {
	return f.applied, nil
}
func (f *fakeExec) Apply(_ context.Context, m Migration) error {
	if m.Version == f.failOn {
		return errors.New("syntax error")
	}
	f.ran = append(f.ran, m.Version)
	f.applied[m.Version] = true
	return nil
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"sql/0002_indexes.sql": {Data: []byte("CREATE INDEX x;")},
		"sql/0001_init.sql":    {Data: []byte("CREATE TABLE x;")},
		"sql/0003_more.sql":    {Data: []byte("ALTER TABLE x;")},
		"sql/README.md":        {Data: []byte("ignored")},
	}
}

func TestParseMigrations_Sorted(t *testing.T) {
	migs, err := NewMigrator(testFS(), "sql").ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{migs[0].Version, migs[1].Version, migs[2].Version})
	assert.Equal(t, "init", migs[0].Name)
}

func TestParseMigrations_Duplicate(t *testing.T) {
	fsys := testFS()
	fsys["sql/0001_again.sql"] = &fstest.MapFile{Data: []byte("x")}
	_, err := NewMigrator(fsys, "sql").ParseMigrations()
	assert.Error(t, err)
}

func TestRun_SkipsApplied(t *testing.T) {
	exec := &fakeExec{applied: map[int]bool{1: true}}
	res, err := NewMigrator(testFS(), "sql").Run(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, res.Applied)
	assert.Equal(t, []int{1}, res.Skipped)

	// segunda corrida: nada pendiente
	res, err = NewMigrator(testFS(), "sql").Run(context.Background(), exec)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
}

func TestRun_StopsOnFailure(t *testing.T) {
	exec := &fakeExec{applied: map[int]bool{}, failOn: 2}
	res, err := NewMigrator(testFS(), "sql").Run(context.Background(), exec)
	require.Error(t, err)
	require.NotNil(t, res.Failed)
	assert.Equal(t, 2, *res.Failed)
	assert.Equal(t, []int{1}, exec.ran)
}

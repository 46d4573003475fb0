package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/store"
	"github.com/dropDatabas3/registrar/internal/store/adapters/memory"
	"github.com/dropDatabas3/registrar/internal/store/storetest"
)

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.DataAccess { return memory.New() })
}

func TestMemoryRegistered(t *testing.T) {
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", conn.Name())
	assert.NoError(t, conn.Ping(context.Background()))

	_, err = store.Migrate(context.Background(), conn, nil)
	assert.ErrorIs(t, err, store.ErrNotMigratable)
}

func TestTxPanicLeavesStateUntouched(t *testing.T) {
	da := memory.New()
	id := storetest.SeedCourse(t, da, "CS-101", 5, nil)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = da.WithTx(ctx, func(tx repository.Repositories) error {
			_, _ = tx.Courses().IncrementEnrollment(ctx, id)
			panic("boom")
		})
	})

	c, err := da.Courses().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, c.CurrentEnrollment)
}

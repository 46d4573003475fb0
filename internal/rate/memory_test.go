package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_BurstThenReject(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryLimiter()
	m.Now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := m.AllowWithLimits(ctx, "otp:1.2.3.4", 3, 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i+1)
	}
	res, err := m.AllowWithLimits(ctx, "otp:1.2.3.4", 3, 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, 100*time.Second)

	// otra clave no comparte bucket
	res, err = m.AllowWithLimits(ctx, "otp:5.6.7.8", 3, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_Refills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryLimiter()
	m.Now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, _ := m.AllowWithLimits(ctx, "k", 2, time.Minute)
		require.True(t, res.Allowed)
	}
	res, _ := m.AllowWithLimits(ctx, "k", 2, time.Minute)
	require.False(t, res.Allowed)

	now = now.Add(31 * time.Second)
	res, _ = m.AllowWithLimits(ctx, "k", 2, time.Minute)
	assert.True(t, res.Allowed)
}

func TestFixed(t *testing.T) {
	f := Fixed{Multi: NewMemoryLimiter(), Limit: 1, Window: time.Hour}
	ctx := context.Background()
	r1, _ := f.Allow(ctx, "x")
	r2, _ := f.Allow(ctx, "x")
	assert.True(t, r1.Allowed)
	assert.False(t, r2.Allowed)
}

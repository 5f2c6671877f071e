package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	m, err := NewMemory(DefaultMemoryConfig(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemorySetGetBytes(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k1", []byte("payload"), time.Minute))

	var got []byte
	require.NoError(t, m.Get(ctx, "k1", &got))
	assert.Equal(t, []byte("payload"), got)
}

func TestMemoryGetMiss(t *testing.T) {
	m := newTestMemory(t)

	var got []byte
	err := m.Get(context.Background(), "absent", &got)
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryDelete(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k2", []byte("x"), time.Minute))
	require.NoError(t, m.Delete(ctx, "k2"))

	exists, err := m.Exists(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStructRoundTrip(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	type entry struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}

	require.NoError(t, m.Set(ctx, "k3", entry{ID: 7, Name: "seven"}, time.Minute))

	var got entry
	require.NoError(t, m.Get(ctx, "k3", &got))
	assert.Equal(t, entry{ID: 7, Name: "seven"}, got)
}

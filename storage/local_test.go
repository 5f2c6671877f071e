package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestLocalSaveGetDelete(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	err := s.SaveWithContext(ctx, "abc123", strings.NewReader("image bytes"))
	require.NoError(t, err)

	exists, err := s.Exists(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	rs, err := s.GetWithContext(ctx, "abc123")
	require.NoError(t, err)
	data, err := io.ReadAll(rs)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
	if closer, ok := rs.(io.Closer); ok {
		_ = closer.Close()
	}

	require.NoError(t, s.DeleteWithContext(ctx, "abc123"))

	exists, err = s.Exists(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalRejectsTraversalIdentifiers(t *testing.T) {
	s := newTestLocalStorage(t)
	ctx := context.Background()

	for _, id := range []string{"../etc/passwd", "a/b", "a.b", "", ".."} {
		err := s.SaveWithContext(ctx, id, strings.NewReader("x"))
		assert.Error(t, err, "identifier %q must be rejected", id)

		_, err = s.GetWithContext(ctx, id)
		assert.Error(t, err)
	}
}

func TestLocalGetMissingFile(t *testing.T) {
	s := newTestLocalStorage(t)

	_, err := s.GetWithContext(context.Background(), "doesnotexist1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLocalHealth(t *testing.T) {
	s := newTestLocalStorage(t)
	assert.NoError(t, s.Health(context.Background()))
}

package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/pkg/logger"
)

func newStore(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "data"), logger.NewTestLogger())
	require.NoError(t, err)
	return s
}

func TestStoreGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	key, err := s.Store(ctx, strings.NewReader("hello"), "results/task-1.json")
	require.NoError(t, err)
	assert.Equal(t, "results/task-1.json", key)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	_, err = s.Store(ctx, strings.NewReader("again"), key)
	require.NoError(t, err)
	rc, err = s.Get(ctx, key)
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "again", string(data))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRejectsEscapingKeys(t *testing.T) {
	s := newStore(t)
	for _, key := range []string{"../outside", "a/../../outside", "", "/"} {
		_, err := s.Store(context.Background(), strings.NewReader("x"), key)
		assert.Error(t, err, key)
	}

	// a leading slash stays inside the root
	_, err := s.Store(context.Background(), strings.NewReader("x"), "/inside.txt")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(s.Root(), "inside.txt"))
}

func TestCleanupBefore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Store(ctx, strings.NewReader("old"), "uploads/old.pdf")
	require.NoError(t, err)
	_, err = s.Store(ctx, strings.NewReader("new"), "uploads/new.pdf")
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.Root(), "uploads", "old.pdf"), past, past))

	require.NoError(t, s.CleanupBefore(ctx, time.Now().Add(-24*time.Hour)))
	assert.NoFileExists(t, filepath.Join(s.Root(), "uploads", "old.pdf"))
	assert.FileExists(t, filepath.Join(s.Root(), "uploads", "new.pdf"))
}

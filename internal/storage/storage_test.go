package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestStorage_PutAndGet(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	data := testData{ID: "123", Name: "test", Value: 42}
	require.NoError(t, s.Put(ctx, []string{"items", "item1"}, data))

	var retrieved testData
	require.NoError(t, s.Get(ctx, []string{"items", "item1"}, &retrieved))
	assert.Equal(t, data, retrieved)
}

func TestStorage_GetNotFound(t *testing.T) {
	s := New(t.TempDir())

	var data testData
	err := s.Get(context.Background(), []string{"nonexistent", "item"}, &data)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Delete(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"items", "item1"}, testData{ID: "1"}))
	require.NoError(t, s.Delete(ctx, []string{"items", "item1"}))

	var data testData
	assert.ErrorIs(t, s.Get(ctx, []string{"items", "item1"}, &data), ErrNotFound)

	// Deleting again is a no-op
	assert.NoError(t, s.Delete(ctx, []string{"items", "item1"}))
}

func TestStorage_List(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"conversations", "a"}, testData{ID: "a"}))
	require.NoError(t, s.Put(ctx, []string{"conversations", "b"}, testData{ID: "b"}))

	items, err := s.List(ctx, []string{"conversations"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, items)

	empty, err := s.List(ctx, []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStorage_Exists(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	assert.False(t, s.Exists(ctx, []string{"items", "x"}))
	require.NoError(t, s.Put(ctx, []string{"items", "x"}, testData{}))
	assert.True(t, s.Exists(ctx, []string{"items", "x"}))
}

func TestStorage_AtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	s := New(tmpDir)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []string{"items", "item1"}, testData{ID: "1"}))

	// No temp file left behind
	_, err := os.Stat(filepath.Join(tmpDir, "items", "item1.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestStorage_ConcurrentPut(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.Put(ctx, []string{"items", "shared"}, testData{Value: n})
		}(i)
	}
	wg.Wait()

	var data testData
	require.NoError(t, s.Get(ctx, []string{"items", "shared"}, &data))
	assert.GreaterOrEqual(t, data.Value, 0)
	assert.Less(t, data.Value, 10)
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutige-mungos/mungo-shift/internal/models"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "seen.json"))
	require.NoError(t, err)

	seen, err := store.GetSeen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestFileStore_SaveMergesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SaveSeen(ctx, []string{"A", "B"}))
	require.NoError(t, store.SaveSeen(ctx, []string{"B", "C", "A", "D"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["A","B","C","D"]`, string(data))

	seen, err := store.GetSeen(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, 4)
	for _, code := range []string{"A", "B", "C", "D"} {
		assert.Contains(t, seen, code)
	}
}

func TestFileStore_SaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "seen.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SaveSeen(context.Background(), []string{"X"}))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileStore_SaveEmptyKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte(`["A"]`), 0o644))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.SaveSeen(context.Background(), nil))

	seen, err := store.GetSeen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"A": {}}, seen)
}

func TestFileStore_ReadVariants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]struct{}
		wantErr bool
	}{
		{name: "non-array document", content: `{"codes":["A"]}`, want: map[string]struct{}{}},
		{name: "non-string entries skipped", content: `["A", 1, null, "B"]`, want: map[string]struct{}{"A": {}, "B": {}}},
		{name: "corrupt file", content: `["A",`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seen.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			store, err := NewFileStore(path)
			require.NoError(t, err)

			seen, err := store.GetSeen(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrStoreUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestFileStore_CorruptFileFailsSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	err = store.SaveSeen(context.Background(), []string{"A"})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(data))
}

package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a file store in a temp dir
func createTestFileStore(t *testing.T) *FileStore {
	store, err := NewFileStore(t.TempDir(), logger.NewNop())
	require.NoError(t, err, "should create file store")
	return store
}

// TestFileStore_Path verifies the checkpoint file name
func TestFileStore_Path(t *testing.T) {
	store := createTestFileStore(t)
	assert.Equal(t, "detik_finance_results.json", filepath.Base(store.Path(testIdentity)))
}

// TestFileStore_LoadMissing verifies a missing file gives an empty state
func TestFileStore_LoadMissing(t *testing.T) {
	store := createTestFileStore(t)

	state := store.Load(context.Background(), testIdentity)
	assert.NotNil(t, state)
	assert.Empty(t, state)
}

// TestFileStore_SaveLoad verifies a saved state loads back unchanged
func TestFileStore_SaveLoad(t *testing.T) {
	store := createTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testIdentity, sampleState()))

	loaded := store.Load(ctx, testIdentity)
	require.Len(t, loaded, 2)
	require.Len(t, loaded[1577836800], 1)
	assert.Equal(t, "Harga emas naik", loaded[1577836800][0].Title)
	assert.Empty(t, loaded[1577923200])

	data, err := os.ReadFile(store.Path(testIdentity))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"1577923200":[]`)
}

// TestFileStore_SaveReplaces verifies save overwrites the whole file
func TestFileStore_SaveReplaces(t *testing.T) {
	store := createTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testIdentity, sampleState()))
	require.NoError(t, store.Save(ctx, testIdentity, newsharvest.CrawlState{1578009600: {}}))

	loaded := store.Load(ctx, testIdentity)
	assert.Len(t, loaded, 1)
	assert.Contains(t, loaded, newsharvest.DayKey(1578009600))

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files should be left behind")
}

// TestFileStore_LoadLegacyKeys verifies fractional day keys are accepted
func TestFileStore_LoadLegacyKeys(t *testing.T) {
	store := createTestFileStore(t)
	legacy := `{"1577836800.0": [{"title": "A", "url": "https://example.com/a", "timestamp": 1577840000, "section": "Market"}]}`
	require.NoError(t, os.WriteFile(store.Path(testIdentity), []byte(legacy), 0o600))

	loaded := store.Load(context.Background(), testIdentity)
	require.Len(t, loaded[1577836800], 1)
	assert.Equal(t, "Market", *loaded[1577836800][0].Section)
}

// TestFileStore_LoadLocalMidnightKeys verifies keys written at a WIB midnight
// resolve to the calendar day they were written for
func TestFileStore_LoadLocalMidnightKeys(t *testing.T) {
	store := createTestFileStore(t)
	legacy := `{"1577811600.0": [], "1577898000.0": [{"title": "B", "url": "https://example.com/b", "timestamp": 1577930000}]}`
	require.NoError(t, os.WriteFile(store.Path(testIdentity), []byte(legacy), 0o600))

	loaded := store.Load(context.Background(), testIdentity)
	require.Len(t, loaded, 2)

	jan2 := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	bucket, ok := loaded[newsharvest.KeyOf(jan2)]
	require.True(t, ok, "2020-01-02 should be found under its canonical key")
	require.Len(t, bucket, 1)
	assert.Equal(t, "B", bucket[0].Title)

	_, ok = loaded[newsharvest.KeyOf(jan2.AddDate(0, 0, -1))]
	assert.True(t, ok, "2020-01-01 should be found under its canonical key")

	start := time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, jan2, ResumeDate(loaded, start))
}

// TestFileStore_LoadMalformed verifies a malformed file is moved aside and
// an empty state is returned
func TestFileStore_LoadMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "truncated", content: `{"1577836800": [`},
		{name: "empty", content: ``},
		{name: "not an object", content: `[1, 2, 3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := createTestFileStore(t)
			path := store.Path(testIdentity)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			state := store.Load(context.Background(), testIdentity)
			assert.Empty(t, state)

			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err), "malformed file should be moved")

			entries, err := os.ReadDir(store.dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.True(t, strings.HasPrefix(entries[0].Name(), "detik_finance_results.json.corrupt-"))
		})
	}
}

// TestFileStore_Read verifies Read reports a malformed file and leaves it
// where it is
func TestFileStore_Read(t *testing.T) {
	store := createTestFileStore(t)
	ctx := context.Background()

	state, err := store.Read(ctx, testIdentity)
	require.NoError(t, err, "a missing file is not an error")
	assert.Empty(t, state)

	path := store.Path(testIdentity)
	require.NoError(t, os.WriteFile(path, []byte(`{"1577836800": [`), 0o600))

	_, err = store.Read(ctx, testIdentity)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = os.Stat(path)
	assert.NoError(t, err, "Read must not move the file")
}

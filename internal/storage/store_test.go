package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), true, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestStoreInsertAndLookup(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "https://example.com/v1", "First Song", "/music/first.mp3"))

	entry, err := s.LookupByURL(ctx, "https://example.com/v1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "First Song", entry.Title)
	assert.Equal(t, "/music/first.mp3", entry.LocalPath)

	byID, err := s.LookupByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, entry.URL, byID.URL)
}

func TestStoreLookupMissReturnsNil(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	entry, err := s.LookupByURL(ctx, "https://example.com/ghost")
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = s.LookupByID(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStoreInsertReplacesSameURL(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "https://example.com/v1", "Old Title", "/old.mp3"))
	require.NoError(t, s.Insert(ctx, "https://example.com/v1", "New Title", "/new.mp3"))

	entry, err := s.LookupByURL(ctx, "https://example.com/v1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "New Title", entry.Title)
	assert.Equal(t, "/new.mp3", entry.LocalPath)

	matches, err := s.SearchTitles(ctx, "Title", 0)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestStoreSearchTitles(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "u1", "Morning Coffee", "/1.mp3"))
	require.NoError(t, s.Insert(ctx, "u2", "Coffee Break", "/2.mp3"))
	require.NoError(t, s.Insert(ctx, "u3", "Evening Tea", "/3.mp3"))

	matches, err := s.SearchTitles(ctx, "Coffee", 0)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = s.SearchTitles(ctx, "Coffee", 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = s.SearchTitles(ctx, "Sympathy", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStoreDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "u1", "Track", "/t.mp3"))
	entry, err := s.LookupByURL(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, entry)

	require.NoError(t, s.Delete(ctx, entry.ID))

	entry, err = s.LookupByURL(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStoreClosedRejectsOperations(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), false, false)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.LookupByURL(context.Background(), "u")
	assert.Error(t, err)

	// Closing twice is harmless.
	assert.NoError(t, s.Close())
}

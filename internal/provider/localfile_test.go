package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceice666/sunflower/internal/source"
)

func musicDir(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	return dir
}

func TestLocalFileSearchMatchesCaseInsensitively(t *testing.T) {
	dir := musicDir(t, "song.mp3", "LOUD.MP3", "notes.txt")
	p := NewLocalFileProvider(dir, false)

	results, err := p.Search(`^.*\.mp3$`, NoLimit)
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Contains(t, results, "song.mp3")
	assert.Contains(t, results, "LOUD.MP3")
}

func TestLocalFileSearchRespectsMaxResults(t *testing.T) {
	dir := musicDir(t, "a.mp3", "b.mp3", "c.mp3")
	p := NewLocalFileProvider(dir, false)

	results, err := p.Search(`\.mp3$`, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestLocalFileSearchRecursion(t *testing.T) {
	dir := musicDir(t, "top.mp3", filepath.Join("sub", "deep.mp3"))

	flat := NewLocalFileProvider(dir, false)
	results, err := flat.Search(`\.mp3$`, NoLimit)
	require.NoError(t, err)
	assert.Len(t, results, 1, "non-recursive search stays in the top folder")

	deep := NewLocalFileProvider(dir, true)
	results, err = deep.Search(`\.mp3$`, NoLimit)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Contains(t, results, "deep.mp3")
}

func TestLocalFileSearchRejectsBadRegex(t *testing.T) {
	p := NewLocalFileProvider(t.TempDir(), false)

	_, err := p.Search(`[unclosed`, NoLimit)
	require.Error(t, err)

	var invalid *InvalidQueryError
	assert.ErrorAs(t, err, &invalid)
}

func TestLocalFileGetTrackUsesSearchCache(t *testing.T) {
	dir := musicDir(t, "song.mp3")
	p := NewLocalFileProvider(dir, false)

	_, err := p.Search(`\.mp3$`, NoLimit)
	require.NoError(t, err)

	track, err := p.GetTrack("song.mp3")
	require.NoError(t, err)
	assert.Equal(t, source.KindLocalFile, track.Kind())
	assert.Equal(t, "song.mp3", track.DisplayTitle())
}

func TestLocalFileGetTrackCacheMiss(t *testing.T) {
	dir := musicDir(t, "song.mp3")
	p := NewLocalFileProvider(dir, false)

	_, err := p.Search(`\.mp3$`, NoLimit)
	require.NoError(t, err)

	_, err = p.GetTrack("neverseen.mp3")
	require.Error(t, err)
	assert.Equal(t, "No such track: neverseen.mp3", err.Error())
}

func TestLocalFileGetTrackVanishedFile(t *testing.T) {
	dir := musicDir(t, "song.mp3")
	p := NewLocalFileProvider(dir, false)

	_, err := p.Search(`\.mp3$`, NoLimit)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "song.mp3")))

	_, err = p.GetTrack("song.mp3")
	require.Error(t, err)

	var notFound *TrackNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

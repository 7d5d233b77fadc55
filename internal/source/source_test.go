package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSineWaveTrackIdentity(t *testing.T) {
	track := NewSineWaveTrack(440, 2)

	assert.Equal(t, KindSineWave, track.Kind())
	assert.Equal(t, "sinewave_440hz_2sec", track.UniqueID())
	assert.Equal(t, track.UniqueID(), track.DisplayTitle())
}

func TestSineWaveTrackBuildSource(t *testing.T) {
	track := NewSineWaveTrack(440, 2)

	audio, err := track.BuildSource()
	require.NoError(t, err)

	assert.Equal(t, SampleF32, audio.Kind)

	total, ok := audio.TotalDuration()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, total)

	// The stream is finite: it must drain after exactly two seconds of
	// samples at the generator rate.
	want := audio.Format.SampleRate.N(2 * time.Second)
	got := 0
	buf := make([][2]float64, 512)
	for {
		n, ok := audio.Streamer.Stream(buf)
		got += n
		if !ok {
			break
		}
	}
	assert.Equal(t, want, got)
	assert.NoError(t, audio.Close())
}

func TestSineWaveTrackAmplitude(t *testing.T) {
	audio, err := NewSineWaveTrack(440, 1).BuildSource()
	require.NoError(t, err)

	buf := make([][2]float64, 4096)
	n, _ := audio.Streamer.Stream(buf)
	require.Greater(t, n, 0)

	peak := 0.0
	for i := 0; i < n; i++ {
		for c := 0; c < 2; c++ {
			if v := buf[i][c]; v > peak {
				peak = v
			}
			if v := -buf[i][c]; v > peak {
				peak = v
			}
		}
	}
	assert.InDelta(t, sineAmplitude, peak, 0.02, "tone is amplified to 0.20")
}

func TestSineWaveTrackRejectsBadParameters(t *testing.T) {
	for _, track := range []*SineWaveTrack{
		NewSineWaveTrack(0, 2),
		NewSineWaveTrack(-100, 2),
		NewSineWaveTrack(440, 0),
		NewSineWaveTrack(440, -1),
	} {
		_, err := track.BuildSource()
		require.Error(t, err)

		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	}
}

func TestSineWaveTrackInfo(t *testing.T) {
	info, err := NewSineWaveTrack(440, 2).Info()
	require.NoError(t, err)
	assert.Equal(t, "440", info["freq"])
	assert.Equal(t, "2", info["duration_secs"])
}

func TestLocalFileTrackIdentity(t *testing.T) {
	track := NewLocalFileTrack("/music/favorite.mp3")

	assert.Equal(t, KindLocalFile, track.Kind())
	assert.Equal(t, "/music/favorite.mp3", track.UniqueID())
	assert.Equal(t, "favorite.mp3", track.DisplayTitle())

	_, err := track.Info()
	assert.ErrorIs(t, err, ErrInfoUnavailable)
}

func TestLocalFileTrackMissingFile(t *testing.T) {
	track := NewLocalFileTrack(filepath.Join(t.TempDir(), "missing.mp3"))

	_, err := track.BuildSource()
	assert.Error(t, err)
}

func TestLocalFileTrackUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0644))

	_, err := NewLocalFileTrack(path).BuildSource()
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDownloadedTrackIdentity(t *testing.T) {
	track := NewDownloadedTrack("/cache/a.mp3", "https://example.com/watch?v=1", "A Song")

	assert.Equal(t, KindDownloaded, track.Kind())
	assert.Equal(t, "https://example.com/watch?v=1", track.UniqueID())
	assert.Equal(t, "A Song", track.DisplayTitle())

	info, err := track.Info()
	require.NoError(t, err)
	assert.Equal(t, "A Song", info["title"])
	assert.Equal(t, "/cache/a.mp3", info["local_path"])

	untitled := NewDownloadedTrack("/cache/b.mp3", "https://example.com/b", "")
	assert.Equal(t, "https://example.com/b", untitled.DisplayTitle())
}

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceice666/sunflower/internal/source"
)

func TestSineWaveProviderName(t *testing.T) {
	p := NewSineWaveProvider()
	assert.Equal(t, "SineWaveProvider", p.Name())
}

func TestSineWaveProviderSearchIsEmpty(t *testing.T) {
	p := NewSineWaveProvider()

	results, err := p.Search("anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSineWaveProviderGetTrack(t *testing.T) {
	p := NewSineWaveProvider()

	track, err := p.GetTrack("440+2")
	require.NoError(t, err)
	assert.Equal(t, source.KindSineWave, track.Kind())
	assert.Equal(t, "sinewave_440hz_2sec", track.DisplayTitle())

	info, err := track.Info()
	require.NoError(t, err)
	assert.Equal(t, "440", info["freq"])
	assert.Equal(t, "2", info["duration_secs"])
}

func TestSineWaveProviderGetTrackBadInput(t *testing.T) {
	p := NewSineWaveProvider()

	tests := []struct {
		name string
		id   string
	}{
		{"no separator", "440"},
		{"bad freq", "abc+2"},
		{"bad duration", "440+xyz"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.GetTrack(tt.id)
			require.Error(t, err)

			var notFound *TrackNotFoundError
			assert.ErrorAs(t, err, &notFound)
		})
	}
}

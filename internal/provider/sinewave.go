package provider

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iceice666/sunflower/internal/source"
)

// SineWaveProvider generates test tones. Track ids take the form
// "FREQ+SECS", e.g. "440+2". It has no catalog to search.
type SineWaveProvider struct{}

func NewSineWaveProvider() *SineWaveProvider {
	return &SineWaveProvider{}
}

func (p *SineWaveProvider) Name() string { return "SineWaveProvider" }

func (p *SineWaveProvider) Search(query string, maxResults int) (map[string]string, error) {
	return map[string]string{}, nil
}

func (p *SineWaveProvider) GetTrack(id string) (source.Track, error) {
	freqStr, secsStr, ok := strings.Cut(id, "+")
	if !ok {
		return nil, &TrackNotFoundError{ID: fmt.Sprintf("%s (expected 'freq+duration')", id)}
	}

	freq, err := strconv.ParseFloat(freqStr, 64)
	if err != nil {
		return nil, &TrackNotFoundError{ID: fmt.Sprintf("%s (freq should be a number)", id)}
	}

	secs, err := strconv.ParseFloat(secsStr, 64)
	if err != nil {
		return nil, &TrackNotFoundError{ID: fmt.Sprintf("%s (duration should be a number)", id)}
	}

	return source.NewSineWaveTrack(freq, secs), nil
}

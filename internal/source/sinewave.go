package source

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/generators"
)

// sineSampleRate is the generator rate; the sink resamples if it runs at a
// different one.
const sineSampleRate = beep.SampleRate(44100)

// sineAmplitude keeps test tones at a comfortable level.
const sineAmplitude = 0.20

// SineWaveTrack is a generated test tone of a fixed frequency and length.
type SineWaveTrack struct {
	Freq float64
	Secs float64
}

func NewSineWaveTrack(freq, secs float64) *SineWaveTrack {
	return &SineWaveTrack{Freq: freq, Secs: secs}
}

func (t *SineWaveTrack) Kind() string { return KindSineWave }

func (t *SineWaveTrack) UniqueID() string {
	return fmt.Sprintf("sinewave_%ghz_%gsec", t.Freq, t.Secs)
}

func (t *SineWaveTrack) DisplayTitle() string { return t.UniqueID() }

func (t *SineWaveTrack) Info() (map[string]string, error) {
	return map[string]string{
		"freq":          fmt.Sprintf("%g", t.Freq),
		"duration_secs": fmt.Sprintf("%g", t.Secs),
	}, nil
}

func (t *SineWaveTrack) BuildSource() (*Audio, error) {
	if t.Freq <= 0 {
		return nil, &DecodeError{Path: t.UniqueID(), Err: fmt.Errorf("frequency must be positive, got %g", t.Freq)}
	}
	if t.Secs <= 0 {
		return nil, &DecodeError{Path: t.UniqueID(), Err: fmt.Errorf("duration must be positive, got %g", t.Secs)}
	}

	tone, err := generators.SineTone(sineSampleRate, t.Freq)
	if err != nil {
		return nil, &DecodeError{Path: t.UniqueID(), Err: err}
	}

	total := time.Duration(t.Secs * float64(time.Second))
	finite := beep.Take(sineSampleRate.N(total), tone)

	return &Audio{
		Kind: SampleF32,
		// Gain scales by 1+Gain, so -0.80 leaves 20% amplitude.
		Streamer: &effects.Gain{Streamer: finite, Gain: sineAmplitude - 1},
		Format:   beep.Format{SampleRate: sineSampleRate, NumChannels: 2, Precision: 4},
		total:    total,
		hasTotal: true,
	}, nil
}

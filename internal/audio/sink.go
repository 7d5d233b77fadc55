// Package audio owns the OS output stream. A Sink presents a single playback
// timeline: one decoded source at a time, fed to the speaker, with transport
// controls and a drained ("empty") predicate the scheduler keys off.
package audio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/iceice666/sunflower/internal/config"
	"github.com/iceice666/sunflower/internal/source"
)

// ErrSeekUnsupported is returned by TrySeek when the current source cannot
// seek (or there is no current source).
var ErrSeekUnsupported = errors.New("seek not supported by current source")

// The output stream is process-wide; opening a second one is a fatal error
// on some platforms, so speaker initialization happens exactly once.
var (
	speakerOnce sync.Once
	speakerErr  error
)

// countingStreamer tracks how many samples have been delivered downstream.
// The counter is atomic because Stream runs on the speaker's thread while
// Position is read from handler goroutines.
type countingStreamer struct {
	s beep.Streamer
	n atomic.Int64
}

func (c *countingStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := c.s.Stream(samples)
	c.n.Add(int64(n))
	return n, ok
}

func (c *countingStreamer) Err() error { return c.s.Err() }

// Sink drives the speaker. All methods are safe for concurrent use.
type Sink struct {
	mu sync.Mutex

	sampleRate beep.SampleRate
	level      float64
	paused     bool

	ctrl    *beep.Ctrl
	vol     *effects.Volume
	counter *countingStreamer
	seeker  beep.StreamSeeker
	srcRate beep.SampleRate
	current *source.Audio

	// Latest-value cell for the current source's advisory total duration.
	total *time.Duration

	// empty is true iff no more samples are queued. It flips to false in
	// Append and back to true when the source drains or Stop runs. Atomic
	// because the drain callback runs under the speaker's own lock.
	empty atomic.Bool

	// gen invalidates drain callbacks from replaced sources.
	gen atomic.Int64

	debug bool
}

// NewSink opens the speaker at the configured sample rate. Failure to
// acquire the output device aborts daemon initialization.
func NewSink(cfg *config.Config) (*Sink, error) {
	rate := beep.SampleRate(cfg.Audio.SampleRate)

	speakerOnce.Do(func() {
		buf := rate.N(time.Duration(cfg.Audio.BufferMs) * time.Millisecond)
		speakerErr = speaker.Init(rate, buf)
		if cfg.Debug {
			log.Printf("[AUDIO] speaker.Init(%d, %d)", rate, buf)
		}
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("initialize speaker: %w", speakerErr)
	}

	s := &Sink{
		sampleRate: rate,
		level:      cfg.Audio.DefaultVolume,
		debug:      cfg.Debug,
	}
	s.empty.Store(true)
	return s, nil
}

func (s *Sink) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[AUDIO] "+format, args...)
}

// Append replaces the speaker pipeline with the given source and returns
// immediately. The source starts from its beginning; the paused state of the
// transport is preserved.
func (s *Sink) Append(src *source.Audio) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Detach the old pipeline before closing its decoder.
	speaker.Clear()
	s.dropCurrentLocked()

	s.counter = &countingStreamer{s: src.Streamer}
	s.srcRate = src.Format.SampleRate
	s.seeker = nil
	if sk, ok := src.Streamer.(beep.StreamSeeker); ok {
		s.seeker = sk
	}
	s.current = src

	var chain beep.Streamer = s.counter
	if s.srcRate != s.sampleRate {
		chain = beep.Resample(4, s.srcRate, s.sampleRate, s.counter)
	}

	s.ctrl = &beep.Ctrl{Streamer: chain, Paused: s.paused}
	s.vol = &effects.Volume{Streamer: s.ctrl, Base: 2}
	s.applyLevelLocked()

	if d, ok := src.TotalDuration(); ok {
		s.total = &d
	} else {
		s.total = nil
	}

	s.empty.Store(false)
	gen := s.gen.Add(1)

	speaker.Play(beep.Seq(s.vol, beep.Callback(func() {
		if s.gen.Load() == gen {
			s.empty.Store(true)
		}
	})))

	s.debugLog("appended source: kind=%s rate=%d total=%v", src.Kind, s.srcRate, s.total)
}

// Play resumes the transport. Idempotent.
func (s *Sink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = false
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = false
		speaker.Unlock()
	}
}

// Pause suspends the transport. Idempotent.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = true
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = true
		speaker.Unlock()
	}
}

// Stop drops any pending samples; Empty becomes true. Idempotent.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen.Add(1)
	speaker.Clear()
	s.dropCurrentLocked()
	s.ctrl = nil
	s.vol = nil
	s.seeker = nil
	s.counter = nil
	s.paused = false
	s.total = nil
	s.empty.Store(true)

	s.debugLog("stopped")
}

func (s *Sink) dropCurrentLocked() {
	if s.current != nil {
		if err := s.current.Close(); err != nil {
			s.debugLog("failed to close source: %v", err)
		}
		s.current = nil
	}
}

// Volume reports the linear gain level; 1.0 is unity.
func (s *Sink) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// SetVolume sets the linear gain level, clamped to [0, 1].
func (s *Sink) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = level
	if s.vol != nil {
		speaker.Lock()
		s.applyLevelLocked()
		speaker.Unlock()
	}
}

// applyLevelLocked maps the linear level onto the exponential volume effect.
func (s *Sink) applyLevelLocked() {
	if s.vol == nil {
		return
	}
	if s.level <= 0 {
		s.vol.Silent = true
	} else {
		s.vol.Silent = false
		s.vol.Volume = (s.level - 1) * 5
	}
}

// Position reports the playhead offset into the currently playing source.
func (s *Sink) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counter == nil || s.srcRate == 0 {
		return 0
	}
	return s.srcRate.D(int(s.counter.n.Load()))
}

// TotalDuration reports the advisory total length of the current source, or
// nil when unknown or idle.
func (s *Sink) TotalDuration() *time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total == nil {
		return nil
	}
	d := *s.total
	return &d
}

// TrySeek moves the playhead of the current source.
func (s *Sink) TrySeek(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seeker == nil {
		return ErrSeekUnsupported
	}

	target := s.srcRate.N(pos)
	if target < 0 {
		target = 0
	}
	if l := s.seeker.Len(); l > 0 && target >= l {
		target = l - 1
	}

	speaker.Lock()
	err := s.seeker.Seek(target)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("seek to %v: %w", pos, err)
	}

	s.counter.n.Store(int64(target))
	s.debugLog("seek to %v (sample=%d)", pos, target)
	return nil
}

// Empty reports whether the current source has been fully delivered or
// stopped, i.e. the sink is ready for the next source.
func (s *Sink) Empty() bool {
	return s.empty.Load()
}

// Shutdown releases the output stream.
func (s *Sink) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	speaker.Clear()
	s.dropCurrentLocked()
	speaker.Close()

	s.debugLog("speaker closed")
}

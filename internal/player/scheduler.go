package player

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/iceice666/sunflower/internal/source"
)

// Sink is the playback surface the scheduler feeds. *audio.Sink implements
// it; tests substitute fakes.
type Sink interface {
	Append(*source.Audio)
	Play()
	Pause()
	Stop()
	Volume() float64
	SetVolume(float64)
	Position() time.Duration
	TotalDuration() *time.Duration
	TrySeek(time.Duration) error
	Empty() bool
	Shutdown()
}

// Scheduler is the long-running loop that obtains sources from the state and
// feeds the sink, with bounded retries on source-construction failures. It
// runs on one dedicated worker goroutine.
type Scheduler struct {
	state *State
	sink  Sink

	// shutdown flag with its own mutex; the done channel backs
	// shutdown-interruptible sleeps.
	mu       sync.Mutex
	shutdown bool
	done     chan struct{}

	maxRetries int
	baseDelay  time.Duration
	drainPoll  time.Duration

	debug bool
}

// Option tweaks scheduler timing; used by composition and tests.
type Option func(*Scheduler)

func WithRetryPolicy(maxRetries int, baseDelay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.baseDelay = baseDelay
	}
}

func WithDrainPoll(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.drainPoll = interval
	}
}

func WithDebug(debug bool) Option {
	return func(s *Scheduler) {
		s.debug = debug
	}
}

func NewScheduler(state *State, sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		state:      state,
		sink:       sink,
		done:       make(chan struct{}),
		maxRetries: 5,
		baseDelay:  5 * time.Second,
		drainPoll:  25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[PLAYER] "+format, args...)
}

// ShuttingDown reports whether Shutdown has been requested.
func (s *Scheduler) ShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Shutdown requests loop termination and releases every wait the loop may be
// parked in.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	close(s.done)
	s.mu.Unlock()

	s.state.Wake()
}

// Run executes the playback loop until shutdown. Source-build failures are
// retried up to the bound; after exhaustion playback pauses and the loop
// backs off before accepting the next play signal.
func (s *Scheduler) Run() {
	retries := 0
	rounds := 0

	for {
		src, err := s.state.NextSource(s.ShuttingDown)
		switch {
		case errors.Is(err, ErrShutdown):
			s.debugLog("loop exiting on shutdown")
			return

		case errors.Is(err, errNotPlaying):
			continue

		case err != nil:
			log.Printf("[PLAYER] failed to build source: %v", err)
			retries++
			if retries < s.maxRetries {
				continue
			}

			retries = 0
			rounds++
			delay := s.backoff(rounds)
			s.state.SetPlaying(false)
			log.Printf("[PLAYER] giving up after %d attempts, pausing playback (backoff %v)", s.maxRetries, delay)
			if !s.sleep(delay) {
				return
			}
			continue
		}

		retries = 0
		rounds = 0

		s.sink.Append(src)
		s.debugLog("source appended, waiting for drain")

		if !s.waitUntilDrained() {
			s.sink.Stop()
			s.debugLog("loop exiting on shutdown mid-track")
			return
		}
	}
}

// backoff doubles per exhaustion round, capped at 8x the base delay.
func (s *Scheduler) backoff(rounds int) time.Duration {
	shift := rounds
	if shift > 3 {
		shift = 3
	}
	return s.baseDelay * (1 << shift)
}

// sleep waits for d, returning false if shutdown interrupted it.
func (s *Scheduler) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.done:
		return false
	}
}

// waitUntilDrained polls the sink's empty predicate, returning false on
// shutdown. The sink exposes no drain signal, so a short poll stands in for
// one.
func (s *Scheduler) waitUntilDrained() bool {
	ticker := time.NewTicker(s.drainPoll)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return false
		case <-ticker.C:
			if s.sink.Empty() {
				return true
			}
		}
	}
}

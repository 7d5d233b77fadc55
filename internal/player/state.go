// Package player holds the playback queue state machine and the scheduler
// loop that feeds the audio sink.
package player

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/iceice666/sunflower/internal/source"
)

// Repeat governs how the queue cursor moves when a track ends.
type Repeat int

const (
	RepeatNone Repeat = iota
	RepeatTrack
	RepeatQueue
)

func (r Repeat) String() string {
	switch r {
	case RepeatNone:
		return "none"
	case RepeatTrack:
		return "track"
	case RepeatQueue:
		return "queue"
	default:
		return "unknown"
	}
}

var (
	// ErrShutdown is returned by NextSource when the daemon is shutting down.
	ErrShutdown = errors.New("player shutting down")

	// errNotPlaying is returned when the cursor advance left nothing to play
	// (end of queue with repeat off); the scheduler goes back to waiting.
	errNotPlaying = errors.New("nothing to play")
)

// State is the playback queue, its cursor and mode flags. One mutex guards
// everything; the play condition is signalled whenever the playing flag
// transitions or the queue becomes non-empty.
type State struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue   []source.Track
	current int
	repeat  Repeat

	playing  bool
	shuffled bool
	reversed bool

	// parked marks a cursor that does not point at a consumed track: the
	// initial state, after the queue drains with repeat off, and after
	// Clear. The next advance lands on the current track (clamped to the
	// start when past the end) instead of stepping over it.
	parked bool
}

func NewState() *State {
	s := &State{parked: true}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Add appends a track to the queue and wakes the scheduler if the queue was
// empty.
func (s *State) Add(t source.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, t)
	s.cond.Broadcast()
}

// Remove deletes the track at index i. It reports whether the index was
// valid.
func (s *State) Remove(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.queue) {
		return false
	}

	s.queue = append(s.queue[:i], s.queue[i+1:]...)
	if i < s.current {
		s.current--
	}
	if s.current > len(s.queue) {
		s.current = len(s.queue)
	}
	return true
}

// Clear drops every track and parks the cursor.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = nil
	s.current = 0
	s.parked = true
}

func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *State) IsEmpty() bool {
	return s.Len() == 0
}

// Queue returns the display titles of every queued track, in order.
func (s *State) Queue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles := make([]string, len(s.queue))
	for i, t := range s.queue {
		titles[i] = t.DisplayTitle()
	}
	return titles
}

// IsPlaying reports the effective playing state: the flag is meaningless
// while the queue is empty.
func (s *State) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPlayingLocked()
}

func (s *State) isPlayingLocked() bool {
	return s.playing && len(s.queue) > 0
}

func (s *State) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = playing
	s.cond.Broadcast()
}

func (s *State) IsShuffled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuffled
}

func (s *State) SetShuffled(shuffled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffled = shuffled
}

func (s *State) ToggleShuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffled = !s.shuffled
}

func (s *State) IsReversed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reversed
}

// SetReversed arms the one-shot backward hint consumed by the next cursor
// advance.
func (s *State) SetReversed(reversed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reversed = reversed
}

func (s *State) RepeatMode() Repeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

func (s *State) SetRepeat(r Repeat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = r
}

// CurrentIndex returns the cursor position, in [0, Len()]. Len() means past
// the end.
func (s *State) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// UpdateIndex advances the cursor. The reversed hint is consumed no matter
// which branch runs.
func (s *State) UpdateIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateIndexLocked()
}

func (s *State) updateIndexLocked() {
	reversed := s.reversed
	s.reversed = false

	if len(s.queue) == 0 {
		return
	}

	if s.parked {
		s.parked = false
		if s.current >= len(s.queue) {
			s.current = 0
		}
		return
	}

	switch {
	case s.repeat == RepeatTrack && s.shuffled:
		s.current = rand.IntN(len(s.queue))
	case s.repeat == RepeatTrack:
		// stay put
	case s.repeat == RepeatNone && reversed:
		if s.current == 0 {
			s.playing = false
		} else {
			s.current--
		}
	case s.repeat == RepeatNone:
		if s.current+1 >= len(s.queue) {
			s.playing = false
			s.current = len(s.queue)
			s.parked = true
		} else {
			s.current++
		}
	case reversed: // RepeatQueue
		if s.current == 0 {
			s.current = len(s.queue) - 1
		} else {
			s.current--
		}
	default: // RepeatQueue
		s.current = (s.current + 1) % len(s.queue)
	}
}

// Wake releases any scheduler blocked on the play signal so it can observe a
// shutdown request.
func (s *State) Wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.Broadcast()
}

// NextSource blocks until the state is playable (or shuttingDown reports
// true), advances the cursor and builds the track under it. Build errors are
// returned for the scheduler's retry policy.
func (s *State) NextSource(shuttingDown func() bool) (*source.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.isPlayingLocked() && !shuttingDown() {
		s.cond.Wait()
	}
	if shuttingDown() {
		return nil, ErrShutdown
	}

	s.updateIndexLocked()

	if !s.isPlayingLocked() || s.current >= len(s.queue) {
		return nil, errNotPlaying
	}

	// Building inside the lock is tolerated only here: the scheduler is the
	// single blocking owner of this path.
	return s.queue[s.current].BuildSource()
}

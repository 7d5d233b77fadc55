// Package daemon composes the playback core: sink, player state, provider
// registry, scheduler and the request dispatcher.
package daemon

import (
	"log"
	"sync"
	"time"

	"github.com/iceice666/sunflower/internal/audio"
	"github.com/iceice666/sunflower/internal/config"
	"github.com/iceice666/sunflower/internal/player"
	"github.com/iceice666/sunflower/internal/provider"
	"github.com/iceice666/sunflower/pkg/protocol"
)

// Daemon owns the playback core. Exactly one instance runs per process (the
// audio output stream is process-wide).
type Daemon struct {
	cfg *config.Config

	sink     player.Sink
	state    *player.State
	registry *provider.Registry

	scheduler *player.Scheduler

	requests  chan protocol.Request
	responses chan protocol.Response
	done      chan struct{}

	startOnce    sync.Once
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	debug bool
}

// New opens the audio output and builds the daemon. Failure to acquire the
// output device is fatal to initialization.
func New(cfg *config.Config) (*Daemon, error) {
	sink, err := audio.NewSink(cfg)
	if err != nil {
		return nil, err
	}
	return newWithSink(cfg, sink), nil
}

// newWithSink lets tests substitute a fake sink.
func newWithSink(cfg *config.Config, sink player.Sink) *Daemon {
	state := player.NewState()

	scheduler := player.NewScheduler(state, sink,
		player.WithRetryPolicy(
			cfg.Playback.MaxRetries,
			time.Duration(cfg.Playback.RetryBaseDelayMs)*time.Millisecond,
		),
		player.WithDrainPoll(time.Duration(cfg.Playback.DrainPollMs)*time.Millisecond),
		player.WithDebug(cfg.Debug),
	)

	return &Daemon{
		cfg:       cfg,
		sink:      sink,
		state:     state,
		registry:  provider.NewRegistry(cfg.Debug),
		scheduler: scheduler,
		requests:  make(chan protocol.Request, cfg.Daemon.RequestBuffer),
		responses: make(chan protocol.Response, cfg.Daemon.RequestBuffer),
		done:      make(chan struct{}),
		debug:     cfg.Debug,
	}
}

func (d *Daemon) debugLog(format string, args ...interface{}) {
	if !d.debug {
		return
	}
	log.Printf("[DAEMON] "+format, args...)
}

// Start launches the scheduler on its own worker and the dispatcher loop,
// and returns the ingress/egress channel pair.
func (d *Daemon) Start() (chan<- protocol.Request, <-chan protocol.Response) {
	d.startOnce.Do(func() {
		log.Printf("[DAEMON] starting")

		d.state.SetPlaying(true)

		d.wg.Add(2)
		go func() {
			defer d.wg.Done()
			d.scheduler.Run()
		}()
		go func() {
			defer d.wg.Done()
			d.dispatch()
		}()
	})

	return d.requests, d.responses
}

// dispatch consumes requests and spawns a handler per request; handlers run
// concurrently and correlate by the request id.
func (d *Daemon) dispatch() {
	for {
		select {
		case <-d.done:
			return
		case req := <-d.requests:
			go func(req protocol.Request) {
				resp := d.handle(req)
				select {
				case d.responses <- resp:
				case <-d.done:
					d.debugLog("dropping response %s: shutting down", resp.ID)
				}
			}(req)
		}
	}
}

// Done is closed once shutdown has been initiated.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Shutdown stops the scheduler, the dispatcher and the sink, then blocks
// until both workers exit.
func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		log.Printf("[DAEMON] shutting down")

		d.scheduler.Shutdown()
		d.state.SetPlaying(false)
		close(d.done)
		d.sink.Stop()

		d.wg.Wait()

		d.sink.Shutdown()
		log.Printf("[DAEMON] shutdown complete")
	})
}

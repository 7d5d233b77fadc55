package daemon

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/iceice666/sunflower/pkg/protocol"
)

// ErrPoolClosed is returned by Submit after the pool has been closed.
var ErrPoolClosed = errors.New("task pool closed")

// TaskPool correlates in-flight requests with their responses by opaque id.
// It is used by the process speaking the socket protocol: submit a request
// kind, receive a single-shot waiter for the matching response.
type TaskPool struct {
	// tasks maps request id to its waiter. A concurrent map because the
	// ingest path and the response reader contend constantly.
	tasks sync.Map // string -> chan protocol.Response

	requests  chan<- protocol.Request
	done      chan struct{}
	closeOnce sync.Once

	debug bool
}

func NewTaskPool(requests chan<- protocol.Request, debug bool) *TaskPool {
	return &TaskPool{
		requests: requests,
		done:     make(chan struct{}),
		debug:    debug,
	}
}

func (p *TaskPool) debugLog(format string, args ...interface{}) {
	if !p.debug {
		return
	}
	log.Printf("[POOL] "+format, args...)
}

// Submit assigns a fresh id to the request, enqueues it, and returns a
// single-shot receiver for the response.
func (p *TaskPool) Submit(req protocol.Request) (<-chan protocol.Response, error) {
	id := uuid.NewString()
	req.ID = id

	waiter := make(chan protocol.Response, 1)

	// Enqueue before inserting the waiter so a failed enqueue leaves no
	// entry to clean up.
	select {
	case p.requests <- req:
	case <-p.done:
		return nil, ErrPoolClosed
	}

	p.tasks.Store(id, waiter)
	p.debugLog("submitted task %s kind=%s", id, req.Kind)

	return waiter, nil
}

// Run drains the response channel in the background, delivering each
// response to its waiter. Responses with no matching waiter are logged and
// discarded. The reader stops when ctx is cancelled, the channel closes, or
// the pool is closed.
func (p *TaskPool) Run(ctx context.Context, responses <-chan protocol.Response) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case resp, ok := <-responses:
				if !ok {
					return
				}
				w, found := p.tasks.LoadAndDelete(resp.ID)
				if !found {
					log.Printf("[POOL] received response for unknown task %s", resp.ID)
					continue
				}
				w.(chan protocol.Response) <- resp
				p.debugLog("delivered response for task %s", resp.ID)
			}
		}
	}()
}

// Close cancels the background reader and fails subsequent submits.
func (p *TaskPool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

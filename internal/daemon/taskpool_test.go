package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iceice666/sunflower/pkg/protocol"
)

func TestTaskPoolCorrelatesOutOfOrderResponses(t *testing.T) {
	requests := make(chan protocol.Request, 8)
	responses := make(chan protocol.Response, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewTaskPool(requests, false)
	pool.Run(ctx, responses)

	// Three requests with distinguishable payloads.
	waiters := make([]<-chan protocol.Response, 3)
	payloads := []string{"first", "second", "third"}
	for i, payload := range payloads {
		w, err := pool.Submit(protocol.Request{
			Kind:  protocol.KindTrack,
			Track: &protocol.TrackRequest{Op: protocol.TrackAdd, TrackID: payload},
		})
		require.NoError(t, err)
		waiters[i] = w
	}

	// The daemon side echoes the track id back, answering in the order
	// 3, 1, 2.
	received := make([]protocol.Request, 3)
	for i := range received {
		received[i] = <-requests
	}
	for _, i := range []int{2, 0, 1} {
		responses <- protocol.Response{
			ID:      received[i].ID,
			Kind:    protocol.RespOk,
			Message: received[i].Track.TrackID,
		}
	}

	// Every caller gets the response for its own request.
	for i, payload := range payloads {
		select {
		case resp := <-waiters[i]:
			assert.Equal(t, payload, resp.Message)
		case <-time.After(2 * time.Second):
			t.Fatalf("waiter %d timed out", i)
		}
	}
}

func TestTaskPoolAssignsFreshIDs(t *testing.T) {
	requests := make(chan protocol.Request, 2)
	pool := NewTaskPool(requests, false)

	_, err := pool.Submit(protocol.Request{ID: "client-chosen", Kind: protocol.KindAreYouAlive})
	require.NoError(t, err)
	_, err = pool.Submit(protocol.Request{ID: "client-chosen", Kind: protocol.KindAreYouAlive})
	require.NoError(t, err)

	r1 := <-requests
	r2 := <-requests
	assert.NotEmpty(t, r1.ID)
	assert.NotEqual(t, "client-chosen", r1.ID)
	assert.NotEqual(t, r1.ID, r2.ID)
}

func TestTaskPoolDiscardsUnknownResponses(t *testing.T) {
	requests := make(chan protocol.Request, 1)
	responses := make(chan protocol.Response, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewTaskPool(requests, false)
	pool.Run(ctx, responses)

	// No waiter exists for this id; the reader must log and move on.
	responses <- protocol.Response{ID: "ghost", Kind: protocol.RespOk}

	w, err := pool.Submit(protocol.Request{Kind: protocol.KindAreYouAlive})
	require.NoError(t, err)
	req := <-requests
	responses <- protocol.Response{ID: req.ID, Kind: protocol.RespImAlive}

	select {
	case resp := <-w:
		assert.Equal(t, protocol.RespImAlive, resp.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("reader stalled after unknown response")
	}
}

func TestTaskPoolSubmitAfterClose(t *testing.T) {
	requests := make(chan protocol.Request) // unbuffered: submit would block
	pool := NewTaskPool(requests, false)
	pool.Close()

	_, err := pool.Submit(protocol.Request{Kind: protocol.KindAreYouAlive})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

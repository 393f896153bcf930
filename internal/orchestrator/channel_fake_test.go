package orchestrator_test

import (
	"context"
	"sync"

	api "github.com/riskcanvas/analysis-client/api/v1alpha1"
	"github.com/riskcanvas/analysis-client/internal/transport"
)

// fakeChannel is an in-memory transport for driving the orchestrator with
// scripted events.
type fakeChannel struct {
	mu         sync.Mutex
	connectErr error
	handles    []*fakeHandle
	onEvent    func(api.Event)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{}
}

func (c *fakeChannel) Connect(ctx context.Context, jobID string, onEvent func(api.Event)) (transport.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	h := &fakeHandle{jobID: jobID, done: make(chan struct{})}
	c.handles = append(c.handles, h)
	c.onEvent = onEvent
	return h, nil
}

// emit delivers one event to the current subscriber.
func (c *fakeChannel) emit(ev api.Event) {
	c.mu.Lock()
	onEvent := c.onEvent
	c.mu.Unlock()
	if onEvent != nil {
		onEvent(ev)
	}
}

func (c *fakeChannel) setConnectErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
}

func (c *fakeChannel) connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

func (c *fakeChannel) lastHandle() *fakeHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.handles) == 0 {
		return nil
	}
	return c.handles[len(c.handles)-1]
}

type fakeHandle struct {
	jobID string

	mu     sync.Mutex
	sent   []any
	closed bool
	done   chan struct{}
}

func (h *fakeHandle) Send(payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, payload)
	return nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	return nil
}

func (h *fakeHandle) Done() <-chan struct{} {
	return h.done
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Package transport wraps the per-job live channel. It moves frames, it does
// not interpret them: every inbound message is decoded and handed to the
// subscriber callback in receipt order, and channel breakage is reported
// through the same callback as a transport-error event rather than thrown.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	api "github.com/riskcanvas/analysis-client/api/v1alpha1"
	"github.com/riskcanvas/analysis-client/internal/client"
)

const (
	// writeWait is the deadline for a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long we wait for a pong before declaring the
	// connection dead. A missed pong is a reconnect trigger, never a job
	// failure.
	pongWait = 30 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 20 * time.Second
)

// Handle is one live connection bound to a job identifier.
type Handle interface {
	// Send writes one JSON payload to the channel.
	Send(payload any) error
	// Close tears the connection down. Idempotent. No transport-error
	// event is emitted for a deliberate close.
	Close() error
	// Done is closed when the read loop has exited.
	Done() <-chan struct{}
}

// Channel dials live channels. The orchestrator owns at most one handle at a
// time; the dialer additionally guarantees that connecting twice for the same
// job id closes the stale handle first.
type Channel interface {
	Connect(ctx context.Context, jobID string, onEvent func(api.Event)) (Handle, error)
}

var _ Channel = (*Dialer)(nil)

type Dialer struct {
	config *client.Config

	mu    sync.Mutex
	conns map[string]*conn
}

func NewDialer(config *client.Config) *Dialer {
	return &Dialer{
		config: config,
		conns:  make(map[string]*conn),
	}
}

// Connect opens the live channel for jobID. Events are delivered to onEvent
// from a single goroutine, in the order received; after a connection error
// exactly one transport-error event is delivered and the handle is done.
func (d *Dialer) Connect(ctx context.Context, jobID string, onEvent func(api.Event)) (Handle, error) {
	channelURL, err := d.config.ChannelURL(jobID)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if stale, ok := d.conns[jobID]; ok {
		// one live connection per job id
		_ = stale.Close()
		delete(d.conns, jobID)
	}
	d.mu.Unlock()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, channelURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing live channel for job %s", jobID)
	}

	c := &conn{
		jobID: jobID,
		ws:    ws,
		done:  make(chan struct{}),
	}

	d.mu.Lock()
	d.conns[jobID] = c
	d.mu.Unlock()

	go c.readLoop(onEvent)
	go c.pingLoop()

	return c, nil
}

type conn struct {
	jobID string
	ws    *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    bool
	done      chan struct{}
}

func (c *conn) Send(payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(payload)
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closed = true
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *conn) Done() <-chan struct{} {
	return c.done
}

func (c *conn) readLoop(onEvent func(api.Event)) {
	defer close(c.done)

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.writeMu.Lock()
			deliberate := c.closed
			c.writeMu.Unlock()
			if !deliberate {
				zap.S().Named("transport").Warnf("channel for job %s broke: %v", c.jobID, err)
				onEvent(api.Event{Type: api.EventTransportError, Message: err.Error()})
			}
			return
		}

		ev, err := api.ParseEvent(data)
		if err != nil {
			zap.S().Named("transport").Warnf("dropping malformed frame on job %s: %v", c.jobID, err)
			continue
		}
		onEvent(ev)
	}
}

func (c *conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

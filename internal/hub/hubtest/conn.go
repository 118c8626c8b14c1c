// Package hubtest provides an in-memory hub.Conn for tests.
package hubtest

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"realtime-editor/internal/frame"
)

// ErrClosed is returned by a closed Conn.
var ErrClosed = errors.New("hubtest: connection closed")

type inbound struct {
	messageType int
	data        []byte
	err         error
}

// Conn is a scripted connection. Messages queued with Push are returned by
// ReadMessage in order; writes are recorded and can be inspected with Frames.
type Conn struct {
	in chan inbound

	mu        sync.Mutex
	written   [][]byte
	closed    bool
	writeErr  error
	closeOnce sync.Once
	done      chan struct{}
	notify    chan struct{}
}

// NewConn creates an open Conn.
func NewConn() *Conn {
	return &Conn{
		in:     make(chan inbound, 64),
		done:   make(chan struct{}),
		notify: make(chan struct{}, 1024),
	}
}

// Push queues a text message for ReadMessage.
func (c *Conn) Push(data []byte) {
	c.in <- inbound{messageType: 1, data: data}
}

// PushString queues a text message for ReadMessage.
func (c *Conn) PushString(s string) {
	c.Push([]byte(s))
}

// PushError makes the next ReadMessage fail with err.
func (c *Conn) PushError(err error) {
	c.in <- inbound{err: err}
}

// FailWrites makes every later WriteMessage fail with err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// ReadMessage blocks until a queued message is available or the conn is closed.
func (c *Conn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.in:
		return msg.messageType, msg.data, msg.err
	case <-c.done:
		return 0, nil, ErrClosed
	}
}

// WriteMessage records data.
func (c *Conn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), data...))
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// SetWriteDeadline is a no-op.
func (c *Conn) SetWriteDeadline(time.Time) error {
	return nil
}

// Close unblocks ReadMessage and fails later writes.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Frames returns the JSON segment and blobs of every frame written so far.
func (c *Conn) Frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Frame, 0, len(c.written))
	for _, data := range c.written {
		payload, blobs, err := frame.Unpack(data)
		out = append(out, Frame{JSON: payload, Blobs: blobs, Err: err})
	}
	return out
}

// WaitFrames blocks until at least n frames were written or timeout expires.
func (c *Conn) WaitFrames(n int, timeout time.Duration) []Frame {
	deadline := time.After(timeout)
	for {
		if frames := c.Frames(); len(frames) >= n {
			return frames
		}
		select {
		case <-c.notify:
		case <-deadline:
			return c.Frames()
		}
	}
}

// Frame is one decoded outbound frame.
type Frame struct {
	JSON  []byte
	Blobs [][]byte
	Err   error
}

// Event decodes the JSON segment into a generic map. It returns nil on error.
func (f Frame) Event() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(f.JSON, &m); err != nil {
		return nil
	}
	return m
}

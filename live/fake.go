package live

import (
	"context"
	"sync"
)

// FakeTransport records opened sessions and lets tests drive the callback
// surface by hand.
type FakeTransport struct {
	mu      sync.Mutex
	conns   []*FakeConn
	OpenErr error
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

func (t *FakeTransport) Open(_ context.Context, cfg SessionConfig, cb Callbacks) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}
	conn := &FakeConn{cfg: cfg, cb: cb}
	t.conns = append(t.conns, conn)
	return conn, nil
}

func (t *FakeTransport) Conns() []*FakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*FakeConn(nil), t.conns...)
}

// Last returns the most recently opened connection, or nil.
func (t *FakeTransport) Last() *FakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

type FakeConn struct {
	mu      sync.Mutex
	cfg     SessionConfig
	cb      Callbacks
	sent    []Frame
	closed  int
	SendErr error
}

func (c *FakeConn) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, frame)
	return nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

func (c *FakeConn) Config() SessionConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *FakeConn) Sent() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.sent...)
}

func (c *FakeConn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// OpenNow simulates the service acknowledging the session.
func (c *FakeConn) OpenNow() {
	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}
}

// Deliver simulates one inbound message.
func (c *FakeConn) Deliver(msg ServerMessage) {
	if c.cb.OnMessage != nil {
		c.cb.OnMessage(msg)
	}
}

// Fail simulates a transport failure followed by the close notification.
func (c *FakeConn) Fail(err error) {
	if c.cb.OnError != nil {
		c.cb.OnError(err)
	}
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}

// CloseNow simulates the remote end closing the session.
func (c *FakeConn) CloseNow() {
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}

package live

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"parlo/audio"
)

// waitUntil polls for an asynchronous condition with a deadline.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestFrameOrdering(t *testing.T) {
	dev := &audio.FakeCapture{}
	conn := &FakeConn{}
	c := NewCapture(dev, conn, nil)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	const n = 5
	for i := 0; i < n; i++ {
		block := make([]byte, frameBytes)
		block[0] = byte(i + 1) // marker survives into the frame
		dev.Emit(block)
	}
	waitUntil(t, "frames delivered", func() bool { return len(conn.Sent()) == n })

	for i, f := range conn.Sent() {
		if f.MIMEType != "audio/pcm;rate=16000" {
			t.Errorf("frame %d mime = %q", i, f.MIMEType)
		}
		if len(f.Data) != frameBytes {
			t.Errorf("frame %d size = %d, want %d", i, len(f.Data), frameBytes)
		}
		if f.Data[0] != byte(i+1) {
			t.Errorf("frame %d out of order: marker %d", i, f.Data[0])
		}
	}
	if c.Sent() != n {
		t.Errorf("Sent() = %d, want %d", c.Sent(), n)
	}
}

func TestReassemblesOddBlockSizes(t *testing.T) {
	dev := &audio.FakeCapture{}
	conn := &FakeConn{}
	c := NewCapture(dev, conn, nil)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	// Three half-frames make one full frame with a half left over.
	half := make([]byte, frameBytes/2)
	dev.Emit(half)
	dev.Emit(half)
	dev.Emit(half)
	waitUntil(t, "first frame", func() bool { return len(conn.Sent()) == 1 })

	dev.Emit(half)
	waitUntil(t, "second frame", func() bool { return len(conn.Sent()) == 2 })
}

func TestSendErrorReportedOnce(t *testing.T) {
	dev := &audio.FakeCapture{}
	conn := &FakeConn{SendErr: errors.New("session gone")}
	var reports atomic.Int32
	c := NewCapture(dev, conn, func(error) { reports.Add(1) })
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	block := make([]byte, frameBytes)
	dev.Emit(block)
	dev.Emit(block)

	waitUntil(t, "error report", func() bool { return reports.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if got := reports.Load(); got != 1 {
		t.Errorf("error reported %d times, want 1", got)
	}
}

func TestStopDetachesCallback(t *testing.T) {
	dev := &audio.FakeCapture{}
	conn := &FakeConn{}
	c := NewCapture(dev, conn, nil)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	c.Stop()

	if !dev.Stopped() {
		t.Error("device not stopped")
	}
	if dev.HasCallback() {
		t.Error("callback still attached after Stop")
	}

	dev.Emit(make([]byte, frameBytes))
	time.Sleep(20 * time.Millisecond)
	if len(conn.Sent()) != 0 {
		t.Error("frame sent after Stop")
	}

	// Stop again: must not panic or block.
	c.Stop()
}

// stalledConn blocks every Send until released, standing in for a congested
// websocket.
type stalledConn struct {
	release chan struct{}

	mu   sync.Mutex
	sent int
}

func (c *stalledConn) Send(Frame) error {
	<-c.release
	c.mu.Lock()
	c.sent++
	c.mu.Unlock()
	return nil
}

func (c *stalledConn) Close() error { return nil }

func TestCallbackAndStopUnaffectedByStalledSend(t *testing.T) {
	dev := &audio.FakeCapture{}
	conn := &stalledConn{release: make(chan struct{})}
	c := NewCapture(dev, conn, nil)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	defer close(conn.release)

	// The device callback must return even though the connection accepts
	// nothing; a blocked callback would freeze capture.
	emitted := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			dev.Emit(make([]byte, frameBytes))
		}
		close(emitted)
	}()
	select {
	case <-emitted:
	case <-time.After(2 * time.Second):
		t.Fatal("capture callback blocked on a stalled send")
	}

	// Teardown must not wait for the in-flight Send either.
	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a stalled send")
	}
}

func TestQueueOverflowDropsInsteadOfBlocking(t *testing.T) {
	dev := &audio.FakeCapture{}
	conn := &stalledConn{release: make(chan struct{})}
	c := NewCapture(dev, conn, nil)
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	defer close(conn.release)

	// One frame sits in the blocked Send, frameQueueDepth fill the channel,
	// everything beyond that must be dropped without stalling the callback.
	block := make([]byte, frameBytes)
	for i := 0; i < frameQueueDepth+5; i++ {
		dev.Emit(block)
	}
	waitUntil(t, "overflow drops", func() bool { return c.Dropped() > 0 })
	c.Stop()
}

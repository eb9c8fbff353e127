package live

import (
	"sync"

	"parlo/audio"
	"parlo/log"
)

const (
	// FrameSamples is the fixed capture frame size: 4096 samples at 16 kHz,
	// roughly 256 ms per frame.
	FrameSamples = 4096
	frameBytes   = FrameSamples * 2

	captureMIMEType = "audio/pcm;rate=16000"

	// frameQueueDepth bounds the frames buffered between the device callback
	// and the sender goroutine: 32 frames is about eight seconds of audio.
	frameQueueDepth = 32
)

// Capture feeds fixed-size microphone frames into a live connection. Device
// callbacks deliver blocks of whatever size the hardware produces; Capture
// reassembles them into exactly FrameSamples-sample frames and issues one
// Send per frame, in capture order.
//
// Sending happens on a dedicated goroutine fed by a buffered channel. The
// device callback never touches the network: device drivers join an in-flight
// callback when stopping the device, so any blocking work inside the callback
// would stall capture and deadlock a teardown triggered from it.
type Capture struct {
	dev   audio.CaptureDevice
	conn  Conn
	onErr func(error)

	frames chan []byte

	mu       sync.Mutex
	buf      []byte
	sent     int
	dropped  int
	errOnce  sync.Once
	stopOnce sync.Once
	dropOnce sync.Once
}

func NewCapture(dev audio.CaptureDevice, conn Conn, onErr func(error)) *Capture {
	return &Capture{
		dev:    dev,
		conn:   conn,
		onErr:  onErr,
		frames: make(chan []byte, frameQueueDepth),
	}
}

func (c *Capture) Start() error {
	c.dev.SetCallback(c.feed)
	if err := c.dev.Start(); err != nil {
		c.dev.ClearCallback()
		return err
	}
	go c.run()
	return nil
}

// Stop halts the device, detaches the callback and lets the sender drain out.
// It never waits for an in-flight Send: frames still queued land on a
// connection that is about to close and their failure is reported nowhere.
func (c *Capture) Stop() {
	c.stopOnce.Do(func() {
		c.dev.Stop()
		c.dev.ClearCallback()
		c.mu.Lock()
		c.buf = nil
		c.mu.Unlock()
		// The device is stopped and the callback detached, so nothing can
		// push into the channel anymore.
		close(c.frames)
	})
}

// Sent reports how many frames have been delivered to the connection so far.
func (c *Capture) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// Dropped reports how many frames were discarded because the sender fell
// behind the microphone.
func (c *Capture) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// feed runs on the device thread. It must return quickly and must not block
// on the connection, so full queues drop the frame instead of waiting.
func (c *Capture) feed(data []byte, _ uint32) {
	c.mu.Lock()
	c.buf = append(c.buf, data...)
	var frames [][]byte
	for len(c.buf) >= frameBytes {
		frame := make([]byte, frameBytes)
		copy(frame, c.buf[:frameBytes])
		c.buf = c.buf[frameBytes:]
		frames = append(frames, frame)
	}
	c.mu.Unlock()

	for _, frame := range frames {
		select {
		case c.frames <- frame:
		default:
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
			c.dropOnce.Do(func() {
				log.Warn("capture frames dropped: sender is behind the microphone")
			})
		}
	}
}

func (c *Capture) run() {
	for frame := range c.frames {
		if err := c.conn.Send(Frame{MIMEType: captureMIMEType, Data: frame}); err != nil {
			c.errOnce.Do(func() {
				if c.onErr != nil {
					c.onErr(err)
				}
			})
			return
		}
		c.mu.Lock()
		c.sent++
		c.mu.Unlock()
	}
}

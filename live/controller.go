package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"parlo/audio"
	"parlo/log"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusStopped    Status = "stopped"
	StatusError      Status = "error"
)

var (
	// ErrMicPermission means microphone access was denied or no device exists.
	ErrMicPermission = errors.New("microphone unavailable")
	// ErrDevice means the playback device could not be constructed.
	ErrDevice = errors.New("audio device failure")
)

// Sink receives user-visible session events. All methods may be called from
// transport or audio device goroutines.
type Sink interface {
	StatusChanged(s Status)
	TranscriptUpdated(entries []Entry)
	SessionError(msg string)
}

// SpeakerFactory opens the playback device for a session.
type SpeakerFactory func() (audio.Speaker, error)

// resources is everything one session owns. Cleanup releases every non-nil
// field and tolerates partially-initialized records.
type resources struct {
	capture audio.CaptureDevice
	pump    *Capture
	speaker audio.Speaker
	sched   *Scheduler
	conn    Conn

	startedAt time.Time
	recvMsgs  int
	recvAudio int
}

// Controller owns the session state machine. At most one session is live at a
// time; starting a new one tears the previous one down first. Every exit path
// (stop, transport error, disposal) funnels into the same idempotent cleanup.
type Controller struct {
	audioCtx   audio.Context
	newSpeaker SpeakerFactory
	transport  Transport
	sink       Sink

	mu      sync.Mutex
	status  Status
	errMsg  string
	device  *audio.DeviceInfo
	res     *resources
	agg     *Aggregator
	session uint64

	closeOnce sync.Once
}

func NewController(audioCtx audio.Context, newSpeaker SpeakerFactory, transport Transport, sink Sink) *Controller {
	return &Controller{
		audioCtx:   audioCtx,
		newSpeaker: newSpeaker,
		transport:  transport,
		sink:       sink,
		status:     StatusIdle,
		agg:        NewAggregator(),
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ErrMessage returns the user-facing message for the current error status.
func (c *Controller) ErrMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Entries returns the transcript accumulated across the current session.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	agg := c.agg
	c.mu.Unlock()
	return agg.Entries()
}

// SelectDevice pins the capture device used by subsequent sessions.
func (c *Controller) SelectDevice(dev *audio.DeviceInfo) {
	c.mu.Lock()
	c.device = dev
	c.mu.Unlock()
}

// Start opens a new session. Any previous session is fully torn down first.
// On failure the controller lands in StatusError with a user-facing message;
// whatever had been acquired by then is released.
func (c *Controller) Start(ctx context.Context, cfg SessionConfig) error {
	c.mu.Lock()

	c.cleanupLocked()
	c.agg = NewAggregator()
	c.errMsg = ""
	gen := c.session

	capture, err := c.audioCtx.NewCapture(c.device, audio.CaptureConfig{
		SampleRate: audio.CaptureSampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrMicPermission, err)
		c.failLocked("Microphone access failed. Check permissions and try again.")
		c.mu.Unlock()
		c.emitStatus()
		return err
	}

	speaker, err := c.newSpeaker()
	if err != nil {
		capture.Close()
		err = fmt.Errorf("%w: %v", ErrDevice, err)
		c.failLocked("Could not open the audio output device.")
		c.mu.Unlock()
		c.emitStatus()
		return err
	}

	c.res = &resources{
		capture:   capture,
		speaker:   speaker,
		sched:     NewScheduler(speaker),
		startedAt: time.Now(),
	}
	c.status = StatusConnecting

	conn, err := c.transport.Open(ctx, cfg, Callbacks{
		OnOpen:    func() { c.onOpen(gen) },
		OnMessage: func(msg ServerMessage) { c.onMessage(gen, msg) },
		OnError:   func(err error) { c.onTransportError(gen, err) },
		OnClose:   func() { c.onTransportClose(gen) },
	})
	if err != nil {
		c.cleanupLocked()
		c.failLocked("Could not reach the conversation service.")
		c.mu.Unlock()
		c.emitStatus()
		return fmt.Errorf("open transport: %w", err)
	}
	c.res.conn = conn

	c.mu.Unlock()
	c.emitStatus()
	log.SessionStart(cfg.Model, cfg.Title)
	return nil
}

// Stop ends the session. Idempotent, even when nothing was ever started.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.status = StatusStopped
	c.cleanupLocked()
	c.mu.Unlock()
	c.emitStatus()
}

// Close releases the current session. The controller must not be used after
// Close; the audio context itself belongs to the caller.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cleanupLocked()
		c.mu.Unlock()
	})
}

func (c *Controller) onOpen(gen uint64) {
	c.mu.Lock()
	if gen != c.session || c.res == nil {
		c.mu.Unlock()
		return
	}
	pump := NewCapture(c.res.capture, c.res.conn, func(err error) {
		c.onTransportError(gen, err)
	})
	if err := pump.Start(); err != nil {
		c.cleanupLocked()
		c.failLocked("Microphone start failed.")
		c.mu.Unlock()
		c.emitStatus()
		log.Errorf("capture start: %v", err)
		return
	}
	c.res.pump = pump
	c.status = StatusActive
	c.mu.Unlock()
	c.emitStatus()
}

func (c *Controller) onMessage(gen uint64, msg ServerMessage) {
	c.mu.Lock()
	if gen != c.session || c.res == nil {
		c.mu.Unlock()
		return
	}
	c.res.recvMsgs++

	sc := msg.ServerContent
	if sc == nil {
		c.mu.Unlock()
		return
	}

	if sc.InputTranscription != nil {
		c.agg.AddInput(sc.InputTranscription.Text)
	}
	if sc.OutputTranscription != nil {
		c.agg.AddOutput(sc.OutputTranscription.Text)
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			c.res.recvAudio++
			if err := c.res.sched.Enqueue(part.InlineData.Data); err != nil {
				log.Warnf("playback chunk dropped: %v", err)
			}
		}
	}

	var entries []Entry
	if sc.TurnComplete {
		if pair, ok := c.agg.TurnComplete(); ok {
			entries = c.agg.Entries()
			for _, e := range pair {
				log.TranscriptTurn(string(e.Speaker), e.Text)
			}
		}
	}
	c.mu.Unlock()

	if entries != nil {
		c.sink.TranscriptUpdated(entries)
	}
}

func (c *Controller) onTransportError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.session {
		c.mu.Unlock()
		return
	}
	log.Errorf("transport error: %v", err)
	c.failLocked("Connection error. The conversation has ended.")
	c.cleanupLocked()
	c.mu.Unlock()
	c.emitStatus()
}

func (c *Controller) onTransportClose(gen uint64) {
	c.mu.Lock()
	if gen != c.session {
		c.mu.Unlock()
		return
	}
	if c.status != StatusError {
		c.status = StatusStopped
	}
	c.cleanupLocked()
	c.mu.Unlock()
	c.emitStatus()
}

func (c *Controller) failLocked(msg string) {
	c.status = StatusError
	c.errMsg = msg
}

// cleanupLocked releases everything the current session owns. Every step is
// independent; a failing step never blocks the ones after it. Safe to call
// any number of times, including on a session that never finished starting.
func (c *Controller) cleanupLocked() {
	c.session++

	r := c.res
	c.res = nil
	if r == nil {
		return
	}

	if r.pump != nil {
		r.pump.Stop()
	} else if r.capture != nil {
		r.capture.Stop()
		r.capture.ClearCallback()
	}
	if r.capture != nil {
		r.capture.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
	if r.sched != nil {
		r.sched.Reset()
	}
	if r.speaker != nil {
		r.speaker.Close()
	}

	sent := 0
	if r.pump != nil {
		sent = r.pump.Sent()
	}
	log.SessionMetrics(log.SessionMetricsData{
		SentFrames:   sent,
		SentKB:       float64(sent*frameBytes) / 1024,
		RecvMessages: r.recvMsgs,
		RecvAudio:    r.recvAudio,
		Turns:        c.agg.Turns(),
		AudioS:       float64(sent*FrameSamples) / audio.CaptureSampleRate,
		TotalMs:      float64(time.Since(r.startedAt).Milliseconds()),
	})
	log.SessionEnd(string(c.status), c.agg.Turns())
}

func (c *Controller) emitStatus() {
	c.mu.Lock()
	status := c.status
	errMsg := c.errMsg
	c.mu.Unlock()

	c.sink.StatusChanged(status)
	if status == StatusError && errMsg != "" {
		c.sink.SessionError(errMsg)
	}
}

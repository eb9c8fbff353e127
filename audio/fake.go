package audio

import "sync"

// FakeContext hands out FakeCapture devices. Tests drive capture by calling
// Emit on the device.
type FakeContext struct {
	mu       sync.Mutex
	captures []*FakeCapture
	closed   bool
}

func NewFakeContext() *FakeContext {
	return &FakeContext{}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake mic"}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	c := &FakeCapture{}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

func (f *FakeContext) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeContext) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

type FakeCapture struct {
	mu      sync.Mutex
	cb      DataCallback
	started bool
	stopped bool
	closed  bool
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

// Emit invokes the registered callback as the device thread would.
func (f *FakeCapture) Emit(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(data, uint32(len(data)/2))
	}
}

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *FakeCapture) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) HasCallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb != nil
}

// FakeSpeaker implements Speaker with a manually advanced clock.
type FakeSpeaker struct {
	mu     sync.Mutex
	now    float64
	voices []*FakeVoice
	closed bool
}

func NewFakeSpeaker() *FakeSpeaker {
	return &FakeSpeaker{}
}

func (f *FakeSpeaker) Now() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// SetNow moves the fake device clock.
func (f *FakeSpeaker) SetNow(t float64) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *FakeSpeaker) Schedule(pcm []byte, startAt float64, onDone func()) Voice {
	v := &FakeVoice{PCM: pcm, StartAt: startAt, onDone: onDone}
	f.mu.Lock()
	f.voices = append(f.voices, v)
	f.mu.Unlock()
	return v
}

func (f *FakeSpeaker) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeSpeaker) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeSpeaker) Voices() []*FakeVoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeVoice(nil), f.voices...)
}

type FakeVoice struct {
	PCM     []byte
	StartAt float64

	mu      sync.Mutex
	stopped bool
	onDone  func()
}

func (v *FakeVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
}

func (v *FakeVoice) Stopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

// Finish simulates the hardware completing playback of this voice.
func (v *FakeVoice) Finish() {
	v.mu.Lock()
	done := v.onDone
	stopped := v.stopped
	v.mu.Unlock()
	if done != nil && !stopped {
		done()
	}
}

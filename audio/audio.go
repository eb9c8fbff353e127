package audio

const (
	// CaptureSampleRate is the microphone rate the live protocol expects.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate of synthesized audio coming back.
	PlaybackSampleRate = 24000

	Channels      = 1
	BitsPerSample = 16
)

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice delivers S16LE mono sample blocks to its callback for as long
// as it is started. Blocks keep arriving whether or not anyone consumes them;
// there is no monitoring path back to the speakers, so no feedback loop.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// Voice is one scheduled playback source on a Speaker.
type Voice interface {
	// Stop silences the voice immediately. Its completion callback does not
	// fire after Stop. Safe to call more than once.
	Stop()
}

// Speaker plays scheduled PCM buffers on a shared output device.
//
// Now is the device clock in seconds, advanced by the hardware as frames are
// rendered. Schedule queues an S16LE mono buffer to begin at the given clock
// value; a start time in the past begins immediately. onDone fires once when
// the buffer has been fully rendered.
type Speaker interface {
	Now() float64
	Schedule(pcm []byte, startAt float64, onDone func()) Voice
	Close()
}

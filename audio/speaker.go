package audio

import (
	"sync"

	"github.com/gen2brain/malgo"
)

// malgoSpeaker renders scheduled voices on a single malgo playback device.
// The device clock is the number of frames the hardware has consumed since
// the speaker was opened. Voices are scheduled back-to-back and do not
// normally overlap; if they do, the later-scheduled audio wins.
type malgoSpeaker struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu     sync.Mutex
	voices []*speakerVoice
	frames uint64
	closed bool
}

func NewSpeaker() (Speaker, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}

	s := &malgoSpeaker{ctx: ctx}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = Channels
	config.SampleRate = PlaybackSampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			s.render(pOutput, frameCount)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return nil, err
	}
	s.device = device
	return s, nil
}

func (s *malgoSpeaker) Now() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frames) / PlaybackSampleRate
}

func (s *malgoSpeaker) Schedule(pcm []byte, startAt float64, onDone func()) Voice {
	v := &speakerVoice{
		sp:     s,
		onDone: onDone,
	}
	if startAt > 0 {
		v.startFrame = uint64(startAt * PlaybackSampleRate)
	}
	v.samples = pcm

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return v
	}
	s.voices = append(s.voices, v)
	s.mu.Unlock()
	return v
}

func (s *malgoSpeaker) render(out []byte, frameCount uint32) {
	for i := range out {
		out[i] = 0
	}

	s.mu.Lock()
	base := s.frames
	var finished []*speakerVoice
	kept := s.voices[:0]
	for _, v := range s.voices {
		offset := 0
		if v.startFrame > base {
			if v.startFrame >= base+uint64(frameCount) {
				kept = append(kept, v)
				continue
			}
			offset = int(v.startFrame-base) * 2
		}
		n := copy(out[offset:], v.samples[v.pos:])
		v.pos += n
		if v.pos >= len(v.samples) {
			finished = append(finished, v)
		} else {
			kept = append(kept, v)
		}
	}
	s.voices = kept
	s.frames = base + uint64(frameCount)
	s.mu.Unlock()

	// Completion callbacks run outside the lock; they may schedule new voices.
	for _, v := range finished {
		if v.onDone != nil {
			v.onDone()
		}
	}
}

func (s *malgoSpeaker) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.voices = nil
	s.mu.Unlock()

	s.device.Stop()
	s.device.Uninit()
	s.ctx.Uninit()
	s.ctx.Free()
}

type speakerVoice struct {
	sp         *malgoSpeaker
	startFrame uint64
	samples    []byte
	pos        int
	onDone     func()
}

func (v *speakerVoice) Stop() {
	s := v.sp
	s.mu.Lock()
	for i, w := range s.voices {
		if w == v {
			s.voices = append(s.voices[:i], s.voices[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

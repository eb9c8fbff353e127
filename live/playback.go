package live

import (
	"encoding/base64"
	"fmt"
	"sync"

	"parlo/audio"
)

// Scheduler plays inbound audio chunks back-to-back on a speaker.
//
// Chunks normally arrive faster than real time; each one is scheduled to
// start exactly when the previous one ends. If a chunk arrives late the start
// is clamped forward to the current device clock, so scheduling self-corrects
// instead of targeting a time already in the past.
type Scheduler struct {
	sp audio.Speaker

	mu     sync.Mutex
	next   float64
	active map[*playing]struct{}
}

// playing is the handle for one scheduled chunk. It exists before the voice
// does, so the completion callback has a stable key even when the chunk
// finishes rendering before Schedule returns.
type playing struct {
	voice audio.Voice
}

func NewScheduler(sp audio.Speaker) *Scheduler {
	return &Scheduler{
		sp:     sp,
		active: make(map[*playing]struct{}),
	}
}

// Enqueue decodes one base64 PCM chunk and schedules it for gapless playback.
func (s *Scheduler) Enqueue(data string) error {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode audio chunk: %w", err)
	}
	if len(pcm) < 2 {
		return nil
	}

	duration := float64(len(pcm)/2) / audio.PlaybackSampleRate

	s.mu.Lock()
	defer s.mu.Unlock()

	if now := s.sp.Now(); s.next < now {
		s.next = now
	}
	start := s.next

	// remove blocks on s.mu until this critical section ends, so the entry
	// is registered before an early completion can try to delete it.
	p := &playing{}
	p.voice = s.sp.Schedule(pcm, start, func() { s.remove(p) })
	s.active[p] = struct{}{}
	s.next = start + duration
	return nil
}

func (s *Scheduler) remove(p *playing) {
	s.mu.Lock()
	delete(s.active, p)
	s.mu.Unlock()
}

// Next reports the clock value the next chunk would be scheduled at.
func (s *Scheduler) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Active reports how many scheduled chunks have not finished playing.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Reset force-stops every active chunk and rewinds the schedule for the next
// session. Safe to call repeatedly.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	voices := make([]audio.Voice, 0, len(s.active))
	for p := range s.active {
		voices = append(voices, p.voice)
	}
	s.active = make(map[*playing]struct{})
	s.next = 0
	s.mu.Unlock()

	for _, v := range voices {
		v.Stop()
	}
}

package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"parlo/live"
)

// programSink bridges controller events onto the Bubble Tea message queue.
// Controller callbacks arrive from transport and audio device goroutines;
// tea.Program.Send is safe from any of them. Events before attach are
// dropped, which only affects the initial idle status.
type programSink struct {
	mu sync.Mutex
	p  *tea.Program
}

func (s *programSink) attach(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *programSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *programSink) StatusChanged(st live.Status) {
	s.send(StatusMsg{Status: st})
}

func (s *programSink) TranscriptUpdated(entries []live.Entry) {
	s.send(TranscriptMsg{Entries: entries})
}

func (s *programSink) SessionError(msg string) {
	s.send(SessionErrorMsg{Text: msg})
}

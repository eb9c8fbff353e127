package live

import (
	"strings"
	"sync"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Entry is one finished side of a conversational turn.
type Entry struct {
	Speaker Role
	Text    string
}

// Aggregator folds partial transcript fragments into finished turn pairs.
// Fragments accumulate per side until a turn-complete signal flushes both
// sides at once.
type Aggregator struct {
	mu       sync.Mutex
	userBuf  strings.Builder
	modelBuf strings.Builder
	entries  []Entry
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// AddInput appends a user-side fragment.
func (a *Aggregator) AddInput(text string) {
	a.mu.Lock()
	a.userBuf.WriteString(text)
	a.mu.Unlock()
}

// AddOutput appends a model-side fragment.
func (a *Aggregator) AddOutput(text string) {
	a.mu.Lock()
	a.modelBuf.WriteString(text)
	a.mu.Unlock()
}

// TurnComplete flushes both accumulators. If either side is non-empty after
// trimming, a user entry and a model entry are appended as a pair, even when
// one side is blank, so the two halves of a turn never drift apart. The
// accumulators reset either way.
func (a *Aggregator) TurnComplete() (pair []Entry, appended bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	user := a.userBuf.String()
	model := a.modelBuf.String()
	a.userBuf.Reset()
	a.modelBuf.Reset()

	if strings.TrimSpace(user) == "" && strings.TrimSpace(model) == "" {
		return nil, false
	}

	pair = []Entry{
		{Speaker: RoleUser, Text: user},
		{Speaker: RoleModel, Text: model},
	}
	a.entries = append(a.entries, pair...)
	return pair, true
}

// Entries returns a copy of the transcript so far.
func (a *Aggregator) Entries() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Entry(nil), a.entries...)
}

// Turns reports the number of completed turn pairs.
func (a *Aggregator) Turns() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries) / 2
}

// Package live implements the real-time conversation session: microphone
// capture framing, the bidirectional streaming transport, gapless playback of
// synthesized audio, and transcript aggregation, all owned by a single
// session controller.
package live

import "context"

// Frame is one outbound microphone frame. Data holds raw S16LE mono samples;
// the transport base64-encodes them on the wire.
type Frame struct {
	MIMEType string
	Data     []byte
}

// SessionConfig is captured once at session start and never mutated. Title
// and Vocabulary are the lesson inputs the system instruction was built from;
// the transport only sends Model and SystemInstruction.
type SessionConfig struct {
	Model             string
	Title             string
	Vocabulary        []string
	SystemInstruction string
}

// ServerMessage mirrors the streaming service's message shape. Every field is
// optional; messages that carry none of the expected fields are ignored.
type ServerMessage struct {
	SetupComplete *SetupComplete `json:"setupComplete,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
}

type SetupComplete struct{}

type ServerContent struct {
	InputTranscription  *Transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *Transcription `json:"outputTranscription,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	ModelTurn           *ModelTurn     `json:"modelTurn,omitempty"`
}

type Transcription struct {
	Text string `json:"text"`
}

type ModelTurn struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries a base64 PCM chunk at the playback sample rate.
type InlineData struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Callbacks receive asynchronous session events. OnOpen fires once when the
// session is ready for Send; OnClose fires exactly once after the session is
// gone, whatever ended it.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(msg ServerMessage)
	OnError   func(err error)
	OnClose   func()
}

// Conn is a session handle. It is returned while the session may still be
// connecting; Send before OnOpen returns ErrNotReady. Close is idempotent.
type Conn interface {
	Send(frame Frame) error
	Close() error
}

// Transport opens bidirectional streaming sessions to the conversational
// service.
type Transport interface {
	Open(ctx context.Context, cfg SessionConfig, cb Callbacks) (Conn, error)
}

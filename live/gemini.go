package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
)

const geminiLiveEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// maxInboundMessage bounds a single websocket read. Audio chunks are a few
// hundred KB of base64; 16 MiB leaves plenty of headroom.
const maxInboundMessage = 16 << 20

var ErrNotReady = errors.New("live session not ready")

// GeminiTransport opens Live API sessions over a raw websocket.
type GeminiTransport struct {
	apiKey   string
	endpoint string
}

func NewGeminiTransport(apiKey string) *GeminiTransport {
	return &GeminiTransport{apiKey: apiKey, endpoint: geminiLiveEndpoint}
}

// SetEndpoint overrides the service URL, used by tests against a local server.
func (t *GeminiTransport) SetEndpoint(url string) {
	t.endpoint = url
}

func (t *GeminiTransport) Open(ctx context.Context, cfg SessionConfig, cb Callbacks) (Conn, error) {
	if t.apiKey == "" {
		return nil, errors.New("missing API key")
	}

	connCtx, cancel := context.WithCancel(ctx)
	c := &geminiConn{
		ctx:    connCtx,
		cancel: cancel,
		cb:     cb,
	}

	go c.dial(t.endpoint+"?key="+t.apiKey, cfg)

	return c, nil
}

// Wire shapes for outbound messages.

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *wireContent     `json:"systemInstruction,omitempty"`
	InputAudioTranscription  struct{}         `json:"inputAudioTranscription"`
	OutputAudioTranscription struct{}         `json:"outputAudioTranscription"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type wireContent struct {
	Parts []wireTextPart `json:"parts"`
}

type wireTextPart struct {
	Text string `json:"text"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio inlineAudio `json:"audio"`
}

type inlineAudio struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiConn struct {
	ctx    context.Context
	cancel context.CancelFunc
	cb     Callbacks

	ready atomic.Bool

	mu      sync.Mutex
	ws      *websocket.Conn
	closing bool

	closeOnce  sync.Once
	closedOnce sync.Once
}

func (c *geminiConn) dial(url string, cfg SessionConfig) {
	ws, _, err := websocket.Dial(c.ctx, url, nil)
	if err != nil {
		c.fail(fmt.Errorf("dial live session: %w", err))
		return
	}
	ws.SetReadLimit(maxInboundMessage)

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		ws.Close(websocket.StatusNormalClosure, "")
		c.emitClose()
		return
	}
	c.ws = ws
	c.mu.Unlock()

	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	setup := setupMessage{
		Setup: setupPayload{
			Model: model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		setup.Setup.SystemInstruction = &wireContent{
			Parts: []wireTextPart{{Text: cfg.SystemInstruction}},
		}
	}
	if err := c.write(setup); err != nil {
		c.fail(fmt.Errorf("send setup: %w", err))
		return
	}

	c.readLoop(ws)
}

func (c *geminiConn) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.Read(c.ctx)
		if err != nil {
			c.mu.Lock()
			closing := c.closing
			c.mu.Unlock()
			if closing {
				c.emitClose()
				return
			}
			c.fail(err)
			return
		}

		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Unknown shapes are skipped, not fatal.
			continue
		}

		if msg.SetupComplete != nil {
			if c.ready.CompareAndSwap(false, true) && c.cb.OnOpen != nil {
				c.cb.OnOpen()
			}
			continue
		}

		if c.cb.OnMessage != nil {
			c.cb.OnMessage(msg)
		}
	}
}

func (c *geminiConn) Send(frame Frame) error {
	if !c.ready.Load() {
		return ErrNotReady
	}
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Audio: inlineAudio{
				MIMEType: frame.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(frame.Data),
			},
		},
	}
	if err := c.write(msg); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

func (c *geminiConn) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotReady
	}
	return ws.Write(c.ctx, websocket.MessageText, b)
}

func (c *geminiConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		ws := c.ws
		c.mu.Unlock()
		c.cancel()
		if ws != nil {
			ws.Close(websocket.StatusNormalClosure, "")
		} else {
			// Never connected; the dial path reports the close.
			c.emitClose()
		}
	})
	return nil
}

func (c *geminiConn) fail(err error) {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()
	if !closing && c.cb.OnError != nil {
		c.cb.OnError(err)
	}
	c.emitClose()
}

func (c *geminiConn) emitClose() {
	c.closedOnce.Do(func() {
		if c.cb.OnClose != nil {
			c.cb.OnClose()
		}
	})
}

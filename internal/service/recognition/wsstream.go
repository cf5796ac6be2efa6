package recognition

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carewell/medibot/internal/service/audio"
)

// WSSource streams microphone audio to an external speech recognizer over a
// websocket and turns its interim/final frames into Events. This is the
// native analog of the browser's continuous recognition service: an
// out-of-process recognizer whose results arrive out of band and whose
// connection self-terminates periodically.
type WSSource struct {
	// URL of the streaming recognizer, e.g. ws://host/api/voice/stream/.
	URL string
	// OpenDevice acquires the microphone for one stream attempt.
	OpenDevice func() (audio.CaptureDevice, error)
	// Dialer may be replaced in tests; nil means a 30s-handshake default.
	Dialer *websocket.Dialer
}

// wsResult is one frame from the recognizer.
type wsResult struct {
	Type  string `json:"type"` // interim | final | error
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

type wsStream struct {
	conn   *websocket.Conn
	dev    audio.CaptureDevice
	events chan Event

	closeOnce sync.Once
	done      chan struct{}
}

// Open dials the recognizer, starts pumping microphone audio up, and begins
// decoding result frames.
func (s *WSSource) Open(ctx context.Context, language string) (Stream, error) {
	dialer := s.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, fmt.Errorf("recognizer url: %w", err)
	}
	q := u.Query()
	q.Set("language", language)
	u.RawQuery = q.Encode()

	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial recognizer: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	dev, err := s.OpenDevice()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		conn.Close()
		return nil, fmt.Errorf("start microphone: %w", err)
	}

	st := &wsStream{
		conn:   conn,
		dev:    dev,
		events: make(chan Event, 8),
		done:   make(chan struct{}),
	}
	go st.send(ctx)
	go st.receive()
	return st, nil
}

// send pumps raw little-endian PCM frames to the recognizer until the stream
// closes.
func (st *wsStream) send(ctx context.Context) {
	for {
		select {
		case <-st.done:
			return
		case <-ctx.Done():
			st.Close()
			return
		default:
		}
		frame, err := st.dev.Read()
		if err != nil {
			st.Close()
			return
		}
		payload := make([]byte, len(frame)*2)
		for i, sample := range frame {
			binary.LittleEndian.PutUint16(payload[i*2:], uint16(sample))
		}
		if err := st.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			st.Close()
			return
		}
	}
}

// receive decodes result frames into Events. A connection drop closes the
// events channel, which the recognizer treats as stream self-termination.
func (st *wsStream) receive() {
	defer close(st.events)
	for {
		var result wsResult
		if err := st.conn.ReadJSON(&result); err != nil {
			select {
			case <-st.done:
			default:
				log.Printf("[asr] recognizer connection ended: %v", err)
			}
			return
		}
		ev, ok := result.toEvent()
		if !ok {
			continue
		}
		select {
		case st.events <- ev:
		case <-st.done:
			return
		}
	}
}

func (r wsResult) toEvent() (Event, bool) {
	switch r.Type {
	case "interim":
		return Event{Interims: []string{r.Text}}, true
	case "final":
		return Event{Finals: []string{r.Text}}, true
	case "error":
		if r.Error == "no-speech" {
			return Event{Err: ErrNoSpeech}, true
		}
		return Event{Err: fmt.Errorf("recognizer: %s", r.Error)}, true
	}
	return Event{}, false
}

func (st *wsStream) Events() <-chan Event {
	return st.events
}

func (st *wsStream) Close() error {
	st.closeOnce.Do(func() {
		close(st.done)
		st.dev.Stop()
		st.dev.Close()
		st.conn.Close()
	})
	return nil
}

package assistant

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/carewell/medibot/internal/model/chat"
)

// Greeting opens every voice session.
const Greeting = "Hello! I'm MediBot, your voice medical assistant. Click 'Start' and I'll help you book an appointment."

// fallbackReply is spoken when a turn fails; the session itself survives.
const fallbackReply = "Sorry, I'm having trouble reaching the server right now. Please try again in a moment."

// ErrTurnInFlight rejects a second turn while one is being processed. At most
// one turn per session is in flight at any moment.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// Status is the session position as shown to the user.
type Status int

const (
	StatusIdle Status = iota
	StatusListening
	StatusProcessing
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusListening:
		return "listening"
	case StatusProcessing:
		return "processing"
	case StatusStopped:
		return "stopped"
	}
	return "unknown"
}

// TurnResult is the endpoint-independent shape of one backend exchange.
type TurnResult struct {
	Reply     string
	SessionID string
	AudioURL  string
}

// TurnEndpoint sends exchanges to one backend family (voice assistant or
// voicebot). Submit with an empty session id implicitly starts a session.
type TurnEndpoint interface {
	Submit(ctx context.Context, sessionID, text string) (TurnResult, error)
	End(ctx context.Context, sessionID string) error
}

// Speaker realizes the audible half of a turn.
type Speaker interface {
	PlayTurn(ctx context.Context, audioURL, text string) error
	Stop()
}

// Notifier surfaces a transient user-facing notice.
type Notifier func(title, detail string)

// Session orchestrates voice turns: it owns the transcript, the backend
// session id and the turn lifecycle. Turn failures are turn-scoped; the
// session id survives them and only Reset discards it.
type Session struct {
	endpoint TurnEndpoint
	speaker  Speaker
	notify   Notifier

	mu        sync.Mutex
	messages  []chat.Message
	sessionID string
	status    Status
	inflight  bool
}

// NewSession seeds a session with the greeting.
func NewSession(endpoint TurnEndpoint, speaker Speaker, notify Notifier) *Session {
	s := &Session{endpoint: endpoint, speaker: speaker, notify: notify}
	s.messages = []chat.Message{chat.NewMessage(chat.RoleAssistant, Greeting)}
	return s
}

// Start marks the session as listening.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusListening
}

// Stop halts output and marks the session stopped. The session id is kept;
// listening may resume later.
func (s *Session) Stop() {
	s.mu.Lock()
	s.status = StatusStopped
	s.mu.Unlock()
	s.speaker.Stop()
}

// Status reports the user-visible session position.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SessionID returns the backend-assigned id, empty before the first turn.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SubmitTurn drives one exchange for a committed transcript. Blank input is
// a no-op. On success the reply is appended and spoken; on failure a canned
// apology is appended and spoken instead, a notice is raised, and the session
// id is left untouched. Either way the session returns to listening.
func (s *Session) SubmitTurn(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.inflight = true
	s.messages = append(s.messages, chat.NewMessage(chat.RoleUser, text))
	s.status = StatusProcessing
	sessionID := s.sessionID
	s.mu.Unlock()

	result, err := s.endpoint.Submit(ctx, sessionID, text)
	if err != nil {
		s.finishTurn(chat.NewMessage(chat.RoleAssistant, fallbackReply))
		if playErr := s.speaker.PlayTurn(ctx, "", fallbackReply); playErr != nil {
			log.Printf("[assistant] fallback speech failed: %v", playErr)
		}
		if s.notify != nil {
			s.notify("Connection Error", "Failed to reach the assistant backend. Please try again.")
		}
		return err
	}

	reply := result.Reply
	if reply == "" {
		reply = fallbackReply
	}

	s.mu.Lock()
	if result.SessionID != "" && s.sessionID == "" {
		s.sessionID = result.SessionID
	}
	s.mu.Unlock()

	s.finishTurn(chat.NewMessage(chat.RoleAssistant, reply))
	if playErr := s.speaker.PlayTurn(ctx, result.AudioURL, reply); playErr != nil {
		log.Printf("[assistant] speech output failed: %v", playErr)
	}
	return nil
}

// finishTurn appends the bot message and returns the session to listening.
func (s *Session) finishTurn(msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.status = StatusListening
	s.inflight = false
}

// Reset tears the session down: output stops, the transcript shrinks back to
// the greeting and the backend session id is discarded, so the next turn
// starts a fresh session. The backend is told best-effort.
func (s *Session) Reset(ctx context.Context) {
	s.speaker.Stop()

	s.mu.Lock()
	sessionID := s.sessionID
	s.sessionID = ""
	s.messages = []chat.Message{chat.NewMessage(chat.RoleAssistant, Greeting)}
	s.status = StatusIdle
	s.inflight = false
	s.mu.Unlock()

	if sessionID != "" {
		if err := s.endpoint.End(ctx, sessionID); err != nil {
			log.Printf("[assistant] ending backend session failed: %v", err)
		}
	}
}

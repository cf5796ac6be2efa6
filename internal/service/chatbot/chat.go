package chatbot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/carewell/medibot/internal/backend"
	"github.com/carewell/medibot/internal/model/chat"
)

// Greeting opens every conversation.
const Greeting = "Hello! I'm your AI assistant. I can help you with text and voice conversations. How can I assist you today?"

// fallbackReply is shown when a turn cannot reach the backend.
const fallbackReply = "Sorry, I couldn't connect to the backend. Please make sure the backend server is running at http://127.0.0.1:8000"

// ErrTurnInFlight rejects a message while another is being processed.
var ErrTurnInFlight = errors.New("a message is already being processed")

// API is the slice of the backend client the conversation needs.
type API interface {
	SendChatMessage(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	EndConversation(ctx context.Context, conversationID string) error
	ChatHistory(ctx context.Context, conversationID string) ([]backend.HistoryMessage, error)
}

// Notifier surfaces a transient user-facing notice.
type Notifier func(title, detail string)

// Conversation holds one typed-chat exchange: the transcript, the backend
// conversation id and the current quick-reply options. Options are replaced
// wholesale on every reply and cleared on selection and on error.
type Conversation struct {
	api    API
	notify Notifier

	mu             sync.Mutex
	messages       []chat.Message
	options        []chat.Option
	conversationID string
	inflight       bool
}

// NewConversation starts an empty conversation seeded with the greeting.
func NewConversation(api API, notify Notifier) *Conversation {
	c := &Conversation{api: api, notify: notify}
	c.messages = []chat.Message{chat.NewMessage(chat.RoleAssistant, Greeting)}
	return c
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Options returns the current quick-reply options.
func (c *Conversation) Options() []chat.Option {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Option, len(c.options))
	copy(out, c.options)
	return out
}

// ConversationID returns the backend-assigned id, empty before the first turn.
func (c *Conversation) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Send drives one chat turn. Blank input is a no-op. On failure a canned
// apology is appended, the options are cleared, a notice is raised, and the
// conversation id is left untouched.
func (c *Conversation) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	c.mu.Lock()
	if c.inflight {
		c.mu.Unlock()
		return ErrTurnInFlight
	}
	c.inflight = true
	c.messages = append(c.messages, chat.NewMessage(chat.RoleUser, content))
	conversationID := c.conversationID
	c.mu.Unlock()

	resp, err := c.api.SendChatMessage(ctx, backend.ChatRequest{
		Message:        content,
		ConversationID: conversationID,
	})
	if err != nil {
		c.finish(chat.NewMessage(chat.RoleAssistant, fallbackReply), nil)
		if c.notify != nil {
			c.notify("Connection Error", "Failed to connect to backend API.")
		}
		return err
	}

	reply := resp.ReplyText()
	if reply == "" {
		reply = fallbackReply
	}

	c.mu.Lock()
	if resp.ConversationID != "" && c.conversationID == "" {
		c.conversationID = resp.ConversationID
	}
	c.mu.Unlock()

	c.finish(chat.NewMessage(chat.RoleAssistant, reply), resp.Options)
	return nil
}

// SelectOption clears the current options and resends the chosen value as a
// new user turn.
func (c *Conversation) SelectOption(ctx context.Context, value string) error {
	c.mu.Lock()
	c.options = nil
	c.mu.Unlock()
	return c.Send(ctx, value)
}

// finish appends the bot message and installs the new options.
func (c *Conversation) finish(msg chat.Message, options []chat.Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.options = options
	c.inflight = false
}

// History fetches the server-side transcript for the current conversation.
func (c *Conversation) History(ctx context.Context) ([]backend.HistoryMessage, error) {
	c.mu.Lock()
	conversationID := c.conversationID
	c.mu.Unlock()
	if conversationID == "" {
		return nil, nil
	}
	return c.api.ChatHistory(ctx, conversationID)
}

// Reset ends the backend conversation best-effort and shrinks the transcript
// back to the greeting. The next turn starts a new conversation.
func (c *Conversation) Reset(ctx context.Context) error {
	c.mu.Lock()
	conversationID := c.conversationID
	c.conversationID = ""
	c.messages = []chat.Message{chat.NewMessage(chat.RoleAssistant, Greeting)}
	c.options = nil
	c.inflight = false
	c.mu.Unlock()

	if conversationID == "" {
		return nil
	}
	return c.api.EndConversation(ctx, conversationID)
}

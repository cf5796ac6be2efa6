package backend

import (
	"context"
	"net/http"

	"github.com/carewell/medibot/internal/model/chat"
)

// ChatRequest is one typed-chat turn. ConversationID is empty on the first
// turn; the backend assigns one in its response.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is a typed-chat turn reply. The reply text may arrive in any
// of several fields; use ReplyText.
type ChatResponse struct {
	Response       string        `json:"response"`
	Message        string        `json:"message"`
	Reply          string        `json:"reply"`
	Text           string        `json:"text"`
	Content        string        `json:"content"`
	ConversationID string        `json:"conversation_id"`
	Options        []chat.Option `json:"options"`
}

// ReplyText extracts the bot reply: response, message, reply, text, content;
// first non-empty wins.
func (r *ChatResponse) ReplyText() string {
	return firstNonEmpty(r.Response, r.Message, r.Reply, r.Text, r.Content)
}

// HistoryMessage is one stored transcript entry as the backend returns it.
type HistoryMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type historyEnvelope struct {
	Data []HistoryMessage `json:"data"`
}

// SendChatMessage posts one chat turn.
func (c *Client) SendChatMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chatbot/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartConversation opens a fresh conversation with an initial message.
func (c *Client) StartConversation(ctx context.Context, initialMessage string) (*ChatResponse, error) {
	if initialMessage == "" {
		initialMessage = "Hello"
	}
	var resp ChatResponse
	payload := map[string]string{"message": initialMessage}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chatbot/start/", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndConversation tells the backend the conversation is over.
func (c *Client) EndConversation(ctx context.Context, conversationID string) error {
	payload := map[string]string{"conversation_id": conversationID}
	return c.doJSON(ctx, http.MethodPost, "/api/chatbot/end/", payload, nil)
}

// ChatHistory fetches the stored transcript of a conversation.
func (c *Client) ChatHistory(ctx context.Context, conversationID string) ([]HistoryMessage, error) {
	var envelope historyEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/chatbot/history/"+conversationID+"/", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

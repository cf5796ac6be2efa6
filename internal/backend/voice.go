package backend

import (
	"context"
	"fmt"
	"net/http"
)

// Voicebot turn actions.
const (
	VoicebotActionStart    = "start"
	VoicebotActionContinue = "continue"
	VoicebotActionEnd      = "end"
)

// SpeechToTextRequest carries one recorded utterance for transcription.
// Exactly one of Audio or AudioURL should be set.
type SpeechToTextRequest struct {
	Audio    []byte
	AudioURL string
	Language string
	Format   string
}

// SpeechToTextResponse is the transcription result.
type SpeechToTextResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Duration   float64 `json:"duration"`
}

// TextToSpeechRequest asks the backend to synthesize speech.
type TextToSpeechRequest struct {
	Text     string  `json:"text"`
	Voice    string  `json:"voice,omitempty"`
	Language string  `json:"language,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
	Format   string  `json:"format,omitempty"`
}

// TextToSpeechResponse points at (or embeds) the synthesized audio.
type TextToSpeechResponse struct {
	AudioURL  string  `json:"audio_url"`
	AudioData string  `json:"audio_data"` // base64, optional
	Duration  float64 `json:"duration"`
}

// VoiceAssistantRequest is one voice-assistant turn: recorded audio, already
// transcribed text, or both.
type VoiceAssistantRequest struct {
	Audio          []byte
	Text           string
	ConversationID string
	Context        string
}

// VoiceAssistantResponse is a voice-assistant turn reply.
type VoiceAssistantResponse struct {
	TextResponse string `json:"text_response"`
	Message      string `json:"message"`
	SessionID    string `json:"session_id"`
	Transcript   string `json:"transcript"`
	AudioURL     string `json:"audio_url"`
}

// ReplyText extracts the assistant reply: text_response then message.
func (r *VoiceAssistantResponse) ReplyText() string {
	return firstNonEmpty(r.TextResponse, r.Message)
}

// VoicebotRequest is one voicebot turn.
type VoicebotRequest struct {
	SessionID string
	Audio     []byte
	Text      string
	Action    string
}

// VoicebotResponse is a voicebot turn reply.
type VoicebotResponse struct {
	Response    string `json:"response"`
	Message     string `json:"message"`
	Text        string `json:"text"`
	BotResponse string `json:"bot_response"`
	Reply       string `json:"reply"`
	SessionID   string `json:"session_id"`
	AudioURL    string `json:"audio_url"`
	Status      string `json:"status"`
}

// ReplyText extracts the bot reply: response, message, text, bot_response,
// reply; first non-empty wins.
func (r *VoicebotResponse) ReplyText() string {
	return firstNonEmpty(r.Response, r.Message, r.Text, r.BotResponse, r.Reply)
}

// SpeechToText transcribes a recorded utterance.
func (c *Client) SpeechToText(ctx context.Context, req SpeechToTextRequest) (*SpeechToTextResponse, error) {
	fields := map[string]string{
		"audio_url": req.AudioURL,
		"language":  req.Language,
		"format":    req.Format,
	}
	var resp SpeechToTextResponse
	if err := c.doMultipart(ctx, "/api/voice/", fields, req.Audio, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TextToSpeech synthesizes speech for the given text.
func (c *Client) TextToSpeech(ctx context.Context, req TextToSpeechRequest) (*TextToSpeechResponse, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("text to speech: empty text")
	}
	var resp TextToSpeechResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/voice/tts/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VoiceAssistantTurn sends one voice-assistant exchange.
func (c *Client) VoiceAssistantTurn(ctx context.Context, req VoiceAssistantRequest) (*VoiceAssistantResponse, error) {
	fields := map[string]string{
		"text":            req.Text,
		"conversation_id": req.ConversationID,
		"context":         req.Context,
	}
	var resp VoiceAssistantResponse
	if err := c.doMultipart(ctx, "/api/voice-assistant/", fields, req.Audio, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EndVoiceAssistantSession tells the backend the assistant session is over.
func (c *Client) EndVoiceAssistantSession(ctx context.Context, sessionID string) error {
	payload := map[string]string{"session_id": sessionID}
	return c.doJSON(ctx, http.MethodPost, "/api/voice-assistant/end/", payload, nil)
}

// VoicebotTurn sends one voicebot exchange.
func (c *Client) VoicebotTurn(ctx context.Context, req VoicebotRequest) (*VoicebotResponse, error) {
	fields := map[string]string{
		"session_id": req.SessionID,
		"text":       req.Text,
		"action":     req.Action,
	}
	var resp VoicebotResponse
	if err := c.doMultipart(ctx, "/voicebot/api/", fields, req.Audio, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

package assistant

import (
	"context"

	"github.com/carewell/medibot/internal/backend"
)

// VoiceAssistantEndpoint drives the /api/voice-assistant/ family with text
// transcripts.
type VoiceAssistantEndpoint struct {
	Client *backend.Client
}

func (e *VoiceAssistantEndpoint) Submit(ctx context.Context, sessionID, text string) (TurnResult, error) {
	resp, err := e.Client.VoiceAssistantTurn(ctx, backend.VoiceAssistantRequest{
		Text:           text,
		ConversationID: sessionID,
	})
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{
		Reply:     resp.ReplyText(),
		SessionID: resp.SessionID,
		AudioURL:  resp.AudioURL,
	}, nil
}

func (e *VoiceAssistantEndpoint) End(ctx context.Context, sessionID string) error {
	return e.Client.EndVoiceAssistantSession(ctx, sessionID)
}

// VoicebotEndpoint drives the /voicebot/api/ family. The first turn of a
// session carries the start action, later turns continue, and End sends the
// end action for the same session id.
type VoicebotEndpoint struct {
	Client *backend.Client
}

func (e *VoicebotEndpoint) Submit(ctx context.Context, sessionID, text string) (TurnResult, error) {
	action := backend.VoicebotActionContinue
	if sessionID == "" {
		action = backend.VoicebotActionStart
	}
	resp, err := e.Client.VoicebotTurn(ctx, backend.VoicebotRequest{
		Action:    action,
		Text:      text,
		SessionID: sessionID,
	})
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{
		Reply:     resp.ReplyText(),
		SessionID: resp.SessionID,
		AudioURL:  resp.AudioURL,
	}, nil
}

func (e *VoicebotEndpoint) End(ctx context.Context, sessionID string) error {
	_, err := e.Client.VoicebotTurn(ctx, backend.VoicebotRequest{
		Action:    backend.VoicebotActionEnd,
		SessionID: sessionID,
	})
	return err
}

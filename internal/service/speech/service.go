// Package speech bridges the remote voice endpoints to local audio: it turns
// text into playable bytes and recorded audio into transcripts.
package speech

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/carewell/medibot/internal/backend"
)

// Config tunes synthesis and transcription defaults.
type Config struct {
	Language string  // BCP 47 tag, e.g. "en-IN"
	Voice    string  // backend voice id, empty for the backend default
	Rate     float64 // speaking rate, 1.0 is normal
	Format   string  // audio container for both directions, default "wav"
}

// Service wraps the backend speech endpoints with the configured defaults.
type Service struct {
	client *backend.Client
	cfg    Config
}

// NewService creates a speech service over the backend client.
func NewService(client *backend.Client, cfg Config) *Service {
	if cfg.Format == "" {
		cfg.Format = "wav"
	}
	if cfg.Rate == 0 {
		cfg.Rate = 1.0
	}
	return &Service{client: client, cfg: cfg}
}

// Synthesize returns encoded audio for the given text. The backend replies
// with either inline base64 audio or a URL to fetch.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.TextToSpeech(ctx, backend.TextToSpeechRequest{
		Text:     text,
		Voice:    s.cfg.Voice,
		Language: s.cfg.Language,
		Speed:    s.cfg.Rate,
		Format:   s.cfg.Format,
	})
	if err != nil {
		return nil, err
	}

	if resp.AudioData != "" {
		data, err := base64.StdEncoding.DecodeString(resp.AudioData)
		if err != nil {
			return nil, fmt.Errorf("decode synthesized audio: %w", err)
		}
		return data, nil
	}
	if resp.AudioURL != "" {
		return s.client.FetchAudio(ctx, resp.AudioURL)
	}
	return nil, fmt.Errorf("text to speech: response carried no audio")
}

// Transcribe sends recorded audio for recognition and returns the transcript.
func (s *Service) Transcribe(ctx context.Context, wav []byte) (string, error) {
	resp, err := s.client.SpeechToText(ctx, backend.SpeechToTextRequest{
		Audio:    wav,
		Language: s.cfg.Language,
		Format:   s.cfg.Format,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

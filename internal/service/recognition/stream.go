package recognition

import (
	"context"
	"errors"
)

// ErrNoSpeech marks a stream attempt that heard nothing. It is expected
// during natural pauses and is recovered silently, never surfaced.
var ErrNoSpeech = errors.New("no speech detected")

// Event is one batch of recognition results. Interims are still-changing
// segments for live display; Finals are committed segments. An Event carries
// either results or an error, not both.
type Event struct {
	Interims []string
	Finals   []string
	Err      error
}

// Stream is one continuous recognition attempt. The Events channel closes
// when the stream self-terminates, which happens periodically and does not
// mean the user wants to stop.
type Stream interface {
	Events() <-chan Event
	Close() error
}

// Source opens recognition streams in a given locale.
type Source interface {
	Open(ctx context.Context, language string) (Stream, error)
}

package recognition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// State of the recognizer.
type State int

const (
	// Idle means not listening; nothing restarts.
	Idle State = iota
	// Listening means a stream is open and results are flowing.
	Listening
	// Restarting means the stream self-terminated and a reopen is scheduled.
	Restarting
	// Processing means a committed transcript is being handled.
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Restarting:
		return "restarting"
	case Processing:
		return "processing"
	}
	return "unknown"
}

// ErrAlreadyListening rejects Start while a session is active.
var ErrAlreadyListening = errors.New("recognizer already started")

// Default timings. The debounce lets the speaker finish a thought before the
// transcript is dispatched, so one utterance does not fragment into several
// backend turns.
const (
	DefaultDebounce     = 1500 * time.Millisecond
	DefaultRestartDelay = 100 * time.Millisecond
)

// Config tunes a Recognizer.
type Config struct {
	Language     string
	Debounce     time.Duration
	RestartDelay time.Duration
	Clock        Clock
}

// Callbacks connect the recognizer to its owner. OnTranscript receives the
// live (interim+final) text for display, empty on reset. OnCommit receives a
// debounced final utterance and runs the turn synchronously; the recognizer
// sits in Processing until it returns. OnState observes transitions.
type Callbacks struct {
	OnTranscript func(string)
	OnCommit     func(string)
	OnState      func(State)
}

// Recognizer drives continuous recognition as an explicit state machine over
// {Idle, Listening, Restarting, Processing}. Streams self-terminate and drop
// no-speech errors as a matter of course; both are treated as transient and
// recovered without surfacing anything to the user.
type Recognizer struct {
	source Source
	cfg    Config
	cb     Callbacks

	mu      sync.Mutex
	state   State
	gen     int
	ctx     context.Context
	cancel  context.CancelFunc
	stream  Stream
	pending Timer
	finals  []string
}

// New builds a recognizer. Zero config fields get defaults.
func New(source Source, cfg Config, cb Callbacks) *Recognizer {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return &Recognizer{source: source, cfg: cfg, cb: cb, state: Idle}
}

// State reports the current machine state.
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start opens the recognition stream and begins listening.
func (r *Recognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(ctx)
	r.ctx = ctx
	r.cancel = cancel
	r.gen++
	gen := r.gen
	r.finals = nil
	r.setStateLocked(Listening)
	r.mu.Unlock()

	if err := r.open(gen); err != nil {
		r.Stop()
		return err
	}
	return nil
}

// Stop ends the session: the stream is closed, pending debounce and restart
// timers die, and the live transcript resets. Stopping twice is a no-op.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	if r.state == Idle && r.stream == nil {
		r.mu.Unlock()
		return
	}
	r.gen++
	stream := r.stream
	cancel := r.cancel
	r.stream = nil
	r.cancel = nil
	r.ctx = nil
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.finals = nil
	r.setStateLocked(Idle)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		stream.Close()
	}
	if r.cb.OnTranscript != nil {
		r.cb.OnTranscript("")
	}
}

// open dials a fresh stream for the given generation and starts consuming it.
func (r *Recognizer) open(gen int) error {
	r.mu.Lock()
	if gen != r.gen || r.ctx == nil {
		r.mu.Unlock()
		return nil
	}
	ctx := r.ctx
	r.mu.Unlock()

	stream, err := r.source.Open(ctx, r.cfg.Language)
	if err != nil {
		return fmt.Errorf("open recognition stream: %w", err)
	}

	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		stream.Close()
		return nil
	}
	r.stream = stream
	r.mu.Unlock()

	go r.consume(stream, gen)
	return nil
}

func (r *Recognizer) consume(stream Stream, gen int) {
	for ev := range stream.Events() {
		if !r.current(gen) {
			return
		}
		if ev.Err != nil {
			if errors.Is(ev.Err, ErrNoSpeech) {
				// Expected during natural pauses: reopen silently.
				stream.Close()
				if err := r.open(gen); err != nil {
					log.Printf("[asr] restart after no-speech failed: %v", err)
				}
				return
			}
			log.Printf("[asr] recognition error: %v", ev.Err)
			continue
		}
		r.handleResults(ev, gen)
	}

	// Stream self-terminated. Release its devices before reopening; Close is
	// idempotent, so a stream that already tore itself down is unaffected.
	stream.Close()

	// While the user has not pressed Stop this is a transient condition;
	// reopen after a brief delay.
	r.mu.Lock()
	if gen != r.gen || r.state == Idle {
		r.mu.Unlock()
		return
	}
	if r.state == Listening {
		r.setStateLocked(Restarting)
	}
	r.mu.Unlock()

	r.cfg.Clock.AfterFunc(r.cfg.RestartDelay, func() {
		r.mu.Lock()
		if gen != r.gen {
			r.mu.Unlock()
			return
		}
		if r.state == Restarting {
			r.setStateLocked(Listening)
		}
		r.mu.Unlock()
		if err := r.open(gen); err != nil {
			log.Printf("[asr] restart failed: %v", err)
		}
	})
}

// handleResults folds one event into the live transcript and, when it carries
// a non-empty final segment, (re)schedules the debounced commit.
func (r *Recognizer) handleResults(ev Event, gen int) {
	r.mu.Lock()
	if gen != r.gen || r.state == Idle {
		r.mu.Unlock()
		return
	}

	for _, f := range ev.Finals {
		if strings.TrimSpace(f) != "" {
			r.finals = append(r.finals, strings.TrimSpace(f))
		}
	}

	live := strings.TrimSpace(strings.Join(r.finals, " ") + " " + strings.Join(ev.Interims, ""))

	schedule := len(ev.Finals) > 0 && len(r.finals) > 0
	if schedule {
		if r.pending != nil {
			r.pending.Stop()
		}
		r.pending = r.cfg.Clock.AfterFunc(r.cfg.Debounce, func() {
			r.commit(gen)
		})
	}
	r.mu.Unlock()

	if r.cb.OnTranscript != nil {
		r.cb.OnTranscript(live)
	}
}

// commit dispatches the accumulated finals as one utterance.
func (r *Recognizer) commit(gen int) {
	r.mu.Lock()
	if gen != r.gen || r.state != Listening {
		r.mu.Unlock()
		return
	}
	text := strings.TrimSpace(strings.Join(r.finals, " "))
	r.finals = nil
	r.pending = nil
	if text == "" {
		r.mu.Unlock()
		return
	}
	r.setStateLocked(Processing)
	r.mu.Unlock()

	if r.cb.OnTranscript != nil {
		r.cb.OnTranscript("")
	}
	if r.cb.OnCommit != nil {
		r.cb.OnCommit(text)
	}

	r.mu.Lock()
	if gen == r.gen && r.state == Processing {
		r.setStateLocked(Listening)
	}
	r.mu.Unlock()
}

func (r *Recognizer) current(gen int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.gen
}

// setStateLocked is called with r.mu held; the observer runs on its own
// goroutine so slow observers cannot block the machine.
func (r *Recognizer) setStateLocked(s State) {
	if r.state == s {
		return
	}
	r.state = s
	if r.cb.OnState != nil {
		go r.cb.OnState(s)
	}
}

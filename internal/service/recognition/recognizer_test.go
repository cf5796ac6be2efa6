package recognition_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carewell/medibot/internal/service/recognition"
)

// fakeStream is a scripted recognition stream driven by the test. Channel
// termination and resource release are tracked separately: a stream that ends
// on its own still holds its devices until Close.
type fakeStream struct {
	mu       sync.Mutex
	out      chan recognition.Event
	chanOnce sync.Once
	released bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{out: make(chan recognition.Event, 8)}
}

func (s *fakeStream) Events() <-chan recognition.Event { return s.out }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
	s.chanOnce.Do(func() { close(s.out) })
	return nil
}

func (s *fakeStream) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// end simulates the stream self-terminating (its events channel closing
// without anyone having called Close).
func (s *fakeStream) end() {
	s.chanOnce.Do(func() { close(s.out) })
}

type fakeSource struct {
	opened chan *fakeStream
}

func newFakeSource() *fakeSource {
	return &fakeSource{opened: make(chan *fakeStream, 8)}
}

func (f *fakeSource) Open(ctx context.Context, language string) (recognition.Stream, error) {
	s := newFakeStream()
	f.opened <- s
	return s, nil
}

func (f *fakeSource) waitOpen(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-f.opened:
		return s
	case <-time.After(time.Second):
		t.Fatal("no stream opened")
		return nil
	}
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	scheduled chan *fakeTimer
}

type fakeTimer struct {
	mu      sync.Mutex
	d       time.Duration
	f       func()
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{scheduled: make(chan *fakeTimer, 8)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) recognition.Timer {
	t := &fakeTimer{d: d, f: f}
	c.scheduled <- t
	return t
}

func (c *fakeClock) next(t *testing.T) *fakeTimer {
	t.Helper()
	select {
	case timer := <-c.scheduled:
		return timer
	case <-time.After(time.Second):
		t.Fatal("no timer scheduled")
		return nil
	}
}

func (ft *fakeTimer) Stop() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.stopped {
		return false
	}
	ft.stopped = true
	return true
}

func (ft *fakeTimer) fire() {
	ft.mu.Lock()
	stopped := ft.stopped
	ft.mu.Unlock()
	if !stopped {
		ft.f()
	}
}

type harness struct {
	source      *fakeSource
	clock       *fakeClock
	rec         *recognition.Recognizer
	transcripts chan string
	commits     chan string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		source:      newFakeSource(),
		clock:       newFakeClock(),
		transcripts: make(chan string, 16),
		commits:     make(chan string, 16),
	}
	h.rec = recognition.New(h.source, recognition.Config{
		Language: "en-IN",
		Clock:    h.clock,
	}, recognition.Callbacks{
		OnTranscript: func(s string) { h.transcripts <- s },
		OnCommit:     func(s string) { h.commits <- s },
	})
	return h
}

func (h *harness) waitTranscript(t *testing.T) string {
	t.Helper()
	select {
	case s := <-h.transcripts:
		return s
	case <-time.After(time.Second):
		t.Fatal("no transcript")
		return ""
	}
}

func TestFinalResultCommitsAfterDebounce(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	stream := h.source.waitOpen(t)

	stream.out <- recognition.Event{Finals: []string{"I have a fever"}}
	if got := h.waitTranscript(t); got != "I have a fever" {
		t.Fatalf("unexpected live transcript: %q", got)
	}

	timer := h.clock.next(t)
	if timer.d != recognition.DefaultDebounce {
		t.Fatalf("debounce delay = %v, want %v", timer.d, recognition.DefaultDebounce)
	}
	timer.fire()

	select {
	case text := <-h.commits:
		if text != "I have a fever" {
			t.Fatalf("unexpected commit: %q", text)
		}
	case <-time.After(time.Second):
		t.Fatal("no commit")
	}

	// Back to Listening once the commit handler returned.
	if st := h.rec.State(); st != recognition.Listening {
		t.Fatalf("state after commit = %v, want Listening", st)
	}
}

func TestInterimResultsOnlyUpdateTranscript(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	stream := h.source.waitOpen(t)

	stream.out <- recognition.Event{Interims: []string{"I hav"}}
	if got := h.waitTranscript(t); got != "I hav" {
		t.Fatalf("unexpected transcript: %q", got)
	}

	select {
	case timer := <-h.clock.scheduled:
		t.Fatalf("interim result must not schedule a commit (%v)", timer.d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLaterFinalExtendsUtterance(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	stream := h.source.waitOpen(t)

	stream.out <- recognition.Event{Finals: []string{"book me"}}
	h.waitTranscript(t)
	first := h.clock.next(t)

	stream.out <- recognition.Event{Finals: []string{"for tomorrow"}}
	h.waitTranscript(t)
	second := h.clock.next(t)

	// The earlier debounce was superseded; firing it must do nothing.
	first.fire()
	select {
	case text := <-h.commits:
		t.Fatalf("superseded debounce committed %q", text)
	case <-time.After(50 * time.Millisecond):
	}

	second.fire()
	select {
	case text := <-h.commits:
		if text != "book me for tomorrow" {
			t.Fatalf("unexpected commit: %q", text)
		}
	case <-time.After(time.Second):
		t.Fatal("no commit")
	}
}

func TestNoSpeechSilentlyRestarts(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	stream := h.source.waitOpen(t)

	stream.out <- recognition.Event{Err: recognition.ErrNoSpeech}

	// A fresh stream opens without any timer or commit involved.
	h.source.waitOpen(t)
	if st := h.rec.State(); st != recognition.Listening {
		t.Fatalf("state = %v, want Listening", st)
	}
	select {
	case text := <-h.commits:
		t.Fatalf("no-speech must not commit, got %q", text)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStreamEndWhileListeningRestarts(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	stream := h.source.waitOpen(t)

	stream.end()

	timer := h.clock.next(t)
	if timer.d != recognition.DefaultRestartDelay {
		t.Fatalf("restart delay = %v, want %v", timer.d, recognition.DefaultRestartDelay)
	}
	if st := h.rec.State(); st != recognition.Restarting {
		t.Fatalf("state = %v, want Restarting", st)
	}

	timer.fire()
	h.source.waitOpen(t)
	if st := h.rec.State(); st != recognition.Listening {
		t.Fatalf("state after restart = %v, want Listening", st)
	}
}

func TestStreamEndReleasesOldStreamBeforeReopen(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	first := h.source.waitOpen(t)

	first.end()
	timer := h.clock.next(t)
	if !first.isReleased() {
		t.Fatal("self-terminated stream was not Closed; its capture device stays acquired")
	}

	timer.fire()
	second := h.source.waitOpen(t)
	if second.isReleased() {
		t.Fatal("fresh stream must not be closed")
	}
}

func TestNoSpeechReleasesOldStream(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	first := h.source.waitOpen(t)

	first.out <- recognition.Event{Err: recognition.ErrNoSpeech}
	h.source.waitOpen(t)
	if !first.isReleased() {
		t.Fatal("stream was not Closed after no-speech restart")
	}
}

func TestStopCancelsPendingCommit(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	stream := h.source.waitOpen(t)

	stream.out <- recognition.Event{Finals: []string{"half a thought"}}
	h.waitTranscript(t)
	timer := h.clock.next(t)

	h.rec.Stop()
	timer.fire()

	select {
	case text := <-h.commits:
		t.Fatalf("commit after Stop: %q", text)
	case <-time.After(50 * time.Millisecond):
	}
	if st := h.rec.State(); st != recognition.Idle {
		t.Fatalf("state = %v, want Idle", st)
	}
}

func TestStopTwiceIsSafe(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	h.source.waitOpen(t)
	h.rec.Stop()
	h.rec.Stop()
}

func TestStartWhileStartedRejected(t *testing.T) {
	h := newHarness(t)
	if err := h.rec.Start(context.Background()); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	defer h.rec.Stop()
	h.source.waitOpen(t)

	if err := h.rec.Start(context.Background()); err != recognition.ErrAlreadyListening {
		t.Fatalf("expected ErrAlreadyListening, got %v", err)
	}
}

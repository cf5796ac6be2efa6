package audio_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carewell/medibot/internal/service/audio"
)

type fakeOutput struct {
	mu       sync.Mutex
	plays    []int // sample rates, in order
	block    bool
	playing  chan struct{}
	canceled bool
}

func (o *fakeOutput) Play(ctx context.Context, pcm []int16, rate int) error {
	o.mu.Lock()
	o.plays = append(o.plays, rate)
	playing := o.playing
	block := o.block
	o.mu.Unlock()

	if playing != nil {
		close(playing)
	}
	if block {
		<-ctx.Done()
		o.mu.Lock()
		o.canceled = true
		o.mu.Unlock()
		return ctx.Err()
	}
	return nil
}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	return audio.EncodeWAV([]int16{1, 2, 3}, 24000), nil
}

type fakeFetch struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeFetch) FetchAudio(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.data, f.err
}

func TestPlayTurnPrefersAudioURL(t *testing.T) {
	out := &fakeOutput{}
	synth := &fakeSynth{}
	fetch := &fakeFetch{data: audio.EncodeWAV([]int16{9, 9}, 16000)}
	p := audio.NewPlayer(out, synth, fetch)

	if err := p.PlayTurn(context.Background(), "/media/reply.wav", "spoken fallback"); err != nil {
		t.Fatalf("PlayTurn err: %v", err)
	}
	if len(fetch.urls) != 1 || fetch.urls[0] != "/media/reply.wav" {
		t.Fatalf("audio url not fetched: %v", fetch.urls)
	}
	if len(synth.texts) != 0 {
		t.Fatalf("synthesis must not run when playback succeeds: %v", synth.texts)
	}
	if len(out.plays) != 1 || out.plays[0] != 16000 {
		t.Fatalf("unexpected plays: %v", out.plays)
	}
}

func TestPlayTurnFallsBackToSynthesis(t *testing.T) {
	out := &fakeOutput{}
	synth := &fakeSynth{}
	fetch := &fakeFetch{err: errors.New("404")}
	p := audio.NewPlayer(out, synth, fetch)

	if err := p.PlayTurn(context.Background(), "/media/missing.wav", "the last bot message"); err != nil {
		t.Fatalf("PlayTurn err: %v", err)
	}
	if len(synth.texts) != 1 || synth.texts[0] != "the last bot message" {
		t.Fatalf("expected synthesis fallback, got %v", synth.texts)
	}
}

func TestPlayTurnWithoutURLSynthesizes(t *testing.T) {
	out := &fakeOutput{}
	synth := &fakeSynth{}
	p := audio.NewPlayer(out, synth, &fakeFetch{})

	if err := p.PlayTurn(context.Background(), "", "hello there"); err != nil {
		t.Fatalf("PlayTurn err: %v", err)
	}
	if len(synth.texts) != 1 {
		t.Fatalf("expected one synthesis, got %v", synth.texts)
	}
}

func TestNewOutputInterruptsCurrent(t *testing.T) {
	out := &fakeOutput{block: true, playing: make(chan struct{})}
	synth := &fakeSynth{}
	p := audio.NewPlayer(out, synth, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Speak(context.Background(), "first")
	}()
	<-out.playing

	// Second output: the first must be canceled, not overlapped.
	out.mu.Lock()
	out.block = false
	out.playing = nil
	out.mu.Unlock()

	if err := p.Speak(context.Background(), "second"); err != nil {
		t.Fatalf("Speak err: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first playback was not interrupted")
	}

	out.mu.Lock()
	defer out.mu.Unlock()
	if !out.canceled {
		t.Fatal("first playback context was not canceled")
	}
	if len(out.plays) != 2 {
		t.Fatalf("expected two plays, got %d", len(out.plays))
	}
}

func TestStopWithNothingPlaying(t *testing.T) {
	p := audio.NewPlayer(&fakeOutput{}, &fakeSynth{}, nil)
	p.Stop()
	p.Stop()
}

package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/hajimehoshi/go-mp3"
)

// Synthesizer produces encoded audio for a piece of text, typically via the
// backend TTS endpoint.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Fetcher downloads the audio a turn response points at.
type Fetcher interface {
	FetchAudio(ctx context.Context, audioURL string) ([]byte, error)
}

// Player owns the single audible output channel. A turn response either
// carries an audio URL (preferred) or just text to synthesize; starting any
// new output interrupts whatever is currently playing.
type Player struct {
	out   OutputDevice
	synth Synthesizer
	fetch Fetcher

	mu      sync.Mutex
	current *playback
}

// playback identifies one output so a finished clip cannot tear down its
// successor.
type playback struct {
	cancel context.CancelFunc
}

// NewPlayer assembles a player. synth and fetch may be nil when the
// corresponding channel is not needed.
func NewPlayer(out OutputDevice, synth Synthesizer, fetch Fetcher) *Player {
	return &Player{out: out, synth: synth, fetch: fetch}
}

// PlayTurn realizes the output policy for one bot turn: play the audio URL
// when present, fall back to synthesizing text when playback fails, plain
// synthesis otherwise.
func (p *Player) PlayTurn(ctx context.Context, audioURL, text string) error {
	if audioURL != "" && p.fetch != nil {
		if err := p.playURL(ctx, audioURL); err == nil {
			return nil
		} else if ctx.Err() == nil {
			log.Printf("[player] audio playback failed, falling back to synthesis: %v", err)
		}
	}
	return p.Speak(ctx, text)
}

// Speak synthesizes and plays the given text.
func (p *Player) Speak(ctx context.Context, text string) error {
	if text == "" || p.synth == nil {
		return nil
	}
	data, err := p.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	return p.playEncoded(ctx, data)
}

func (p *Player) playURL(ctx context.Context, audioURL string) error {
	data, err := p.fetch.FetchAudio(ctx, audioURL)
	if err != nil {
		return err
	}
	return p.playEncoded(ctx, data)
}

func (p *Player) playEncoded(ctx context.Context, data []byte) error {
	pcm, rate, err := Decode(data)
	if err != nil {
		return err
	}

	ctx, cur := p.begin(ctx)
	defer p.release(cur)
	return p.out.Play(ctx, pcm, rate)
}

// begin interrupts any current output and registers the new one.
func (p *Player) begin(parent context.Context) (context.Context, *playback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	cur := &playback{cancel: cancel}
	p.current = cur
	return ctx, cur
}

func (p *Player) release(cur *playback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur.cancel()
	if p.current == cur {
		p.current = nil
	}
}

// Stop silences the player. Safe to call with nothing playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.cancel()
		p.current = nil
	}
}

// Decode turns an encoded clip (WAV or MP3) into 16-bit mono PCM.
func Decode(data []byte) ([]int16, int, error) {
	if len(data) >= 4 && string(data[0:4]) == "RIFF" {
		return DecodeWAV(data)
	}
	return decodeMP3(data)
}

func decodeMP3(data []byte) ([]int16, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}
	// go-mp3 always yields 16-bit stereo.
	stereo := make([]int16, len(raw)/2)
	for i := range stereo {
		stereo[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return downmix(stereo), dec.SampleRate(), nil
}

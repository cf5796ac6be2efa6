package recognition

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	webrtcvad "github.com/baabaaox/go-webrtcvad"

	"github.com/carewell/medibot/internal/backend"
	"github.com/carewell/medibot/internal/service/audio"
)

// VAD framing: webrtcvad wants 10/20/30ms frames; 20ms at 16kHz mono 16-bit.
const (
	vadFrameDuration = 20
	vadFrameSize     = audio.SampleRate / 1000 * vadFrameDuration
	vadBytesPerFrame = vadFrameSize * 2
	// silenceFrames of trailing non-speech end an utterance (~1s).
	silenceFrames = 50
)

// Transcriber is the slice of the backend client the STT source needs.
type Transcriber interface {
	SpeechToText(ctx context.Context, req backend.SpeechToTextRequest) (*backend.SpeechToTextResponse, error)
}

// STTSource approximates continuous recognition over the plain speech-to-text
// endpoint: it voice-activity-segments the microphone and transcribes each
// utterance as one final result. Used when no streaming recognizer is
// configured. There are no interim results on this path.
type STTSource struct {
	Transcriber Transcriber
	OpenDevice  func() (audio.CaptureDevice, error)
	Format      string // transcription format hint, default "wav"
}

type sttStream struct {
	events chan Event

	closeOnce sync.Once
	done      chan struct{}
	dev       audio.CaptureDevice
	vad       webrtcvad.VadInst
}

// Open acquires the microphone and starts segmenting.
func (s *STTSource) Open(ctx context.Context, language string) (Stream, error) {
	vad := webrtcvad.Create()
	if vad == nil {
		return nil, fmt.Errorf("create vad instance")
	}
	if err := webrtcvad.Init(vad); err != nil {
		webrtcvad.Free(vad)
		return nil, fmt.Errorf("init vad: %w", err)
	}
	if err := webrtcvad.SetMode(vad, 3); err != nil {
		webrtcvad.Free(vad)
		return nil, fmt.Errorf("set vad mode: %w", err)
	}

	dev, err := s.OpenDevice()
	if err != nil {
		webrtcvad.Free(vad)
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		webrtcvad.Free(vad)
		return nil, fmt.Errorf("start microphone: %w", err)
	}

	st := &sttStream{
		events: make(chan Event, 4),
		done:   make(chan struct{}),
		dev:    dev,
		vad:    vad,
	}
	go st.run(ctx, s, language)
	return st, nil
}

// run reads frames, cuts segments on trailing silence and transcribes each.
func (st *sttStream) run(ctx context.Context, src *STTSource, language string) {
	defer close(st.events)

	var (
		pending  []byte // raw bytes not yet a full VAD frame
		segment  []int16
		inSpeech bool
		silence  int
	)

	flush := func() {
		if len(segment) == 0 {
			return
		}
		seg := make([]int16, len(segment))
		copy(seg, segment)
		segment = segment[:0]
		inSpeech = false
		silence = 0
		st.transcribe(ctx, src, language, seg)
	}

	for {
		select {
		case <-st.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		frame, err := st.dev.Read()
		if err != nil {
			select {
			case <-st.done:
			default:
				log.Printf("[asr] microphone read failed: %v", err)
			}
			return
		}

		raw := make([]byte, len(frame)*2)
		for i, sample := range frame {
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(sample))
		}
		pending = append(pending, raw...)

		for len(pending) >= vadBytesPerFrame {
			chunk := pending[:vadBytesPerFrame]
			pending = pending[vadBytesPerFrame:]

			active, err := webrtcvad.Process(st.vad, audio.SampleRate, chunk, vadFrameSize)
			if err != nil {
				log.Printf("[asr] vad process error: %v", err)
				continue
			}

			samples := make([]int16, vadFrameSize)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(chunk[i*2:]))
			}

			switch {
			case active:
				inSpeech = true
				silence = 0
				segment = append(segment, samples...)
			case inSpeech:
				silence++
				segment = append(segment, samples...)
				if silence >= silenceFrames {
					flush()
				}
			}
		}
	}
}

// transcribe posts one utterance and emits it as a final result. An empty
// transcription counts as no speech.
func (st *sttStream) transcribe(ctx context.Context, src *STTSource, language string, segment []int16) {
	format := src.Format
	if format == "" {
		format = "wav"
	}
	resp, err := src.Transcriber.SpeechToText(ctx, backend.SpeechToTextRequest{
		Audio:    audio.EncodeWAV(segment, audio.SampleRate),
		Language: language,
		Format:   format,
	})

	var ev Event
	switch {
	case err != nil:
		ev = Event{Err: fmt.Errorf("transcribe segment: %w", err)}
	case resp.Text == "":
		ev = Event{Err: ErrNoSpeech}
	default:
		ev = Event{Finals: []string{resp.Text}}
	}

	select {
	case st.events <- ev:
	case <-st.done:
	}
}

func (st *sttStream) Events() <-chan Event {
	return st.events
}

func (st *sttStream) Close() error {
	st.closeOnce.Do(func() {
		close(st.done)
		st.dev.Stop()
		st.dev.Close()
		webrtcvad.Free(st.vad)
	})
	return nil
}

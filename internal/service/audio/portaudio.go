package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// portaudio.Initialize/Terminate are process-global and refcounted here so
// capture and playback can coexist.
var (
	paMu   sync.Mutex
	paRefs int
)

func paAcquire() error {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
	}
	paRefs++
	return nil
}

func paRelease() {
	paMu.Lock()
	defer paMu.Unlock()
	if paRefs == 0 {
		return
	}
	paRefs--
	if paRefs == 0 {
		portaudio.Terminate()
	}
}

// Microphone is the portaudio-backed capture device.
type Microphone struct {
	stream *portaudio.Stream
	buf    []int16
	closed bool
}

// OpenMicrophone opens the default input device for 16 kHz mono capture.
func OpenMicrophone() (*Microphone, error) {
	if err := paAcquire(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	buf := make([]int16, FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), FramesPerBuffer, buf)
	if err != nil {
		paRelease()
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	return &Microphone{stream: stream, buf: buf}, nil
}

func (m *Microphone) Start() error {
	return m.stream.Start()
}

func (m *Microphone) Read() ([]int16, error) {
	if err := m.stream.Read(); err != nil {
		return nil, err
	}
	frame := make([]int16, len(m.buf))
	copy(frame, m.buf)
	return frame, nil
}

func (m *Microphone) Stop() error {
	return m.stream.Stop()
}

func (m *Microphone) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	err := m.stream.Close()
	paRelease()
	return err
}

// Speaker is the portaudio-backed output device. Each clip opens its own
// stream because clips arrive at varying sample rates.
type Speaker struct{}

func (Speaker) Play(ctx context.Context, pcm []int16, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}
	if err := paAcquire(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer paRelease()

	buf := make([]int16, FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), FramesPerBuffer, buf)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output: %w", err)
	}
	defer stream.Stop()

	for offset := 0; offset < len(pcm); offset += FramesPerBuffer {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		end := offset + FramesPerBuffer
		if end > len(pcm) {
			end = len(pcm)
		}
		n := copy(buf, pcm[offset:end])
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

package audio

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrAlreadyRecording rejects a second Start without a Stop in between.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording rejects Stop when nothing was started.
	ErrNotRecording = errors.New("no active recording")
	// ErrDeviceUnavailable wraps microphone acquisition failures.
	ErrDeviceUnavailable = errors.New("microphone unavailable")
)

// RecordingState is the recorder lifecycle position.
type RecordingState int

const (
	RecIdle RecordingState = iota
	RecRecording
	RecStopped
)

// Recorder buffers microphone frames between Start and Stop and hands back
// one WAV payload. One recording at a time; the device is released on every
// path out of Recording, including errors.
type Recorder struct {
	mu      sync.Mutex
	dev     CaptureDevice
	state   RecordingState
	samples []int16
	stop    chan struct{}
	done    chan struct{}
	readErr error
}

// NewRecorder wraps a capture device. The device is not opened until Start.
func NewRecorder(dev CaptureDevice) *Recorder {
	return &Recorder{dev: dev}
}

// State reports the current lifecycle position.
func (r *Recorder) State() RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the microphone and begins buffering.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RecRecording {
		return ErrAlreadyRecording
	}

	if err := r.dev.Start(); err != nil {
		r.dev.Close()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.state = RecRecording
	r.samples = r.samples[:0]
	r.readErr = nil
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.capture(r.stop, r.done)
	return nil
}

// capture pulls frames until stop closes. Read failures end the loop; the
// error is surfaced from Stop.
func (r *Recorder) capture(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		frame, err := r.dev.Read()
		if err != nil {
			r.mu.Lock()
			r.readErr = err
			r.mu.Unlock()
			return
		}
		r.mu.Lock()
		r.samples = append(r.samples, frame...)
		r.mu.Unlock()
	}
}

// Stop finalizes the recording, releases the microphone and returns the
// complete utterance as a WAV payload.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if r.state != RecRecording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()

	r.dev.Stop()
	r.dev.Close()
	r.state = RecStopped

	if r.readErr != nil {
		return nil, fmt.Errorf("capture failed: %w", r.readErr)
	}
	return EncodeWAV(r.samples, SampleRate), nil
}

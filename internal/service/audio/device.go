package audio

import "context"

// Capture parameters shared by the recorder and the capture devices.
const (
	SampleRate      = 16000
	FramesPerBuffer = 1024
)

// CaptureDevice abstracts a microphone. It is a real hardware resource:
// whoever opens it must guarantee Close on every path, error or not.
type CaptureDevice interface {
	// Start begins delivering frames.
	Start() error
	// Read blocks for the next frame of 16-bit mono samples.
	Read() ([]int16, error)
	// Stop halts delivery. Safe to call after a failed Start.
	Stop() error
	// Close releases the device.
	Close() error
}

// OutputDevice plays a PCM clip. Play honors ctx cancellation so a new
// output can interrupt the current one.
type OutputDevice interface {
	Play(ctx context.Context, pcm []int16, sampleRate int) error
}

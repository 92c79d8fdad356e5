//go:build nocgo

package device

import (
	"errors"

	"github.com/lexiqai/avatar-link/internal/audio"
)

var errNoDevice = errors.New("audio device not available in nocgo build")

// Output is unavailable without cgo
type Output struct{}

// NewOutput always fails in nocgo builds
func NewOutput(sampleRate int) (*Output, error) {
	return nil, errNoDevice
}

func (o *Output) Start(pcm *audio.PCM) (audio.Playback, error) {
	return nil, errNoDevice
}

func (o *Output) Close() error {
	return nil
}

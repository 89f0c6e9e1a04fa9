//go:build !cgo || noaudio

package platform

import (
	"errors"

	"pakaudio/internal/engine"
	"pakaudio/internal/output"
)

const nativeAvailable = false

var errNoAudio = errors.New("built without audio support (needs cgo, not tagged noaudio)")

func newSink(engine.InitParam) (output.Sink, error) {
	return nil, errNoAudio
}

// NewSink always fails in builds without audio support.
func NewSink(param engine.InitParam) (output.Sink, error) {
	return newSink(param)
}

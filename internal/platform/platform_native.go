//go:build cgo && !noaudio

package platform

import (
	_ "pakaudio/internal/codec/opus"
	"pakaudio/internal/engine"
	"pakaudio/internal/output"
	"pakaudio/internal/output/speaker"
	"pakaudio/pkg/spec"

	"github.com/faiface/beep"
)

const nativeAvailable = true

func newSink(param engine.InitParam) (output.Sink, error) {
	s, err := speaker.New(beep.SampleRate(spec.SampleRate), param.BufferDuration())
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSink opens the device sink, for callers that drive an engine directly.
func NewSink(param engine.InitParam) (output.Sink, error) {
	return newSink(param)
}

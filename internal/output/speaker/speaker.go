// Package speaker is the device-backed output sink.
package speaker

import (
	"sync"
	"time"

	"pakaudio/internal/log"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

var initOnce sync.Once
var initErr error

// Sink plays through the default audio device via beep/speaker. The device is
// process-wide and initialised once.
type Sink struct {
	rate beep.SampleRate
}

// New initialises the device at rate with a buffer of bufferTime.
func New(rate beep.SampleRate, bufferTime time.Duration) (*Sink, error) {
	initOnce.Do(func() {
		initErr = speaker.Init(rate, rate.N(bufferTime))
		if initErr == nil {
			log.Debug(log.CatEngine, "Speaker ready", "rate", int(rate), "buffer", bufferTime)
		}
	})
	if initErr != nil {
		return nil, initErr
	}
	return &Sink{rate: rate}, nil
}

func (s *Sink) SampleRate() beep.SampleRate { return s.rate }

func (s *Sink) Lock()   { speaker.Lock() }
func (s *Sink) Unlock() { speaker.Unlock() }

func (s *Sink) Play(st ...beep.Streamer) { speaker.Play(st...) }

func (s *Sink) Clear() { speaker.Clear() }

// Close silences the device. The device itself stays open for later sinks.
func (s *Sink) Close() error {
	speaker.Clear()
	return nil
}

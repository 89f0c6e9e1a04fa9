// Package output defines where the engine's mixed stream is played.
package output

import (
	"sync"

	"github.com/faiface/beep"
)

// Sink plays streamers on an output device. Lock/Unlock bracket every change
// to state the device goroutine can see.
type Sink interface {
	SampleRate() beep.SampleRate
	Lock()
	Unlock()
	Play(s ...beep.Streamer)
	Clear()
	Close() error
}

// Manual is a Sink without a device. Samples are pulled with Pump, which makes
// it usable headless and in tests.
type Manual struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	mixer  beep.Mixer
	closed bool
}

func NewManual(rate beep.SampleRate) *Manual {
	return &Manual{rate: rate}
}

func (m *Manual) SampleRate() beep.SampleRate { return m.rate }

func (m *Manual) Lock()   { m.mu.Lock() }
func (m *Manual) Unlock() { m.mu.Unlock() }

// Play adds s to the mix. Callers must not hold the lock.
func (m *Manual) Play(s ...beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.mixer.Add(s...)
}

func (m *Manual) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Clear()
}

// Len reports how many streamers are still in the mix.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}

// Pump streams n samples out of the mix. Silence is returned once closed.
func (m *Manual) Pump(n int) [][2]float64 {
	out := make([][2]float64, n)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return out
	}
	m.mixer.Stream(out)
	return out
}

func (m *Manual) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Clear()
	m.closed = true
	return nil
}

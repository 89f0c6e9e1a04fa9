// Package source plays whole clips held in memory, apart from the pack engine.
// The demo uses it for its engine-side background track and sound effect.
package source

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"time"

	"pakaudio/internal/codec"
	"pakaudio/internal/log"
	"pakaudio/internal/output"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// Clip is a decoded sound resampled to its target rate.
type Clip struct {
	Name   string
	Buffer *beep.Buffer
}

// LoadClip decodes name from fsys into memory at rate.
func LoadClip(fsys fs.FS, name string, codecs *codec.Registry, rate beep.SampleRate) (*Clip, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	return NewClip(name, data, codecs, rate)
}

// LoadClipFile decodes a file on disk.
func LoadClipFile(path string, codecs *codec.Registry, rate beep.SampleRate) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewClip(path, data, codecs, rate)
}

// NewClip decodes data with codecs (nil means codec.Default()).
func NewClip(name string, data []byte, codecs *codec.Registry, rate beep.SampleRate) (*Clip, error) {
	if codecs == nil {
		codecs = codec.Default()
	}
	s, format, kind, err := codecs.Decode(codec.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", name, err)
	}
	defer s.Close()

	var in beep.Streamer = s
	if format.SampleRate != rate {
		in = beep.Resample(4, format.SampleRate, rate, s)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2})
	buf.Append(in)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("clip %s: %w", name, err)
	}

	log.Debug(log.CatCodec, "Clip loaded", "name", name, "format", kind, "frames", buf.Len())
	return &Clip{Name: name, Buffer: buf}, nil
}

func (c *Clip) Len() int { return c.Buffer.Len() }

func (c *Clip) Duration() time.Duration {
	return c.Buffer.Format().SampleRate.D(c.Buffer.Len())
}

// Source plays a clip on a sink. Fields reachable from the mix are touched
// under the sink lock.
type Source struct {
	sink   output.Sink
	clip   *Clip
	loop   bool
	volume float64

	ctrl *beep.Ctrl
	done bool
}

func New(sink output.Sink, clip *Clip) *Source {
	return &Source{sink: sink, clip: clip, volume: 1}
}

func (s *Source) Clip() *Clip { return s.clip }

// SetLoop takes effect the next time the source starts from the beginning.
func (s *Source) SetLoop(loop bool) {
	s.sink.Lock()
	defer s.sink.Unlock()
	s.loop = loop
}

// SetVolume sets the linear gain used by later Play and PlayOneShot calls.
func (s *Source) SetVolume(v float64) {
	s.sink.Lock()
	defer s.sink.Unlock()
	s.volume = v
}

// Play resumes a paused source or starts it from the beginning.
func (s *Source) Play() {
	s.sink.Lock()
	if s.ctrl != nil && !s.done {
		s.ctrl.Paused = false
		s.sink.Unlock()
		return
	}

	var st beep.Streamer = s.clip.Buffer.Streamer(0, s.clip.Len())
	if s.loop {
		st = beep.Loop(-1, s.clip.Buffer.Streamer(0, s.clip.Len()))
	}
	ctrl := &beep.Ctrl{Streamer: beep.Seq(gain(st, s.volume), beep.Callback(func() {
		s.done = true
	}))}
	s.ctrl = ctrl
	s.done = false
	s.sink.Unlock()

	s.sink.Play(ctrl)
}

func (s *Source) Pause() {
	s.sink.Lock()
	defer s.sink.Unlock()
	if s.ctrl != nil {
		s.ctrl.Paused = true
	}
}

// Stop drops the source from the mix; the next Play starts over.
func (s *Source) Stop() {
	s.sink.Lock()
	defer s.sink.Unlock()
	if s.ctrl != nil {
		s.ctrl.Streamer = nil
	}
	s.done = true
}

func (s *Source) IsPlaying() bool {
	s.sink.Lock()
	defer s.sink.Unlock()
	return s.ctrl != nil && !s.done && !s.ctrl.Paused
}

// PlayOneShot plays an independent copy of the clip at volume on top of
// whatever the source is doing.
func (s *Source) PlayOneShot(volume float64) {
	s.sink.Lock()
	st := gain(s.clip.Buffer.Streamer(0, s.clip.Len()), s.volume*volume)
	s.sink.Unlock()
	s.sink.Play(st)
}

func gain(st beep.Streamer, g float64) beep.Streamer {
	if g == 1 {
		return st
	}
	return &effects.Gain{Streamer: st, Gain: g - 1}
}

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"pakaudio/pkg/spec"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

var ErrUnknownFormat = errors.New("unknown audio format")

// HeadSize is how many leading bytes are handed to Format.Match.
const HeadSize = 64

// DecodeFunc turns an entry reader into a stream. The stream owns rc and closes it.
type DecodeFunc func(rc ReadSeekCloser) (beep.StreamCloser, beep.Format, error)

// Format is a sniffable entry encoding.
type Format struct {
	Name   string
	Match  func(head []byte) bool
	Decode DecodeFunc
}

type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}

type nopCloser struct{ io.ReadSeeker }

func (nopCloser) Close() error { return nil }

// NopCloser adds a no-op Close to rs.
func NopCloser(rs io.ReadSeeker) ReadSeekCloser {
	return nopCloser{rs}
}

// Registry holds formats in registration order; the first match wins.
type Registry struct {
	mu      sync.RWMutex
	formats []Format
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, have := range r.formats {
		if have.Name == f.Name {
			r.formats[i] = f
			return
		}
	}
	r.formats = append(r.formats, f)
}

// Names lists registered format names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.formats))
	for i, f := range r.formats {
		names[i] = f.Name
	}
	return names
}

// Sniff finds the format whose magic matches head.
func (r *Registry) Sniff(head []byte) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.formats {
		if f.Match(head) {
			return f, true
		}
	}
	return Format{}, false
}

// Identify reads the head of rs, rewinds it and returns the matching format name.
func (r *Registry) Identify(rs io.ReadSeeker) (string, error) {
	f, err := r.sniffReader(rs)
	if err != nil {
		return "", err
	}
	return f.Name, nil
}

// Decode sniffs rc and decodes it with the matching format.
func (r *Registry) Decode(rc ReadSeekCloser) (beep.StreamCloser, beep.Format, string, error) {
	f, err := r.sniffReader(rc)
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, "", err
	}
	s, format, err := f.Decode(rc)
	if err != nil {
		return nil, beep.Format{}, f.Name, fmt.Errorf("decoding %s: %w", f.Name, err)
	}
	return s, format, f.Name, nil
}

func (r *Registry) sniffReader(rs io.ReadSeeker) (Format, error) {
	head := make([]byte, HeadSize)
	n, err := io.ReadFull(rs, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Format{}, err
	}
	head = head[:n]
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Format{}, err
	}
	f, ok := r.Sniff(head)
	if !ok {
		return Format{}, ErrUnknownFormat
	}
	return f, nil
}

var defaultRegistry = newDefault()

func newDefault() *Registry {
	r := NewRegistry()
	r.Register(Format{Name: "wav", Match: IsWAV, Decode: decodeWAV})
	r.Register(Format{Name: "ogg-vorbis", Match: IsOggVorbis, Decode: decodeVorbis})
	r.Register(Format{Name: "mp3", Match: IsMP3, Decode: decodeMP3})
	return r
}

// Default is the process-wide registry; codec/opus adds itself here on import.
func Default() *Registry { return defaultRegistry }

// Register adds f to the default registry.
func Register(f Format) { defaultRegistry.Register(f) }

func IsWAV(head []byte) bool {
	return len(head) >= 12 &&
		string(head[:4]) == spec.MagicRIFF &&
		string(head[8:12]) == spec.MagicWAVE
}

func isOgg(head []byte) bool {
	return len(head) >= 4 && string(head[:4]) == spec.MagicOgg
}

// IsOggOpus matches the first Ogg page of an Opus stream.
func IsOggOpus(head []byte) bool {
	return isOgg(head) && bytes.Contains(head, []byte(spec.MagicOpusHead))
}

func IsOggVorbis(head []byte) bool {
	return isOgg(head) && bytes.Contains(head, []byte(spec.MagicVorbisHead))
}

func IsMP3(head []byte) bool {
	if len(head) >= 3 && string(head[:3]) == spec.MagicID3 {
		return true
	}
	return len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0
}

func IsOpusFrames(head []byte) bool {
	return len(head) >= 4 && string(head[:4]) == spec.MagicOpusFrames
}

// beep/wav divides 16- and 24-bit samples by 2^bits-1 rather than 2^(bits-1),
// which leaves them at half level. wavFullScale is the correction per precision.
var wavFullScale = map[int]float64{
	2: float64(1<<16-1) / (1 << 15),
	3: float64(1<<24-1) / (1 << 23),
}

// gainCloser applies a gain while keeping the decoder's Close.
type gainCloser struct {
	*effects.Gain
	c beep.StreamCloser
}

func (g gainCloser) Close() error { return g.c.Close() }

func decodeWAV(rc ReadSeekCloser) (beep.StreamCloser, beep.Format, error) {
	s, format, err := wav.Decode(rc)
	if err != nil {
		return nil, format, err
	}
	scale, ok := wavFullScale[format.Precision]
	if !ok {
		return s, format, nil
	}
	return gainCloser{Gain: &effects.Gain{Streamer: s, Gain: scale - 1}, c: s}, format, nil
}

func decodeVorbis(rc ReadSeekCloser) (beep.StreamCloser, beep.Format, error) {
	return vorbis.Decode(rc)
}

func decodeMP3(rc ReadSeekCloser) (beep.StreamCloser, beep.Format, error) {
	return mp3.Decode(rc)
}

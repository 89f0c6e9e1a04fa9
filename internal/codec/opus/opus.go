// Package opus registers the Ogg Opus and framed opus entry decoders with the
// default codec registry. Import it for side effects; it needs cgo and libopus.
package opus

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"pakaudio/internal/codec"
	"pakaudio/pkg/audioengine"
	"pakaudio/pkg/spec"

	"github.com/faiface/beep"
	"github.com/hraban/opus"
)

func init() {
	codec.Register(codec.Format{Name: "ogg-opus", Match: codec.IsOggOpus, Decode: DecodeOgg})
	codec.Register(codec.Format{Name: "opus-frames", Match: codec.IsOpusFrames, Decode: DecodeFrames})
}

// oggStreamer pulls PCM out of libopusfile on demand.
type oggStreamer struct {
	rc       io.Closer
	stream   *opus.Stream
	channels int
	pcm      []int16
	buffer   [][2]float64
	err      error
}

// DecodeOgg decodes an Ogg Opus file. Output is always 48 kHz.
func DecodeOgg(rc codec.ReadSeekCloser) (beep.StreamCloser, beep.Format, error) {
	head := make([]byte, codec.HeadSize)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		rc.Close()
		return nil, beep.Format{}, err
	}
	head = head[:n]
	channels, err := oggChannels(head)
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, err
	}
	if _, err := rc.Seek(0, io.SeekStart); err != nil {
		rc.Close()
		return nil, beep.Format{}, err
	}

	s, err := opus.NewStream(rc)
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, err
	}
	format := beep.Format{SampleRate: spec.SampleRate, NumChannels: channels, Precision: 2}
	return &oggStreamer{
		rc:       rc,
		stream:   s,
		channels: channels,
		pcm:      make([]int16, spec.BufferNumSamplesPerChannel*channels),
	}, format, nil
}

// oggChannels reads the channel count byte that follows the OpusHead magic and version.
func oggChannels(head []byte) (int, error) {
	idx := bytes.Index(head, []byte(spec.MagicOpusHead))
	if idx < 0 || idx+9 >= len(head) {
		return 0, errors.New("OpusHead not found in first page")
	}
	ch := int(head[idx+9])
	if ch < 1 || ch > 2 {
		return 0, fmt.Errorf("unsupported opus channel count %d", ch)
	}
	return ch, nil
}

func (o *oggStreamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if len(o.buffer) == 0 {
			n, err := o.stream.Read(o.pcm)
			if err == io.EOF {
				break
			}
			if err != nil {
				o.err = err
				break
			}
			appendPCM(&o.buffer, o.pcm, n, o.channels)
			if n == 0 {
				continue
			}
		}
		n := copy(samples[filled:], o.buffer)
		o.buffer = o.buffer[n:]
		filled += n
	}
	return filled, filled > 0
}

func (o *oggStreamer) Err() error { return o.err }

func (o *oggStreamer) Close() error {
	err := o.stream.Close()
	if cerr := o.rc.Close(); err == nil {
		err = cerr
	}
	return err
}

// framedStreamer decodes length-prefixed opus packets as they are needed.
type framedStreamer struct {
	rc     io.ReadCloser
	dec    *audioengine.StreamDecoder
	packet []byte
	pcm    []int16
	buffer [][2]float64
	err    error
}

// DecodeFrames decodes a payload written by audioengine.EncodeWavToFrames.
func DecodeFrames(rc codec.ReadSeekCloser) (beep.StreamCloser, beep.Format, error) {
	h, err := audioengine.ReadFramesHeader(rc)
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, err
	}
	dec, err := audioengine.NewStreamDecoder(int(h.SampleRate), int(h.Channels))
	if err != nil {
		rc.Close()
		return nil, beep.Format{}, err
	}
	format := beep.Format{SampleRate: beep.SampleRate(h.SampleRate), NumChannels: int(h.Channels), Precision: 2}
	return &framedStreamer{
		rc:  rc,
		dec: dec,
		pcm: make([]int16, spec.BufferNumSamplesPerChannel*int(h.Channels)),
	}, format, nil
}

func (f *framedStreamer) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if len(f.buffer) == 0 {
			p, err := audioengine.ReadPacket(f.rc, f.packet)
			if err != nil {
				if err != io.EOF {
					f.err = err
				}
				break
			}
			f.packet = p

			n, err := f.dec.DecodeFrame(p, f.pcm)
			if err != nil {
				continue
			}
			appendPCM(&f.buffer, f.pcm, n, f.dec.Channels())
			if n == 0 {
				continue
			}
		}
		n := copy(samples[filled:], f.buffer)
		f.buffer = f.buffer[n:]
		filled += n
	}
	return filled, filled > 0
}

func (f *framedStreamer) Err() error { return f.err }

func (f *framedStreamer) Close() error { return f.rc.Close() }

func appendPCM(buffer *[][2]float64, pcm []int16, n, channels int) {
	for i := 0; i < n; i++ {
		l := float64(pcm[i*channels]) / 32768.0
		r := l
		if channels == 2 {
			r = float64(pcm[i*2+1]) / 32768.0
		}
		*buffer = append(*buffer, [2]float64{l, r})
	}
}

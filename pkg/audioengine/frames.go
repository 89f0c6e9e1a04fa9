package audioengine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"pakaudio/pkg/spec"
)

var ErrNotFramed = errors.New("not a framed opus stream")

// FramesHeader opens a framed opus payload:
// magic(4) | sample rate (u32 BE) | channels (u16 BE) | frame ms (u16 BE),
// followed by packets as u16 BE length + data.
type FramesHeader struct {
	SampleRate uint32
	Channels   uint16
	FrameMs    uint16
}

const FramesHeaderSize = 12

func WriteFramesHeader(w io.Writer, h FramesHeader) error {
	if _, err := w.Write([]byte(spec.MagicOpusFrames)); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, h)
}

func ReadFramesHeader(r io.Reader) (FramesHeader, error) {
	var h FramesHeader
	magic := make([]byte, len(spec.MagicOpusFrames))
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != spec.MagicOpusFrames {
		return h, ErrNotFramed
	}
	if err := binary.Read(r, binary.BigEndian, &h); err != nil {
		return h, fmt.Errorf("reading header: %w", err)
	}
	if h.Channels < 1 || h.Channels > 2 {
		return h, fmt.Errorf("%w: %d channels", ErrNotFramed, h.Channels)
	}
	return h, nil
}

// WritePacket writes one length-prefixed opus packet.
func WritePacket(w io.Writer, packet []byte) error {
	if len(packet) > 0xFFFF {
		return fmt.Errorf("opus packet too large: %d bytes", len(packet))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(packet))); err != nil {
		return err
	}
	_, err := w.Write(packet)
	return err
}

// ReadPacket reads one packet into buf (grown as needed). io.EOF marks a clean end.
func ReadPacket(r io.Reader, buf []byte) ([]byte, error) {
	var sz uint16
	if err := binary.Read(r, binary.BigEndian, &sz); err != nil {
		return nil, err
	}
	if cap(buf) < int(sz) {
		buf = make([]byte, sz)
	}
	buf = buf[:sz]
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

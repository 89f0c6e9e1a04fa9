package audioengine

import (
	"github.com/hraban/opus"
)

type StreamDecoder struct {
	dec      *opus.Decoder
	channels int
}

func NewStreamDecoder(rate, channels int) (*StreamDecoder, error) {
	d, err := opus.NewDecoder(rate, channels)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{dec: d, channels: channels}, nil
}

func (sd *StreamDecoder) Channels() int { return sd.channels }

// DecodeFrame decodes one packet into interleaved outPcm and returns samples per channel.
func (sd *StreamDecoder) DecodeFrame(frame []byte, outPcm []int16) (int, error) {
	return sd.dec.Decode(frame, outPcm)
}

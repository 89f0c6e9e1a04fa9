package audioengine

import (
	"bytes"
	"io"
	"testing"

	"pakaudio/internal/audiotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramesHeader(t *testing.T) {
	var buf bytes.Buffer
	want := FramesHeader{SampleRate: 48000, Channels: 2, FrameMs: 20}
	require.NoError(t, WriteFramesHeader(&buf, want))
	assert.Equal(t, FramesHeaderSize, buf.Len())

	got, err := ReadFramesHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ReadFramesHeader(bytes.NewReader([]byte("RIFFxxxxxxxx")))
	require.ErrorIs(t, err, ErrNotFramed)
}

func TestPackets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePacket(&buf, []byte{1, 2, 3}))
	require.NoError(t, WritePacket(&buf, nil))

	p, err := ReadPacket(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p)
	p, err = ReadPacket(&buf, p)
	require.NoError(t, err)
	assert.Empty(t, p)
	_, err = ReadPacket(&buf, p)
	assert.ErrorIs(t, err, io.EOF)

	require.Error(t, WritePacket(io.Discard, make([]byte, 70000)))
}

func TestEncodeWavToFrames(t *testing.T) {
	// 0.5 s of stereo tone at 48 kHz = 25 packets of 20 ms.
	wavData := audiotest.SineWAV(t, 48000, 2, 24000, 440)

	var out bytes.Buffer
	dur, err := EncodeWavToFrames(bytes.NewReader(wavData), &out)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, dur, 0.001)

	h, err := ReadFramesHeader(&out)
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), h.SampleRate)
	assert.Equal(t, uint16(2), h.Channels)

	dec, err := NewStreamDecoder(int(h.SampleRate), int(h.Channels))
	require.NoError(t, err)

	pcm := make([]int16, 5760*2)
	var packet []byte
	packets, samples := 0, 0
	for {
		packet, err = ReadPacket(&out, packet)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n, err := dec.DecodeFrame(packet, pcm)
		require.NoError(t, err)
		samples += n
		packets++
	}
	assert.Equal(t, 25, packets)
	assert.Equal(t, 24000, samples)
}

func TestEncodeRejectsOddRates(t *testing.T) {
	wavData := audiotest.SineWAV(t, 44100, 2, 100, 440)
	_, err := EncodeWavToFrames(bytes.NewReader(wavData), io.Discard)
	require.Error(t, err)
}

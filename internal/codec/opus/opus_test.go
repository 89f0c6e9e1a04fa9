package opus

import (
	"bytes"
	"testing"

	"pakaudio/internal/audiotest"
	"pakaudio/internal/codec"
	"pakaudio/pkg/audioengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOggChannels(t *testing.T) {
	head := append([]byte("OggS\x00\x02junkOpusHead"), 1, 2, 0x38, 0x01)
	ch, err := oggChannels(head)
	require.NoError(t, err)
	assert.Equal(t, 2, ch)

	_, err = oggChannels([]byte("OggS no head"))
	require.Error(t, err)

	_, err = oggChannels(append([]byte("OpusHead"), 1, 6))
	require.Error(t, err)
}

func TestRegistered(t *testing.T) {
	names := codec.Default().Names()
	assert.Contains(t, names, "ogg-opus")
	assert.Contains(t, names, "opus-frames")
}

func TestDecodeFramesRoundTrip(t *testing.T) {
	var framed bytes.Buffer
	_, err := audioengine.EncodeWavToFrames(bytes.NewReader(audiotest.SineWAV(t, 48000, 2, 9600, 440)), &framed)
	require.NoError(t, err)

	s, format, name, err := codec.Default().Decode(codec.NopCloser(bytes.NewReader(framed.Bytes())))
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "opus-frames", name)
	assert.Equal(t, 48000, int(format.SampleRate))
	assert.Equal(t, 2, format.NumChannels)

	pcm, err := codec.ReadPCM(s, 0)
	require.NoError(t, err)
	assert.Equal(t, 9600*2, len(pcm))
	assert.Greater(t, codec.Peak(pcm), 8000)
}

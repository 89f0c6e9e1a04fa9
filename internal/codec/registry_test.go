package codec

import (
	"bytes"
	"testing"

	"pakaudio/internal/audiotest"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want string
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "wav"},
		{"vorbis", append([]byte("OggS"), []byte("\x00\x02........................\x01vorbis")...), "ogg-vorbis"},
		{"id3", []byte("ID3\x04"), "mp3"},
		{"frame sync", []byte{0xFF, 0xFB, 0x90}, "mp3"},
	}
	r := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := r.Sniff(tt.head)
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Name)
		})
	}

	_, ok := r.Sniff([]byte("nothing here"))
	assert.False(t, ok)
	assert.False(t, IsOggVorbis([]byte("OggS....OpusHead")))
	assert.True(t, IsOggOpus([]byte("OggS....OpusHead")))
	assert.True(t, IsOpusFrames([]byte("PKOF")))
}

func TestRegisterReplacesByName(t *testing.T) {
	r := NewRegistry()
	r.Register(Format{Name: "x", Match: func([]byte) bool { return false }})
	r.Register(Format{Name: "x", Match: func([]byte) bool { return true }})
	assert.Equal(t, []string{"x"}, r.Names())
	_, ok := r.Sniff(nil)
	assert.True(t, ok)
}

func TestDecodeWAV(t *testing.T) {
	data := audiotest.ConstantWAV(t, 44100, 2, 441, 0.25)

	s, format, name, err := Default().Decode(NopCloser(bytes.NewReader(data)))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "wav", name)
	assert.Equal(t, beep.SampleRate(44100), format.SampleRate)
	assert.Equal(t, 2, format.NumChannels)

	pcm, err := ReadPCM(s, 0)
	require.NoError(t, err)
	require.Len(t, pcm, 441*2)
	assert.InDelta(t, 0.25*32767, float64(pcm[100]), 2)
}

func TestDecodeWAVFullScale(t *testing.T) {
	for _, level := range []float64{0.5, -0.5, 0.99} {
		data := audiotest.ConstantWAV(t, 48000, 1, 64, level)
		s, format, _, err := Default().Decode(NopCloser(bytes.NewReader(data)))
		require.NoError(t, err)
		assert.Equal(t, 2, format.Precision)

		samples := make([][2]float64, 64)
		n, ok := s.Stream(samples)
		require.True(t, ok)
		require.Equal(t, 64, n)
		assert.InDelta(t, level, samples[10][0], 1e-3)
		assert.InDelta(t, level, samples[10][1], 1e-3)
		require.NoError(t, s.Close())
	}
}

func TestDecodeUnknown(t *testing.T) {
	_, _, _, err := Default().Decode(NopCloser(bytes.NewReader([]byte("garbage garbage"))))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestIdentifyRewinds(t *testing.T) {
	rs := bytes.NewReader(audiotest.ConstantWAV(t, 8000, 1, 10, 0))
	name, err := Default().Identify(rs)
	require.NoError(t, err)
	assert.Equal(t, "wav", name)
	assert.Equal(t, int64(rs.Size()), int64(rs.Len()))
}

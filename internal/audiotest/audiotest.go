// Package audiotest builds small WAV payloads and packs for tests.
package audiotest

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"pakaudio/internal/container"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SineWAV encodes a 16-bit PCM sine tone of frames frames per channel.
func SineWAV(tb testing.TB, sampleRate, channels, frames int, freq float64) []byte {
	tb.Helper()
	return WAV(tb, sampleRate, channels, frames, func(i, ch int) float64 {
		return 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	})
}

// ConstantWAV encodes frames frames of a constant level in [-1, 1].
func ConstantWAV(tb testing.TB, sampleRate, channels, frames int, level float64) []byte {
	tb.Helper()
	return WAV(tb, sampleRate, channels, frames, func(int, int) float64 { return level })
}

// WAV encodes gen(frame, channel) as 16-bit PCM through go-audio/wav.
func WAV(tb testing.TB, sampleRate, channels, frames int, gen func(i, ch int) float64) []byte {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create wav: %v", err)
	}

	data := make([]int, 0, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			data = append(data, int(math.Round(gen(i, ch)*32767)))
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("close wav encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("close wav: %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read wav: %v", err)
	}
	return out
}

// Pack writes payloads into an in-memory pack.
func Pack(tb testing.TB, payloads ...[]byte) []byte {
	tb.Helper()
	w := container.NewWriter()
	for i, p := range payloads {
		if err := w.Add(entryName(i), p); err != nil {
			tb.Fatalf("add entry: %v", err)
		}
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		tb.Fatalf("write pack: %v", err)
	}
	return buf.Bytes()
}

// WritePack writes payloads as a pack file in dir and returns its path.
func WritePack(tb testing.TB, dir, name string, payloads ...[]byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Pack(tb, payloads...), 0o644); err != nil {
		tb.Fatalf("write pack file: %v", err)
	}
	return path
}

func entryName(i int) string {
	return "entry" + string(rune('0'+i%10)) + ".wav"
}

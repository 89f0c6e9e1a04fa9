package codec

import (
	"math"

	"github.com/faiface/beep"
)

// ReadPCM drains s into interleaved stereo int16, stopping after maxFrames
// frames when maxFrames > 0.
func ReadPCM(s beep.Streamer, maxFrames int) ([]int16, error) {
	buf := make([][2]float64, 512)
	var pcm []int16
	frames := 0
	for {
		want := len(buf)
		if maxFrames > 0 && maxFrames-frames < want {
			want = maxFrames - frames
		}
		if want == 0 {
			break
		}
		n, ok := s.Stream(buf[:want])
		for _, sample := range buf[:n] {
			pcm = append(pcm, toInt16(sample[0]), toInt16(sample[1]))
		}
		frames += n
		if !ok {
			break
		}
	}
	return pcm, s.Err()
}

func toInt16(v float64) int16 {
	v = math.Round(v * 32767)
	if v > 32767 {
		return 32767
	} else if v < -32768 {
		return -32768
	}
	return int16(v)
}

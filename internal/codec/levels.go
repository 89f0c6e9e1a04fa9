package codec

import (
	"math"
	"time"

	"github.com/faiface/beep"
	"github.com/mjibson/go-dsp/fft"
)

const (
	// SilenceDB is reported for an entry with no signal at all.
	SilenceDB = -120.0

	// gate is the level below which a frame counts as silence (-60 dBFS).
	gate = 33

	fftFrames = 2048
)

// Levels describes how an entry will sound when it is played out of a pack.
type Levels struct {
	PeakDB float64
	RMSDB  float64
	// Clipped counts samples at full scale.
	Clipped int
	// LeadSilence delays a one-shot after its trigger; TailSilence pads the end.
	LeadSilence time.Duration
	TailSilence time.Duration
	// SeamJump is the largest step between the last and first frame, in
	// [0, 2]. A looping player clicks when it is large.
	SeamJump float64
	// Dominant is the strongest frequency of the loudest window, 0 when the
	// entry is shorter than one window.
	Dominant float64
}

// Peak is the largest absolute sample in pcm.
func Peak(pcm []int16) int {
	peak := 0
	for _, s := range pcm {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

func toDB(v float64) float64 {
	if v <= 0 {
		return SilenceDB
	}
	return math.Max(20*math.Log10(v), SilenceDB)
}

// Measure analyses interleaved stereo pcm sampled at rate.
func Measure(pcm []int16, rate beep.SampleRate) Levels {
	frames := len(pcm) / 2
	l := Levels{PeakDB: SilenceDB, RMSDB: SilenceDB}
	if frames == 0 {
		return l
	}

	var sum float64
	for _, s := range pcm[:frames*2] {
		if s == math.MaxInt16 || s == math.MinInt16 {
			l.Clipped++
		}
		v := float64(s) / 32768
		sum += v * v
	}
	l.PeakDB = toDB(float64(Peak(pcm)) / 32768)
	l.RMSDB = toDB(math.Sqrt(sum / float64(frames*2)))

	loud := func(i int) bool {
		return abs16(pcm[2*i]) > gate || abs16(pcm[2*i+1]) > gate
	}
	first, last := 0, frames-1
	for first < frames && !loud(first) {
		first++
	}
	for last >= 0 && !loud(last) {
		last--
	}
	if first == frames {
		l.LeadSilence = rate.D(frames)
		l.TailSilence = rate.D(frames)
	} else {
		l.LeadSilence = rate.D(first)
		l.TailSilence = rate.D(frames - 1 - last)
	}

	end := 2 * (frames - 1)
	l.SeamJump = math.Max(
		math.Abs(float64(pcm[end])-float64(pcm[0])),
		math.Abs(float64(pcm[end+1])-float64(pcm[1])),
	) / 32768

	l.Dominant = dominant(pcm, frames, rate)
	return l
}

// dominant runs an FFT over the mono mix of the loudest fftFrames window,
// with DC removed.
func dominant(pcm []int16, frames int, rate beep.SampleRate) float64 {
	if frames < fftFrames {
		return 0
	}
	best, bestEnergy := 0, -1.0
	for start := 0; start+fftFrames <= frames; start += fftFrames {
		var e float64
		for i := start; i < start+fftFrames; i++ {
			v := float64(pcm[2*i]) + float64(pcm[2*i+1])
			e += v * v
		}
		if e > bestEnergy {
			best, bestEnergy = start, e
		}
	}
	if bestEnergy == 0 {
		return 0
	}

	window := make([]float64, fftFrames)
	var mean float64
	for i := range window {
		window[i] = (float64(pcm[2*(best+i)]) + float64(pcm[2*(best+i)+1])) / 2
		mean += window[i]
	}
	mean /= fftFrames
	for i := range window {
		hann := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftFrames-1))
		window[i] = hann * (window[i] - mean)
	}
	coeffs := fft.FFTReal(window)

	bin, mag := 0, 0.0
	for k := 1; k <= fftFrames/2; k++ {
		if m := math.Hypot(real(coeffs[k]), imag(coeffs[k])); m > mag {
			bin, mag = k, m
		}
	}
	return float64(bin) * float64(rate) / fftFrames
}

func abs16(s int16) int {
	if s < 0 {
		return -int(s)
	}
	return int(s)
}

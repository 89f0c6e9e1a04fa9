package audioengine

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"pakaudio/pkg/spec"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hraban/opus"
)

type EncoderResult struct {
	Frame []byte
	Error error
}

// opus only accepts these input rates.
var opusRates = map[int]bool{8000: true, 12000: true, 16000: true, 24000: true, 48000: true}

// StreamEncodeWavToOpus reads 16-bit PCM WAV from r and sends one encoded
// 20 ms packet per result. It returns the header describing the packets and
// the duration in seconds. The caller owns and closes resultChan.
func StreamEncodeWavToOpus(r io.ReadSeeker, resultChan chan<- EncoderResult) (FramesHeader, float64, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return FramesHeader{}, 0, fmt.Errorf("not a valid wav file")
	}

	rate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	if !opusRates[rate] {
		return FramesHeader{}, 0, fmt.Errorf("wav rate %d Hz is not an opus rate", rate)
	}
	if channels < 1 || channels > 2 {
		return FramesHeader{}, 0, fmt.Errorf("wav has %d channels, want 1 or 2", channels)
	}
	if dec.BitDepth != 16 {
		return FramesHeader{}, 0, fmt.Errorf("wav is %d-bit, want 16-bit", dec.BitDepth)
	}

	enc, err := opus.NewEncoder(rate, channels, opus.AppAudio)
	if err != nil {
		return FramesHeader{}, 0, err
	}

	frameSize := rate * spec.FrameSize / 1000
	pcmBuf := make([]int16, frameSize*channels)
	opusBuf := make([]byte, 1500)

	// One second of samples per read.
	intBuf := &audio.IntBuffer{
		Data:   make([]int, rate*channels),
		Format: &audio.Format{NumChannels: channels, SampleRate: rate},
	}

	filled := 0
	totalSamples := 0
	flush := func() error {
		for j := filled; j < len(pcmBuf); j++ {
			pcmBuf[j] = 0
		}
		n, err := enc.Encode(pcmBuf, opusBuf)
		if err != nil {
			resultChan <- EncoderResult{Error: err}
			return err
		}
		frame := make([]byte, n)
		copy(frame, opusBuf[:n])
		resultChan <- EncoderResult{Frame: frame}
		filled = 0
		return nil
	}

	for {
		n, err := dec.PCMBuffer(intBuf)
		if err != nil && err != io.EOF {
			return FramesHeader{}, 0, err
		}
		if n == 0 {
			break
		}

		for i := 0; i < n; i++ {
			pcmBuf[filled] = int16(intBuf.Data[i])
			filled++
			if filled == len(pcmBuf) {
				if err := flush(); err != nil {
					return FramesHeader{}, 0, err
				}
			}
		}
		totalSamples += n

		if err == io.EOF {
			break
		}
	}
	if filled > 0 {
		if err := flush(); err != nil {
			return FramesHeader{}, 0, err
		}
	}

	h := FramesHeader{SampleRate: uint32(rate), Channels: uint16(channels), FrameMs: spec.FrameSize}
	duration := float64(totalSamples) / float64(rate) / float64(channels)
	return h, duration, nil
}

// EncodeWavToFrames converts a WAV payload into a framed opus payload on w.
func EncodeWavToFrames(r io.ReadSeeker, w io.Writer) (float64, error) {
	resChan := make(chan EncoderResult, 100)
	var frames [][]byte
	var writeErr error

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for res := range resChan {
			if res.Error != nil {
				writeErr = res.Error
				continue
			}
			frames = append(frames, res.Frame)
		}
	}()

	h, dur, err := StreamEncodeWavToOpus(r, resChan)
	close(resChan)
	wg.Wait()
	if err != nil {
		return 0, err
	}
	if writeErr != nil {
		return 0, writeErr
	}

	bw := bufio.NewWriter(w)
	if err := WriteFramesHeader(bw, h); err != nil {
		return 0, err
	}
	for _, f := range frames {
		if err := WritePacket(bw, f); err != nil {
			return 0, err
		}
	}
	return dur, bw.Flush()
}

package audio

import (
	"github.com/faiface/beep"
)

const resampleQuality = 3

// monoStreamer feeds mono PCM16 samples to beep as a stereo stream.
type monoStreamer struct {
	data []int16
	pos  int
}

func (s *monoStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	for i := range samples {
		if s.pos >= len(s.data) {
			return i, true
		}
		val := float64(s.data[s.pos]) / 32768.0
		samples[i][0] = val
		samples[i][1] = val
		s.pos++
	}
	return len(samples), true
}

func (s *monoStreamer) Err() error { return nil }

// ResamplePCM converts mono PCM16LE audio between sample rates. Equal rates
// return the input unchanged.
func ResamplePCM(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || len(pcm) < 2 {
		return pcm
	}

	src := &monoStreamer{data: Samples(pcm)}
	resampler := beep.Resample(resampleQuality, beep.SampleRate(fromRate), beep.SampleRate(toRate), src)

	out := make([]int16, 0, len(src.data)*toRate/fromRate+1)
	buf := make([][2]float64, 512)
	for {
		n, ok := resampler.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, toInt16((buf[i][0]+buf[i][1])/2))
		}
		if !ok {
			break
		}
	}
	return PCM(out)
}

func toInt16(v float64) int16 {
	switch {
	case v >= 1:
		return 32767
	case v <= -1:
		return -32768
	default:
		return int16(v * 32767)
	}
}

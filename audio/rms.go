package audio

import "math"

// RMS is the root mean square amplitude of a PCM16LE chunk, on the int16
// scale (0 to 32768).
func RMS(pcm []byte) float64 {
	samples := Samples(pcm)
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

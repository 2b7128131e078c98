package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Format describes interleaved little-endian PCM.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

var (
	// CaptureFormat is what microphones are opened with.
	CaptureFormat = Format{SampleRate: 16_000, Channels: 1, BitsPerSample: 16}
	// RealtimeFormat is pcm16 as exchanged with the realtime service.
	RealtimeFormat = Format{SampleRate: 24_000, Channels: 1, BitsPerSample: 16}
)

func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitsPerSample / 8
}

// FrameDuration returns the duration of n frames.
func (f Format) FrameDuration(frames int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Duration returns the play time of n bytes.
func (f Format) Duration(n int) time.Duration {
	return f.FrameDuration(n / f.BytesPerFrame())
}

func (f Format) ChunkSize(d time.Duration) int {
	return getChunkSize(f.SampleRate, d, f.BitsPerSample/8, f.Channels)
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitsPerSample)
}

func (f Format) validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("invalid format %s", f)
	}
	if f.BitsPerSample != 16 {
		return fmt.Errorf("unsupported sample size %d", f.BitsPerSample)
	}
	return nil
}

// Samples decodes PCM16LE bytes. A trailing odd byte is ignored.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// PCM encodes samples as PCM16LE.
func PCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

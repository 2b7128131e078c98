package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/youpy/go-wav"
)

// EncodeWAV writes pcm as a PCM WAV file. Formats with more than two
// channels are not supported.
func EncodeWAV(w io.Writer, pcm []byte, f Format) error {
	if err := f.validate(); err != nil {
		return err
	}
	if f.Channels > 2 {
		return fmt.Errorf("wav: %d channels not supported", f.Channels)
	}

	samples := Samples(pcm)
	frames := len(samples) / f.Channels

	out := make([]wav.Sample, frames)
	for i := range out {
		for c := 0; c < f.Channels; c++ {
			out[i].Values[c] = int(samples[i*f.Channels+c])
		}
	}

	writer := wav.NewWriter(w, uint32(frames), uint16(f.Channels), uint32(f.SampleRate), uint16(f.BitsPerSample))
	return writer.WriteSamples(out)
}

// DecodeWAV reads the PCM payload and format of a WAV file.
func DecodeWAV(data []byte) ([]byte, Format, error) {
	r := wav.NewReader(bytes.NewReader(data))
	wf, err := r.Format()
	if err != nil {
		return nil, Format{}, fmt.Errorf("wav: read format: %w", err)
	}
	pcm, err := io.ReadAll(r)
	if err != nil {
		return nil, Format{}, fmt.Errorf("wav: read data: %w", err)
	}
	return pcm, Format{
		SampleRate:    int(wf.SampleRate),
		Channels:      int(wf.NumChannels),
		BitsPerSample: int(wf.BitsPerSample),
	}, nil
}

// SaveWAV writes pcm to a new uniquely named file in dir and returns its path.
func SaveWAV(dir string, pcm []byte, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+".wav")

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := EncodeWAV(file, pcm, f); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

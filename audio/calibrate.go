package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

// Calibrator measures ambient noise to derive a silence threshold.
type Calibrator struct {
	backend Backend
	config  CaptureConfig
}

func NewCalibrator(b Backend, config CaptureConfig) *Calibrator {
	return &Calibrator{backend: b, config: config.withDefaults()}
}

// Calibrate reads d worth of audio, at least one chunk, and returns the mean
// RMS of the chunks read.
func (c *Calibrator) Calibrate(ctx context.Context, d time.Duration) (float64, error) {
	cfg := c.config
	stream, dev, err := open(c.backend, cfg)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	chunkDur := cfg.Format.FrameDuration(cfg.ChunkFrames)
	chunks := max(1, int((d+chunkDur-1)/chunkDur))

	var (
		sum  float64
		read int
		buf  = make([]byte, cfg.chunkBytes())
	)
	for i := 0; i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := io.ReadFull(stream, buf)
		if n > 0 {
			sum += RMS(buf[:n])
			read++
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, &DeviceError{Op: "read", Device: dev.Name, Err: err}
		}
	}

	if read == 0 {
		return 0, &DeviceError{Op: "read", Device: dev.Name, Err: io.ErrUnexpectedEOF}
	}

	avg := sum / float64(read)
	cfg.Logger.Debug("calibrated",
		slog.String("device", dev.Name),
		slog.Int("chunks", read),
		slog.Float64("rms", avg),
	)
	return avg, nil
}

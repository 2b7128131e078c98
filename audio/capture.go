package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
)

const DefaultChunkFrames = 1024

type CaptureConfig struct {
	Format      Format
	ChunkFrames int
	Selector    Selector
	// Threshold is the RMS below which a chunk counts as silence.
	Threshold float64
	// SilenceDuration is how long silence must last to end a capture.
	SilenceDuration time.Duration
	// MaxDuration caps a capture. Zero means no cap.
	MaxDuration time.Duration
	Logger      *slog.Logger
}

func (c CaptureConfig) withDefaults() CaptureConfig {
	if c.Format == (Format{}) {
		c.Format = CaptureFormat
	}
	if c.ChunkFrames <= 0 {
		c.ChunkFrames = DefaultChunkFrames
	}
	if c.SilenceDuration <= 0 {
		c.SilenceDuration = 1500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// chunkBytes is the size of one chunk read from the device.
func (c CaptureConfig) chunkBytes() int {
	return c.ChunkFrames * c.Format.BytesPerFrame()
}

// open selects and opens the input device.
func open(b Backend, c CaptureConfig) (io.ReadCloser, DeviceInfo, error) {
	if err := c.Format.validate(); err != nil {
		return nil, DeviceInfo{}, &DeviceError{Op: "open", Err: err}
	}
	dev, err := selectInput(b, c.Selector)
	if err != nil {
		return nil, DeviceInfo{}, err
	}
	stream, err := b.OpenInput(dev, c.Format, c.ChunkFrames)
	if err != nil {
		return nil, dev, &DeviceError{Op: "open", Device: dev.Name, Err: err}
	}
	return stream, dev, nil
}

// Listener records one utterance at a time, ending each capture after a
// stretch of silence.
type Listener struct {
	backend Backend
	config  CaptureConfig
}

func NewListener(b Backend, config CaptureConfig) *Listener {
	return &Listener{backend: b, config: config.withDefaults()}
}

func (l *Listener) SetThreshold(threshold float64) {
	l.config.Threshold = threshold
}

func (l *Listener) Config() CaptureConfig { return l.config }

// Listen captures audio until the silence after speech exceeds
// SilenceDuration, MaxDuration is reached, the input ends or ctx is done. It
// returns the recorded PCM. The device is released before Listen returns.
//
// Time is measured in captured audio: a quiet stretch starts at the beginning
// of its first quiet chunk.
func (l *Listener) Listen(ctx context.Context) ([]byte, error) {
	cfg := l.config
	stream, dev, err := open(l.backend, cfg)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	logger := cfg.Logger.With(slog.String("device", dev.Name))
	logger.Debug("listening",
		slog.Float64("threshold", cfg.Threshold),
		slog.Duration("silence", cfg.SilenceDuration),
	)

	var (
		frames       [][]byte
		captured     int
		silenceStart = -1
		chunk        = make([]byte, cfg.chunkBytes())
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := io.ReadFull(stream, chunk)
		if n > 0 {
			frames = append(frames, bytes.Clone(chunk[:n]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				logger.Debug("input ended")
				break
			}
			return nil, &DeviceError{Op: "read", Device: dev.Name, Err: err}
		}

		start := captured
		captured += n / cfg.Format.BytesPerFrame()

		if RMS(chunk[:n]) < cfg.Threshold {
			if silenceStart < 0 {
				silenceStart = start
			} else if cfg.Format.FrameDuration(captured-silenceStart) > cfg.SilenceDuration {
				break
			}
		} else {
			silenceStart = -1
		}

		if cfg.MaxDuration > 0 && cfg.Format.FrameDuration(captured) >= cfg.MaxDuration {
			logger.Warn("capture reached max duration", slog.Duration("max", cfg.MaxDuration))
			break
		}
	}

	pcm := bytes.Join(frames, nil)

	logger.Debug("capture finished",
		slog.Int("chunks", len(pcm)/cfg.chunkBytes()),
		slog.Duration("duration", cfg.Format.FrameDuration(captured)),
	)

	return pcm, nil
}

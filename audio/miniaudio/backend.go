// Package miniaudio implements audio.Backend on the system's audio devices
// through malgo.
package miniaudio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/codewandler/voicert-go/audio"
	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"
)

// captureBuffer holds this much audio between the device callback and the
// reader.
const captureBuffer = 10 * time.Second

const playbackBuffer = 2 * time.Second

type Backend struct {
	ctx    *malgo.AllocatedContext
	logger *slog.Logger
}

func New(logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Backend{ctx: ctx, logger: logger}, nil
}

func (b *Backend) Close() error {
	if b.ctx == nil {
		return nil
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	return err
}

func (b *Backend) devices(kind malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	if b.ctx == nil {
		return nil, io.ErrClosedPipe
	}
	return b.ctx.Devices(kind)
}

func (b *Backend) InputDevices() ([]audio.DeviceInfo, error) {
	infos, err := b.devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	out := make([]audio.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, audio.DeviceInfo{
			ID:        info.ID.String(),
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return out, nil
}

func (b *Backend) OutputDevices() ([]audio.DeviceInfo, error) {
	infos, err := b.devices(malgo.Playback)
	if err != nil {
		return nil, err
	}
	out := make([]audio.DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, audio.DeviceInfo{
			ID:        info.ID.String(),
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return out, nil
}

func (b *Backend) lookup(kind malgo.DeviceType, id string) (*malgo.DeviceID, error) {
	infos, err := b.devices(kind)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.ID.String() == id {
			devID := info.ID
			return &devID, nil
		}
	}
	return nil, fmt.Errorf("device %s not found", id)
}

func (b *Backend) OpenInput(dev audio.DeviceInfo, f audio.Format, framesPerChunk int) (io.ReadCloser, error) {
	id, err := b.lookup(malgo.Capture, dev.ID)
	if err != nil {
		return nil, err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(f.Channels)
	cfg.Capture.DeviceID = id.Pointer()
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.PeriodSizeInFrames = uint32(framesPerChunk)
	cfg.Alsa.NoMMap = 1

	rb := ringbuffer.New(f.ChunkSize(captureBuffer)).SetBlocking(true)
	logger := b.logger.With(slog.String("device", dev.Name))

	device, err := malgo.InitDevice(b.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			if _, err := rb.TryWrite(samples); err != nil {
				logger.Warn("capture overflow", slog.Any("err", err))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start capture device: %w", err)
	}

	return &input{
		FixedChunkReader: audio.NewFixedChunkReader(rb, framesPerChunk*f.BytesPerFrame()),
		device:           device,
		rb:               rb,
	}, nil
}

type input struct {
	*audio.FixedChunkReader
	device *malgo.Device
	rb     *ringbuffer.RingBuffer
	once   sync.Once
}

func (in *input) Close() error {
	var err error
	in.once.Do(func() {
		err = in.device.Stop()
		in.device.Uninit()
		in.rb.CloseWriter()
	})
	return err
}

func (b *Backend) OpenOutput(f audio.Format) (io.WriteCloser, error) {
	if b.ctx == nil {
		return nil, io.ErrClosedPipe
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(f.Channels)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.Alsa.NoMMap = 1

	rb := ringbuffer.New(f.ChunkSize(playbackBuffer)).SetBlocking(true)

	device, err := malgo.InitDevice(b.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			n, _ := rb.TryRead(output)
			clear(output[n:])
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start playback device: %w", err)
	}

	return &output{device: device, rb: rb, format: f}, nil
}

type output struct {
	device *malgo.Device
	rb     *ringbuffer.RingBuffer
	format audio.Format
	once   sync.Once
}

// Write blocks while the playback buffer is full.
func (o *output) Write(p []byte) (int, error) {
	return o.rb.Write(p)
}

// Close lets buffered audio finish playing, then releases the device.
func (o *output) Close() error {
	var err error
	o.once.Do(func() {
		deadline := time.Now().Add(o.format.Duration(o.rb.Length()) + 200*time.Millisecond)
		for !o.rb.IsEmpty() && time.Now().Before(deadline) {
			time.Sleep(20 * time.Millisecond)
		}
		o.rb.CloseWriter()
		err = o.device.Stop()
		o.device.Uninit()
	})
	return err
}

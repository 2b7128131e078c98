package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrPlayerClosed = errors.New("player closed")

// Player writes PCM chunks to an output device in the order given. Chunks
// are resampled when the device runs at a different rate than the source.
type Player struct {
	mu         sync.Mutex
	out        io.WriteCloser
	source     Format
	deviceRate int
	closed     bool
}

// OpenPlayer opens the output device. A deviceRate of zero uses the source
// rate.
func OpenPlayer(b Backend, source Format, deviceRate int) (*Player, error) {
	if err := source.validate(); err != nil {
		return nil, &DeviceError{Op: "open output", Err: err}
	}
	if source.Channels != 1 && deviceRate != 0 && deviceRate != source.SampleRate {
		return nil, &DeviceError{Op: "open output", Err: fmt.Errorf("resampling needs mono audio, got %d channels", source.Channels)}
	}
	if deviceRate == 0 {
		deviceRate = source.SampleRate
	}

	device := source
	device.SampleRate = deviceRate

	out, err := b.OpenOutput(device)
	if err != nil {
		return nil, &DeviceError{Op: "open output", Err: err}
	}
	return &Player{out: out, source: source, deviceRate: deviceRate}, nil
}

// Write blocks until the device has taken the chunk.
func (p *Player) Write(chunk []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if len(chunk) == 0 {
		return nil
	}

	data := ResamplePCM(chunk, p.source.SampleRate, p.deviceRate)
	if _, err := p.out.Write(data); err != nil {
		return &DeviceError{Op: "write", Err: err}
	}
	return nil
}

// Close stops playback and releases the device. Later calls return nil.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.out.Close(); err != nil {
		return &DeviceError{Op: "close", Err: err}
	}
	return nil
}

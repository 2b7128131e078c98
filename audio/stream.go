package audio

import (
	"errors"
	"io"
	"sync"
)

// StreamBackend serves audio from an io.Reader and plays into an io.Writer.
// It stands in for real devices when audio comes from files or pipes.
type StreamBackend struct {
	Input  io.Reader
	Output io.Writer
	// Devices are reported as input devices. When empty a single device
	// named "stream" is reported if Input is set.
	Devices []DeviceInfo

	mu   sync.Mutex
	open int
}

func (s *StreamBackend) InputDevices() ([]DeviceInfo, error) {
	if len(s.Devices) > 0 {
		return s.Devices, nil
	}
	if s.Input == nil {
		return nil, nil
	}
	return []DeviceInfo{{ID: "stream", Name: "stream", IsDefault: true}}, nil
}

func (s *StreamBackend) OpenInput(_ DeviceInfo, f Format, framesPerChunk int) (io.ReadCloser, error) {
	if s.Input == nil {
		return nil, errors.New("no input stream")
	}
	s.track(1)
	return &streamHandle{
		Reader:  NewFixedChunkReader(s.Input, framesPerChunk*f.BytesPerFrame()),
		release: func() { s.track(-1) },
	}, nil
}

func (s *StreamBackend) OpenOutput(Format) (io.WriteCloser, error) {
	if s.Output == nil {
		return nil, errors.New("no output stream")
	}
	s.track(1)
	return &streamHandle{
		Writer:  s.Output,
		release: func() { s.track(-1) },
	}, nil
}

// Open returns the number of streams opened and not yet closed.
func (s *StreamBackend) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *StreamBackend) track(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open += delta
}

type streamHandle struct {
	io.Reader
	io.Writer
	once    sync.Once
	release func()
}

func (h *streamHandle) Close() error {
	h.once.Do(h.release)
	return nil
}

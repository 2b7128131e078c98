package audio

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNoInputDevice = errors.New("no input device available")
	// ErrDeviceSelectionRequired is returned when several input devices exist
	// and no Selector was configured.
	ErrDeviceSelectionRequired = errors.New("multiple input devices, selection required")
)

// DeviceError reports a missing or failing audio device.
type DeviceError struct {
	Op     string
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("audio %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("audio %s %q: %v", e.Op, e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

type DeviceInfo struct {
	ID        string
	Name      string
	IsDefault bool
}

// Backend gives access to the platform's audio devices.
type Backend interface {
	InputDevices() ([]DeviceInfo, error)
	// OpenInput starts capturing from dev. Reads block until audio is
	// available.
	OpenInput(dev DeviceInfo, f Format, framesPerChunk int) (io.ReadCloser, error)
	// OpenOutput opens the default output device. Writes block until the
	// device has accepted the audio.
	OpenOutput(f Format) (io.WriteCloser, error)
}

// Selector picks one of several input devices.
type Selector func(devices []DeviceInfo) (DeviceInfo, error)

// SelectByName picks the first device whose name contains name, ignoring case.
func SelectByName(name string) Selector {
	return func(devices []DeviceInfo) (DeviceInfo, error) {
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
				return d, nil
			}
		}
		return DeviceInfo{}, fmt.Errorf("no input device matching %q", name)
	}
}

// SelectDefault picks the device the system marks as default.
func SelectDefault(devices []DeviceInfo) (DeviceInfo, error) {
	for _, d := range devices {
		if d.IsDefault {
			return d, nil
		}
	}
	return DeviceInfo{}, errors.New("no default input device")
}

func selectInput(b Backend, sel Selector) (DeviceInfo, error) {
	devices, err := b.InputDevices()
	if err != nil {
		return DeviceInfo{}, &DeviceError{Op: "enumerate", Err: err}
	}

	switch {
	case len(devices) == 0:
		return DeviceInfo{}, &DeviceError{Op: "select", Err: ErrNoInputDevice}
	case len(devices) == 1:
		return devices[0], nil
	case sel == nil:
		return DeviceInfo{}, &DeviceError{Op: "select", Err: ErrDeviceSelectionRequired}
	}

	dev, err := sel(devices)
	if err != nil {
		return DeviceInfo{}, &DeviceError{Op: "select", Err: err}
	}
	return dev, nil
}

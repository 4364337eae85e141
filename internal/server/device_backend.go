package server

import (
	"context"

	"github.com/bsaravanan-aesd/aesdsocket/internal/device"
)

// DeviceBackend adapts internal/device.Device to the Backend interface.
// Per spec.md §9's Open Questions, it deliberately omits any server-level
// mutex around the echo path: the device already serializes internally.
type DeviceBackend struct {
	dev *device.Device
	h   *device.Handle
}

// NewDeviceBackend opens a single shared handle against dev for the
// lifetime of the server, mirroring a long-lived open file descriptor on
// /dev/aesdchar.
func NewDeviceBackend(dev *device.Device) (*DeviceBackend, error) {
	h, err := dev.Open()
	if err != nil {
		return nil, err
	}
	return &DeviceBackend{dev: dev, h: h}, nil
}

func (b *DeviceBackend) Append(ctx context.Context, packet []byte) error {
	_, err := b.dev.Write(ctx, b.h, packet)
	return err
}

func (b *DeviceBackend) Snapshot(ctx context.Context) ([]byte, error) {
	return b.dev.Snapshot(), nil
}

func (b *DeviceBackend) SeekTo(ctx context.Context, cmdIndex, byteOffset uint32) error {
	return b.dev.SeekTo(ctx, b.h, cmdIndex, byteOffset)
}

func (b *DeviceBackend) SupportsSeekTo() bool { return true }

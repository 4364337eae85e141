// Package device emulates the character-device contract spec.md assigns
// to "/dev/aesdchar": open/read/write/seek/ioctl over the circular
// command store, with a single-writer critical section guarded by an
// interruptible mutex.
package device

import (
	"context"
	"io"

	"github.com/bsaravanan-aesd/aesdsocket/internal/acerr"
	"github.com/bsaravanan-aesd/aesdsocket/internal/logging"
	"github.com/bsaravanan-aesd/aesdsocket/internal/reassembly"
	"github.com/bsaravanan-aesd/aesdsocket/internal/store"
	"github.com/bsaravanan-aesd/aesdsocket/internal/xsync"
)

// Whence mirrors io.Seeker's whence values; kept as named constants so
// callers don't need to import "io" just to seek.
const (
	SeekStart   = io.SeekStart
	SeekCurrent = io.SeekCurrent
	SeekEnd     = io.SeekEnd
)

// Device is the emulated character device. One Device instance backs
// every Handle opened against it — there is no per-open state beyond the
// association, matching spec.md §4.C.
type Device struct {
	ring   *store.Ring
	acc    reassembly.Buffer
	mu     xsync.InterruptibleMutex
	logger *logging.Logger
}

// New creates a device backed by a fresh, empty ring.
func New(logger *logging.Logger) *Device {
	if logger == nil {
		logger = logging.Default()
	}
	return &Device{
		ring:   store.NewRing(),
		logger: logger.WithTag("aesdchar"),
	}
}

// Handle is a per-open file position, analogous to a struct file's
// f_pos.
type Handle struct {
	pos int64
}

// Open binds a new handle to the device at position 0.
func (d *Device) Open() (*Handle, error) {
	return &Handle{}, nil
}

// Release is a no-op binding teardown, matching spec.md's "trivial
// binding" contract for open/release.
func (d *Device) Release(h *Handle) error {
	return nil
}

// Write appends bytes to the device's reassembly buffer and commits any
// packets completed by this call into the ring, evicting the oldest
// entry on overflow. On success it returns len(p) and advances h.pos by
// that amount — an explicit, spec-mandated deviation from typical
// log-structured device semantics: write position tracks bytes
// consumed, not any notion of "where the data landed".
func (d *Device) Write(ctx context.Context, h *Handle, p []byte) (int, error) {
	if err := d.mu.Lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	packets := d.acc.Ingest(p)
	for _, pkt := range packets {
		d.ring.Append(pkt)
	}

	h.pos += int64(len(p))
	return len(p), nil
}

// Read copies up to len(out) bytes from h.pos into out. A single read
// never spans two committed entries — the caller re-reads to continue,
// matching spec.md §4.C.
func (d *Device) Read(ctx context.Context, h *Handle, out []byte) (int, error) {
	if err := d.mu.Lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	if len(out) == 0 {
		return 0, nil
	}

	entry, residual, ok := d.ring.FindForOffset(h.pos)
	if !ok {
		return 0, nil // EOF
	}

	available := int64(entry.Len()) - residual
	n := int64(len(out))
	if n > available {
		n = available
	}
	copy(out, entry.Bytes()[residual:residual+n])
	h.pos += n
	return int(n), nil
}

// Seek repositions h.pos using standard three-mode semantics, with "end"
// resolved to the ring's total size at the moment of the call.
func (d *Device) Seek(ctx context.Context, h *Handle, offset int64, whence int) (int64, error) {
	if err := d.mu.Lock(ctx); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()

	var base int64
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = h.pos
	case SeekEnd:
		base = d.ring.TotalSize()
	default:
		return 0, acerr.New("device.Seek", acerr.KindInvalid, "unknown whence")
	}

	newPos := base + offset
	if newPos < 0 {
		return 0, acerr.New("device.Seek", acerr.KindInvalid, "negative resulting offset")
	}
	h.pos = newPos
	return newPos, nil
}

// SeekTo implements the AESDCHAR_IOCSEEKTO ioctl: position h to the start
// of command cmdIndex plus byteOffset bytes. On failure the handle is
// left unmodified.
func (d *Device) SeekTo(ctx context.Context, h *Handle, cmdIndex, byteOffset uint32) error {
	if err := d.mu.Lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()

	pos, err := d.ring.AbsoluteOffset(cmdIndex, byteOffset)
	if err != nil {
		return err
	}
	h.pos = pos
	return nil
}

// Control handles any ioctl op code this device doesn't recognize beyond
// SeekTo; it always returns acerr.KindNotTty, matching spec.md's
// "unknown ioctl codes return NotTty" contract. It exists so device-layer
// tests can exercise that path without inventing a separate numeric
// multiplexer for a software-emulated device.
func (d *Device) Control(op uint32, payload []byte) error {
	return acerr.New("device.Control", acerr.KindNotTty, "unrecognized ioctl code")
}

// Snapshot returns the concatenation of all currently valid entries, for
// use by the TCP server's device-backed echo path.
func (d *Device) Snapshot() []byte {
	return d.ring.Snapshot()
}

// TotalSize returns the current linear address-space size.
func (d *Device) TotalSize() int64 {
	return d.ring.TotalSize()
}

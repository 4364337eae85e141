package server

import (
	"context"
	"os"

	"github.com/bsaravanan-aesd/aesdsocket/internal/acerr"
	"github.com/bsaravanan-aesd/aesdsocket/internal/xsync"
)

// FileBackend persists packets to a flat file. Append and Snapshot each
// hold a shared mutex for the whole call, so a reader never observes the
// file mid-write. The mutex is not held from an Append through the
// Snapshot that follows it: another worker's packet can be appended
// between one worker's append and its echo. It opens the file fresh for each append and each snapshot so file
// descriptor ownership stays local to the call, matching spec.md §5.
type FileBackend struct {
	path string
	mu   xsync.InterruptibleMutex
}

// NewFileBackend returns a backend writing to path, created on demand
// with mode 0644.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Append(ctx context.Context, packet []byte) error {
	if err := b.mu.Lock(ctx); err != nil {
		return err
	}
	defer b.mu.Unlock()

	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return acerr.Wrap("file_backend.Append", err)
	}
	defer f.Close()

	if _, err := f.Write(packet); err != nil {
		return acerr.Wrap("file_backend.Append", err)
	}
	if err := f.Sync(); err != nil {
		return acerr.Wrap("file_backend.Append", err)
	}
	return nil
}

func (b *FileBackend) Snapshot(ctx context.Context) ([]byte, error) {
	if err := b.mu.Lock(ctx); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, acerr.Wrap("file_backend.Snapshot", err)
	}
	return data, nil
}

// SeekTo is not supported in file mode: the inline control packet is
// stored like any other packet instead.
func (b *FileBackend) SeekTo(ctx context.Context, cmdIndex, byteOffset uint32) error {
	return acerr.New("file_backend.SeekTo", acerr.KindNotTty, "file-mode backend has no seek control")
}

func (b *FileBackend) SupportsSeekTo() bool { return false }

// Close unlinks the backing file, ignoring "not present", matching
// spec.md's shutdown contract.
func (b *FileBackend) Close() error {
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return acerr.Wrap("file_backend.Close", err)
	}
	return nil
}

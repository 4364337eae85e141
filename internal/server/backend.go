package server

import "context"

// Backend is the storage abstraction a connection worker appends packets
// to and echoes from. File mode and device mode each implement it, with
// the mutex-acquisition difference spelled out in SPEC_FULL.md §9
// preserved rather than unified.
type Backend interface {
	// Append commits a whole packet (newline included) to the backing
	// store.
	Append(ctx context.Context, packet []byte) error

	// Snapshot returns the entire current backing-store contents, the
	// server's "echo" payload.
	Snapshot(ctx context.Context) ([]byte, error)

	// SeekTo services the inline AESDCHAR_IOCSEEKTO control command. It
	// is only meaningful in device mode; file-mode backends return
	// acerr.KindNotTty. The worker does not call it on a backend whose
	// SupportsSeekTo reports false.
	SeekTo(ctx context.Context, cmdIndex, byteOffset uint32) error

	// SupportsSeekTo reports whether this backend interprets the inline
	// seek control command at all. File-mode backends store it like any
	// other packet instead.
	SupportsSeekTo() bool
}

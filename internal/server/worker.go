package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/bsaravanan-aesd/aesdsocket/internal/logging"
	"github.com/bsaravanan-aesd/aesdsocket/internal/reassembly"
	"github.com/bsaravanan-aesd/aesdsocket/internal/telemetry"
)

// seekCmdPrefix is the exact, length-checked prefix the inline control
// command must match; malformed variants are silently ignored, never
// reported as a protocol error (there is no error frame), per spec.md §9.
const seekCmdPrefix = "AESDCHAR_IOCSEEKTO:"

// worker owns one accepted connection: its own reassembly buffer and a
// reference to the shared backend.
type worker struct {
	conn     net.Conn
	acc      reassembly.Buffer
	backend  Backend
	logger   *logging.Logger
	observer telemetry.Observer
}

func newWorker(conn net.Conn, backend Backend, logger *logging.Logger, observer telemetry.Observer) *worker {
	return &worker{conn: conn, backend: backend, logger: logger, observer: observer}
}

func peerIP(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func (w *worker) run(ctx context.Context) {
	peer := peerIP(w.conn)
	w.logger.Info("Accepted connection from", "peer", peer)
	w.observer.ConnAccepted()

	defer func() {
		w.conn.Close()
		w.logger.Info("Closed connection from", "peer", peer)
		w.observer.ConnClosed()
	}()

	buf := make([]byte, RxChunk)
	for {
		n, err := w.conn.Read(buf)
		if n > 0 {
			for _, packet := range w.acc.Ingest(buf[:n]) {
				if !w.handlePacket(ctx, packet) {
					return
				}
			}
		}
		if err != nil {
			// A connection close or any other transport error ends the
			// worker; there is no retry-on-interrupt distinction to make
			// at this layer since net.Conn.Read doesn't surface EINTR.
			return
		}
	}
}

// handlePacket processes one whole packet (newline included) and returns
// false if the connection should be torn down.
func (w *worker) handlePacket(ctx context.Context, packet []byte) bool {
	if w.backend.SupportsSeekTo() {
		if cmdIndex, byteOffset, ok := parseSeekCommand(packet); ok {
			// A failed SeekTo (out-of-range index/offset) is not
			// reported to the client — there is no error frame in this
			// protocol. A packet with the prefix that does not parse is
			// not a control command and is stored like any other below.
			_ = w.backend.SeekTo(ctx, cmdIndex, byteOffset)
			return w.echo(ctx)
		}
	}

	if err := w.backend.Append(ctx, packet); err != nil {
		return false
	}
	w.observer.PacketStored(len(packet))
	return w.echo(ctx)
}

func (w *worker) echo(ctx context.Context) bool {
	data, err := w.backend.Snapshot(ctx)
	if err != nil {
		return false
	}
	if _, err := w.conn.Write(data); err != nil {
		return false
	}
	w.observer.BytesEchoed(len(data))
	return true
}

// parseSeekCommand reports whether packet is an exact
// "AESDCHAR_IOCSEEKTO:<u32>,<u32>\n" control command, and if so returns
// the parsed indices.
func parseSeekCommand(packet []byte) (cmdIndex, byteOffset uint32, ok bool) {
	if len(packet) <= len(seekCmdPrefix) || string(packet[:len(seekCmdPrefix)]) != seekCmdPrefix {
		return 0, 0, false
	}
	body := strings.TrimSuffix(string(packet[len(seekCmdPrefix):]), "\n")
	parts := strings.SplitN(body, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	a, err1 := strconv.ParseUint(parts[0], 10, 32)
	b, err2 := strconv.ParseUint(parts[1], 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uint32(a), uint32(b), true
}

// FormatSeekCommand builds the wire form of a seek control packet, used
// by tests and any client-side tooling.
func FormatSeekCommand(cmdIndex, byteOffset uint32) string {
	return fmt.Sprintf("%s%d,%d\n", seekCmdPrefix, cmdIndex, byteOffset)
}

// Package reassembly turns a stream of arbitrarily fragmented byte chunks
// into whole newline-terminated packets.
package reassembly

import "bytes"

// Buffer accumulates bytes received since the last newline. The zero
// value is ready to use.
type Buffer struct {
	acc []byte
}

// Ingest appends chunk to the internal accumulator and extracts every
// complete packet now available, in order. A packet's bytes include the
// terminating newline. After Ingest returns, the internal accumulator
// holds no newline.
func (b *Buffer) Ingest(chunk []byte) [][]byte {
	b.acc = append(b.acc, chunk...)

	var packets [][]byte
	for {
		k := bytes.IndexByte(b.acc, '\n')
		if k < 0 {
			break
		}
		packet := make([]byte, k+1)
		copy(packet, b.acc[:k+1])
		packets = append(packets, packet)
		b.acc = b.acc[k+1:]
	}
	return packets
}

// Drain discards and returns any leftover partial bytes, resetting the
// buffer. Leftover bytes are never committed as a packet.
func (b *Buffer) Drain() []byte {
	leftover := b.acc
	b.acc = nil
	return leftover
}

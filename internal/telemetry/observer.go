// Package telemetry provides an optional, no-op-by-default observer for
// accept/close and packet-accounting events, in the teacher's
// Observer/Metrics idiom.
package telemetry

import "sync/atomic"

// Observer receives accumulator lifecycle events. Implementations must be
// safe for concurrent use: methods are called from every connection
// worker goroutine.
type Observer interface {
	ConnAccepted()
	ConnClosed()
	PacketStored(bytes int)
	BytesEchoed(bytes int)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ConnAccepted()    {}
func (NoOpObserver) ConnClosed()      {}
func (NoOpObserver) PacketStored(int) {}
func (NoOpObserver) BytesEchoed(int)  {}

// Metrics is an atomic-counter Observer implementation for servers that
// want basic operational visibility without a full metrics pipeline.
type Metrics struct {
	ConnsAccepted atomic.Uint64
	ConnsClosed   atomic.Uint64
	PacketsStored atomic.Uint64
	BytesStored   atomic.Uint64
	BytesEchoedTo atomic.Uint64
}

// NewMetrics returns a zero-valued Metrics observer.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) ConnAccepted() { m.ConnsAccepted.Add(1) }
func (m *Metrics) ConnClosed()   { m.ConnsClosed.Add(1) }

func (m *Metrics) PacketStored(bytes int) {
	m.PacketsStored.Add(1)
	m.BytesStored.Add(uint64(bytes))
}

func (m *Metrics) BytesEchoed(bytes int) {
	m.BytesEchoedTo.Add(uint64(bytes))
}

// Snapshot is a point-in-time copy of the counters, safe to log or
// serialize.
type Snapshot struct {
	ConnsAccepted uint64
	ConnsClosed   uint64
	PacketsStored uint64
	BytesStored   uint64
	BytesEchoed   uint64
}

// Snapshot returns a copy of the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ConnsAccepted: m.ConnsAccepted.Load(),
		ConnsClosed:   m.ConnsClosed.Load(),
		PacketsStored: m.PacketsStored.Load(),
		BytesStored:   m.BytesStored.Load(),
		BytesEchoed:   m.BytesEchoedTo.Load(),
	}
}

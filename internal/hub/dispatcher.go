package hub

import (
	"log"

	"realtime-editor/internal/frame"
	"realtime-editor/internal/metrics"
)

// Dispatcher encodes server events once and delivers them through the registry.
// A failed send drops that peer and never aborts delivery to the others.
type Dispatcher struct {
	registry *Registry
	metrics  *metrics.Metrics
}

// NewDispatcher creates a dispatcher over registry. m may be nil.
func NewDispatcher(registry *Registry, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{registry: registry, metrics: m}
}

// Registry returns the underlying registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Broadcast sends event to every live session except the excluded one (nil excludes none).
// It returns the number of successful deliveries.
func (d *Dispatcher) Broadcast(event any, except *Session, blobs ...[]byte) int {
	data, err := frame.Encode(event, blobs...)
	if err != nil {
		log.Printf("[Hub] Failed to encode broadcast: %v", err)
		return 0
	}

	delivered := 0
	d.registry.ForEachLive(func(s *Session) error {
		if s == except {
			return nil
		}
		if err := s.Send(data); err != nil {
			d.metrics.BroadcastFailed()
			return err
		}
		delivered++
		return nil
	})
	return delivered
}

// SendTo delivers event to one session. A failed send disconnects that session
// and is returned as a *TransportFailure for logging only.
func (d *Dispatcher) SendTo(s *Session, event any, blobs ...[]byte) error {
	data, err := frame.Encode(event, blobs...)
	if err != nil {
		log.Printf("[Session %s] Failed to encode reply: %v", s.ID, err)
		return err
	}
	if err := s.Send(data); err != nil {
		d.metrics.BroadcastFailed()
		log.Printf("[Session %s] Dropping session: %v", s.ID, err)
		d.registry.Disconnect(s.conn)
		return err
	}
	return nil
}

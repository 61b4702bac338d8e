package pubsub

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TrustChecker gates incoming frames by sender, letting a contact store
// (see x0x/contacts) be consulted without the pubsub package depending on
// it. A nil TrustChecker disables filtering entirely.
type TrustChecker interface {
	// IsBlocked reports whether frames from sender should be dropped
	// before local delivery or re-broadcast.
	IsBlocked(sender PeerID) bool
}

// Manager ties a local Registry to a Transport, implementing the
// publish/handle_incoming pair from spec section 4.13.
type Manager struct {
	registry  *Registry
	transport Transport
	trust     TrustChecker
}

// NewManager constructs a Manager over registry and transport. Passing a
// nil transport is valid for a purely local, single-process registry (no
// re-broadcast, no incoming frames).
func NewManager(registry *Registry, transport Transport) *Manager {
	return &Manager{registry: registry, transport: transport}
}

// SetTrustChecker installs checker as the gate consulted by HandleIncoming
// before delivering or re-broadcasting a frame. Passing nil disables
// filtering.
func (m *Manager) SetTrustChecker(checker TrustChecker) {
	m.trust = checker
}

// Subscribe allocates a subscription on topic, delegating to the registry.
func (m *Manager) Subscribe(topic string) *Subscription {
	return m.registry.Subscribe(topic)
}

// Publish delivers payload to every local subscriber of topic, then fans
// the encoded frame out to every connected peer in parallel (spec section
// 4.13 publish()). Per-peer send failures are logged, not returned; only a
// frame-encoding failure or a failure to list the transport's peers fails
// the call.
func (m *Manager) Publish(ctx context.Context, topic string, payload []byte) error {
	traceID := uuid.NewString()
	m.registry.deliver(topic, Message{Topic: topic, Payload: payload})

	frame, err := EncodeFrame(topic, payload)
	if err != nil {
		return err
	}

	if m.transport == nil {
		return nil
	}
	return m.broadcastFrame(ctx, frame, "", traceID)
}

// HandleIncoming decodes a frame received from peer, delivers it locally,
// then re-broadcasts it to every other connected peer (spec section 4.13
// handle_incoming()). Malformed frames are logged and dropped rather than
// returned as an error, matching "Decode frame. Malformed => log warn,
// drop." If a TrustChecker is installed and reports the sender Blocked,
// the frame is dropped before local delivery or re-broadcast (supplemental
// contact-trust feature from original_source/src/contacts.rs).
func (m *Manager) HandleIncoming(ctx context.Context, from PeerID, raw []byte) {
	traceID := uuid.NewString()
	if m.trust != nil && m.trust.IsBlocked(from) {
		logrus.WithField("trace_id", traceID).Debugf("pubsub: dropping frame from blocked sender %s", from)
		return
	}

	frame, err := DecodeFrame(raw)
	if err != nil {
		logrus.WithField("trace_id", traceID).Warnf("pubsub: dropping malformed frame from %s: %v", from, err)
		return
	}

	m.registry.deliver(frame.Topic, Message{Topic: frame.Topic, Payload: frame.Payload})

	if m.transport == nil {
		return
	}
	if err := m.broadcastFrame(ctx, raw, from, traceID); err != nil {
		logrus.WithField("trace_id", traceID).Warnf("pubsub: re-broadcast from %s: %v", from, err)
	}
}

// broadcastFrame fans frame out to every connected peer except excluded
// (empty PeerID excludes nobody), in parallel via errgroup. Per-peer
// failures are logged but never fail the group — matching "Per-peer send
// failures are logged but do not fail the publish." traceID correlates
// the per-peer send log lines with the originating Publish/HandleIncoming
// call.
func (m *Manager) broadcastFrame(ctx context.Context, frame []byte, excluded PeerID, traceID string) error {
	peers, err := m.transport.Peers(ctx)
	if err != nil {
		return coded(ErrCodeGossip, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range peers {
		if p == excluded {
			continue
		}
		p := p
		g.Go(func() error {
			if err := m.transport.Send(gctx, p, frame); err != nil {
				logrus.WithField("trace_id", traceID).Warnf("pubsub: send to %s failed: %v", p, err)
			}
			return nil
		})
	}
	return g.Wait()
}

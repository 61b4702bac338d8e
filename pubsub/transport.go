package pubsub

import "context"

// PeerID identifies a connected peer at the transport layer. Its concrete
// format is transport-defined (libp2p peer IDs are opaque strings).
type PeerID string

// Transport is the network collaborator the manager fans out encoded
// frames to. It abstracts over the concrete overlay (a libp2p host's direct
// streams, a test double, or anything else) the way core/network.go's Node wraps a
// *pubsub.PubSub behind Broadcast/Subscribe.
type Transport interface {
	// Peers returns the currently connected peer set.
	Peers(ctx context.Context) ([]PeerID, error)
	// Send delivers an already-encoded frame to a single peer. Per-peer
	// failures are expected to happen and are handled by the caller (spec
	// section 4.13: "logged but do not fail the publish").
	Send(ctx context.Context, peer PeerID, frame []byte) error
}

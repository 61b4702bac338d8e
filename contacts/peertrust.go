package contacts

import (
	"x0x/identity"
	"x0x/pubsub"
)

// PeerResolver maps a transport-level peer identifier to the agent
// identity that peer presented during its (authenticated, per spec
// section 4.13's wire-format note) handshake. The pub/sub wire frame
// carries no sender ID of its own, so a resolver is how the transport's
// authentication result reaches the trust store.
type PeerResolver func(pubsub.PeerID) (identity.AgentId, bool)

// PeerTrust adapts a Store into a pubsub.TrustChecker, so
// Manager.HandleIncoming can drop frames from Blocked contacts without
// the pubsub package depending on this one.
type PeerTrust struct {
	store   *Store
	resolve PeerResolver
}

// NewPeerTrust builds a PeerTrust backed by store, using resolve to turn
// transport peer IDs into agent identities.
func NewPeerTrust(store *Store, resolve PeerResolver) *PeerTrust {
	return &PeerTrust{store: store, resolve: resolve}
}

// IsBlocked implements pubsub.TrustChecker. A peer that cannot be resolved
// to a known agent identity is treated as not blocked — trust filtering
// only ever tightens for agents the store actually knows about.
func (p *PeerTrust) IsBlocked(sender pubsub.PeerID) bool {
	agentID, ok := p.resolve(sender)
	if !ok {
		return false
	}
	return p.store.IsBlocked(agentID)
}

var _ pubsub.TrustChecker = (*PeerTrust)(nil)

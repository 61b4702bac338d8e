// Package group implements the simplified MLS-style group session: epoch
// commits over a member set, a deterministic per-epoch key schedule, AEAD
// sealing of CRDT deltas bound to (group, epoch), and a Welcome flow for
// admitting new members without an out-of-band channel.
package group

import (
	"encoding/binary"

	"x0x/identity"
)

// Context is the shared cryptographic state of a group at a given epoch
// (spec section 3 GroupContext).
type Context struct {
	GroupID                 []byte
	Epoch                   uint64
	TreeHash                []byte
	ConfirmedTranscriptHash []byte
}

// NewContext returns the epoch-0 context for groupID with empty tree/
// transcript hashes.
func NewContext(groupID []byte) Context {
	id := make([]byte, len(groupID))
	copy(id, groupID)
	return Context{GroupID: id}
}

func (c Context) withCommit(treeHash, transcriptHash []byte) Context {
	return Context{
		GroupID:                 c.GroupID,
		Epoch:                   c.Epoch + 1,
		TreeHash:                treeHash,
		ConfirmedTranscriptHash: transcriptHash,
	}
}

func epochLE(epoch uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, epoch)
	return buf
}

// MemberInfo records when an agent joined a group (spec section 3).
type MemberInfo struct {
	AgentID   identity.AgentId
	JoinEpoch uint64
}

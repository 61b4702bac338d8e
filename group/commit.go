package group

import "x0x/identity"

// OperationKind names a single membership/key-rotation change within a
// Commit.
type OperationKind int

const (
	OpAddMember OperationKind = iota
	OpRemoveMember
	OpUpdateKeys
)

// Operation is one entry of a Commit's ordered operation sequence. AgentID
// is meaningful only for OpAddMember/OpRemoveMember.
type Operation struct {
	Kind    OperationKind
	AgentID identity.AgentId
}

// AddMember returns an AddMember operation for agent.
func AddMember(agent identity.AgentId) Operation {
	return Operation{Kind: OpAddMember, AgentID: agent}
}

// RemoveMember returns a RemoveMember operation for agent.
func RemoveMember(agent identity.AgentId) Operation {
	return Operation{Kind: OpRemoveMember, AgentID: agent}
}

// UpdateKeys returns a key-rotation-only operation.
func UpdateKeys() Operation {
	return Operation{Kind: OpUpdateKeys}
}

// Commit is a proposed state change to a group: an ordered sequence of
// operations plus the resulting tree/transcript hashes (spec section 3).
type Commit struct {
	GroupID             []byte
	Epoch               uint64
	Operations          []Operation
	NewTreeHash         []byte
	NewTranscriptHash   []byte
}

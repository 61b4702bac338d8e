package group

import (
	"x0x/identity"

	"lukechampine.com/blake3"
)

// Session tracks a single group's membership and cryptographic context
// across epoch commits (spec section 4.10, C10).
type Session struct {
	context        Context
	members        map[identity.AgentId]MemberInfo
	pendingCommits []Commit
}

// New creates a group at epoch 0 with initiator as its only member.
func New(groupID []byte, initiator identity.AgentId) *Session {
	return &Session{
		context: NewContext(groupID),
		members: map[identity.AgentId]MemberInfo{
			initiator: {AgentID: initiator, JoinEpoch: 0},
		},
	}
}

// Context returns the session's current cryptographic context.
func (s *Session) Context() Context { return s.context }

// Epoch returns the session's current epoch.
func (s *Session) Epoch() uint64 { return s.context.Epoch }

// IsMember reports whether agent currently belongs to the group.
func (s *Session) IsMember(agent identity.AgentId) bool {
	_, ok := s.members[agent]
	return ok
}

// Members returns a snapshot copy of the current member set.
func (s *Session) Members() map[identity.AgentId]MemberInfo {
	out := make(map[identity.AgentId]MemberInfo, len(s.members))
	for k, v := range s.members {
		out[k] = v
	}
	return out
}

// AddMember proposes adding agent, returning the Commit to be applied via
// ApplyCommit. Fails if agent is already a member.
func (s *Session) AddMember(agent identity.AgentId) (Commit, error) {
	if s.IsMember(agent) {
		return Commit{}, &MemberAlreadyPresentError{AgentID: agent}
	}
	commit := s.createCommit([]Operation{AddMember(agent)})
	s.pendingCommits = append(s.pendingCommits, commit)
	return commit, nil
}

// RemoveMember proposes removing agent, returning the Commit to be applied
// via ApplyCommit. Fails MemberNotInGroupError if agent is absent.
func (s *Session) RemoveMember(agent identity.AgentId) (Commit, error) {
	if !s.IsMember(agent) {
		return Commit{}, &MemberNotInGroupError{AgentID: agent}
	}
	commit := s.createCommit([]Operation{RemoveMember(agent)})
	s.pendingCommits = append(s.pendingCommits, commit)
	return commit, nil
}

// Commit proposes a key-rotation-only commit (UpdateKeys), leaving
// membership untouched.
func (s *Session) Commit() Commit {
	commit := s.createCommit([]Operation{UpdateKeys()})
	s.pendingCommits = append(s.pendingCommits, commit)
	return commit
}

// ApplyCommit validates and applies commit to the session: group_id and
// epoch must match, operations are executed in order, and the epoch is
// incremented with the commit's new tree/transcript hashes adopted.
func (s *Session) ApplyCommit(commit Commit) error {
	if string(commit.GroupID) != string(s.context.GroupID) {
		return &GroupIDMismatchError{}
	}
	if commit.Epoch != s.context.Epoch {
		return &EpochMismatchError{Current: s.context.Epoch, Received: commit.Epoch}
	}

	nextEpoch := s.context.Epoch + 1
	for _, op := range commit.Operations {
		switch op.Kind {
		case OpAddMember:
			if s.IsMember(op.AgentID) {
				return &MemberAlreadyPresentError{AgentID: op.AgentID}
			}
			s.members[op.AgentID] = MemberInfo{AgentID: op.AgentID, JoinEpoch: nextEpoch}
		case OpRemoveMember:
			if !s.IsMember(op.AgentID) {
				return &MemberNotInGroupError{AgentID: op.AgentID}
			}
			delete(s.members, op.AgentID)
		case OpUpdateKeys:
		}
	}

	s.context = s.context.withCommit(commit.NewTreeHash, commit.NewTranscriptHash)

	kept := s.pendingCommits[:0]
	for _, pending := range s.pendingCommits {
		if pending.Epoch == commit.Epoch && string(pending.GroupID) == string(commit.GroupID) {
			continue
		}
		kept = append(kept, pending)
	}
	s.pendingCommits = kept

	return nil
}

// createCommit builds a Commit at the session's current epoch. Tree and
// transcript hashes are derived from the operations and epoch rather than
// a real ratchet tree, per this system's simplified MLS construction (no
// ratchet tree is maintained — see group/welcome.go).
func (s *Session) createCommit(operations []Operation) Commit {
	treeMaterial := append([]byte("tree"), epochLE(s.context.Epoch)...)
	transcriptMaterial := append([]byte("transcript"), epochLE(s.context.Epoch)...)
	for _, op := range operations {
		treeMaterial = append(treeMaterial, byte(op.Kind))
		treeMaterial = append(treeMaterial, op.AgentID[:]...)
	}
	treeHash := blake3.Sum256(treeMaterial)
	transcriptHash := blake3.Sum256(transcriptMaterial)

	return Commit{
		GroupID:           s.context.GroupID,
		Epoch:             s.context.Epoch,
		Operations:        operations,
		NewTreeHash:       treeHash[:],
		NewTranscriptHash: transcriptHash[:],
	}
}

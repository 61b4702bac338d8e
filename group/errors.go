package group

import "fmt"

// EpochMismatchError reports a commit or encrypted delta whose epoch does
// not match the group's current epoch.
type EpochMismatchError struct {
	Current  uint64
	Received uint64
}

func (e *EpochMismatchError) Error() string {
	return fmt.Sprintf("epoch mismatch: current=%d, received=%d", e.Current, e.Received)
}

// MemberAlreadyPresentError is returned by AddMember for an existing member.
type MemberAlreadyPresentError struct {
	AgentID [32]byte
}

func (e *MemberAlreadyPresentError) Error() string {
	return fmt.Sprintf("agent %x is already a member", e.AgentID)
}

// MemberNotInGroupError is returned by RemoveMember/ApplyCommit/Welcome.Accept
// for an agent not recognized by the group.
type MemberNotInGroupError struct {
	AgentID [32]byte
}

func (e *MemberNotInGroupError) Error() string {
	return fmt.Sprintf("agent %x is not a member of this group", e.AgentID)
}

// GroupIDMismatchError is returned when a commit or encrypted delta names a
// different group than the one it is applied against.
type GroupIDMismatchError struct{}

func (e *GroupIDMismatchError) Error() string { return "group ID mismatch" }

// DecryptionError wraps an AEAD authentication failure. The underlying
// cause (tamper, wrong key, wrong AAD, wrong counter) is intentionally
// indistinguishable, per spec section 4.12.
type DecryptionError struct {
	cause error
}

func (e *DecryptionError) Error() string  { return fmt.Sprintf("decryption failed: %v", e.cause) }
func (e *DecryptionError) Unwrap() error { return e.cause }

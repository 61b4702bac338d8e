package crdt

import (
	"encoding/binary"
	"errors"

	"lukechampine.com/blake3"

	"x0x/identity"
)

// TaskId is a content-addressed 32-byte task identifier: BLAKE3(title ||
// creator_id || creation_ts_le64). Two tasks with identical inputs collapse
// to the same ID — idempotent creation, not a collision bug.
type TaskId [32]byte

// NewTaskId derives a TaskId from its immutable creation inputs.
func NewTaskId(title string, createdBy identity.AgentId, createdAtMs uint64) TaskId {
	var material []byte
	material = append(material, title...)
	material = append(material, createdBy.Bytes()...)
	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], createdAtMs)
	material = append(material, tsBuf[:]...)
	return TaskId(blake3.Sum256(material))
}

// ErrIdMismatch is returned by merge operations when the two CRDT instances
// being merged don't share an identity.
var ErrIdMismatch = errors.New("id mismatch")

// TaskItem is the per-task CRDT: an OR-Set of checkbox states plus LWW
// registers for mutable metadata. CreatedBy/CreatedAt are immutable after
// construction (spec section 3).
type TaskItem struct {
	Id          TaskId
	CreatedBy   identity.AgentId
	CreatedAt   uint64
	Checkbox    *ORSet[CheckboxState]
	Title       *LWW[string]
	Description *LWW[string]
	Assignee    *LWW[*identity.AgentId]
	Priority    *LWW[uint8]
}

// NewTaskItem constructs a fresh TaskItem with an empty checkbox set. The
// Title and Description registers are seeded from title and description
// under createdBy; Assignee and Priority start unset.
func NewTaskItem(id TaskId, title, description string, createdBy identity.AgentId, createdAtMs uint64) *TaskItem {
	t := &TaskItem{
		Id:          id,
		CreatedBy:   createdBy,
		CreatedAt:   createdAtMs,
		Checkbox:    NewORSet[CheckboxState](),
		Title:       NewLWW[string](),
		Description: NewLWW[string](),
		Assignee:    NewLWW[*identity.AgentId](),
		Priority:    NewLWW[uint8](),
	}
	t.Title.Set(title, createdBy)
	t.Description.Set(description, createdBy)
	return t
}

// CurrentState derives the resolved CheckboxState from the live OR-Set
// entries per the resolution policy in spec section 4.3.
func (t *TaskItem) CurrentState() CheckboxState {
	return ResolveCheckboxStates(t.Checkbox.Live())
}

// Claim inserts Claimed{agent,ts=seq} under tag (originPeer,seq), rejecting
// if the resolved state is already Done.
func (t *TaskItem) Claim(agent identity.AgentId, originPeer [32]byte, seq uint64) error {
	current := t.CurrentState()
	if current.Variant == CheckboxDone {
		return ErrAlreadyDone
	}
	var agentBytes [32]byte
	copy(agentBytes[:], agent.Bytes())
	t.Checkbox.Add(Tag{Origin: originPeer, Seq: seq}, Claimed(agentBytes, seq))
	return nil
}

// Complete inserts Done{agent,ts=seq}, rejecting from Empty or Done.
func (t *TaskItem) Complete(agent identity.AgentId, originPeer [32]byte, seq uint64) error {
	current := t.CurrentState()
	switch current.Variant {
	case CheckboxEmpty:
		return ErrMustClaimFirst
	case CheckboxDone:
		return ErrAlreadyDone
	}
	var agentBytes [32]byte
	copy(agentBytes[:], agent.Bytes())
	t.Checkbox.Add(Tag{Origin: originPeer, Seq: seq}, Done(agentBytes, seq))
	return nil
}

func peerBytes(id identity.AgentId) [32]byte {
	var out [32]byte
	copy(out[:], id.Bytes())
	return out
}

// UpdateTitle sets the title register, advancing its clock under originPeer.
func (t *TaskItem) UpdateTitle(value string, originPeer identity.AgentId) {
	t.Title.Set(value, peerBytes(originPeer))
}

// UpdateDescription sets the description register.
func (t *TaskItem) UpdateDescription(value string, originPeer identity.AgentId) {
	t.Description.Set(value, peerBytes(originPeer))
}

// UpdateAssignee sets the assignee register; value may be nil to unassign.
func (t *TaskItem) UpdateAssignee(value *identity.AgentId, originPeer identity.AgentId) {
	t.Assignee.Set(value, peerBytes(originPeer))
}

// UpdatePriority sets the priority register.
func (t *TaskItem) UpdatePriority(value uint8, originPeer identity.AgentId) {
	t.Priority.Set(value, peerBytes(originPeer))
}

// Merge folds other into t; fails ErrIdMismatch if the IDs differ.
func (t *TaskItem) Merge(other *TaskItem) error {
	if t.Id != other.Id {
		return ErrIdMismatch
	}
	t.Checkbox.Merge(other.Checkbox)
	t.Title.Merge(other.Title)
	t.Description.Merge(other.Description)
	t.Assignee.Merge(other.Assignee)
	t.Priority.Merge(other.Priority)
	return nil
}

// Clone returns a deep copy of t.
func (t *TaskItem) Clone() *TaskItem {
	return &TaskItem{
		Id:          t.Id,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		Checkbox:    t.Checkbox.Clone(),
		Title:       t.Title.Clone(),
		Description: t.Description.Clone(),
		Assignee:    t.Assignee.Clone(),
		Priority:    t.Priority.Clone(),
	}
}

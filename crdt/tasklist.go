package crdt

import (
	"bytes"
	"errors"
	"sort"

	"lukechampine.com/blake3"

	"x0x/identity"
)

// TaskListId is a content-addressed 32-byte list identifier, derived
// analogously to TaskId from the list name.
type TaskListId [32]byte

// NewTaskListId derives a TaskListId from a list name.
func NewTaskListId(name string) TaskListId {
	return TaskListId(blake3.Sum256([]byte(name)))
}

// ErrTaskNotFound is returned by operations referencing an unknown TaskId.
var ErrTaskNotFound = errors.New("task not found")

// TaskList is the list-level CRDT: an OR-Set of task IDs, a data map, and
// LWW registers for ordering and name.
type TaskList struct {
	Id       TaskListId
	Tasks    *ORSet[TaskId]
	TaskData map[TaskId]*TaskItem
	Ordering *LWW[[]TaskId]
	Name     *LWW[string]
}

// NewTaskList constructs an empty list with the given name, seeded by creator.
func NewTaskList(id TaskListId, name string, creator identity.AgentId) *TaskList {
	l := &TaskList{
		Id:       id,
		Tasks:    NewORSet[TaskId](),
		TaskData: make(map[TaskId]*TaskItem),
		Ordering: NewLWW[[]TaskId](),
		Name:     NewLWW[string](),
	}
	l.Name.Set(name, peerBytes(creator))
	l.Ordering.Set(nil, peerBytes(creator))
	return l
}

// AddTask inserts task.Id into the OR-Set under (originPeer,seq); merges
// with any existing TaskItem, or inserts task fresh. Appends the ID to the
// ordering if not already present.
func (l *TaskList) AddTask(task *TaskItem, originPeer [32]byte, seq uint64) error {
	l.Tasks.Add(Tag{Origin: originPeer, Seq: seq}, task.Id)
	if existing, ok := l.TaskData[task.Id]; ok {
		if err := existing.Merge(task); err != nil {
			return err
		}
	} else {
		l.TaskData[task.Id] = task
	}

	ordered, _ := l.Ordering.Get()
	for _, id := range ordered {
		if id == task.Id {
			return nil
		}
	}
	next := append(append([]TaskId{}, ordered...), task.Id)
	l.Ordering.Set(next, originPeer)
	return nil
}

// RemoveTask tombstones id in the OR-Set and removes its data entry. The
// ordering vector is left untouched; liveness filtering on read hides the
// removed ID.
func (l *TaskList) RemoveTask(id TaskId) {
	l.Tasks.RemoveValue(id)
	delete(l.TaskData, id)
}

// ClaimTask delegates to the named TaskItem's Claim.
func (l *TaskList) ClaimTask(id TaskId, agent identity.AgentId, originPeer [32]byte, seq uint64) error {
	item, ok := l.TaskData[id]
	if !ok {
		return ErrTaskNotFound
	}
	return item.Claim(agent, originPeer, seq)
}

// CompleteTask delegates to the named TaskItem's Complete.
func (l *TaskList) CompleteTask(id TaskId, agent identity.AgentId, originPeer [32]byte, seq uint64) error {
	item, ok := l.TaskData[id]
	if !ok {
		return ErrTaskNotFound
	}
	return item.Complete(agent, originPeer, seq)
}

// Reorder validates that every element of newOrder exists in TaskData, then
// sets the ordering LWW register.
func (l *TaskList) Reorder(newOrder []TaskId, originPeer identity.AgentId) error {
	for _, id := range newOrder {
		if _, ok := l.TaskData[id]; !ok {
			return ErrTaskNotFound
		}
	}
	cp := append([]TaskId{}, newOrder...)
	l.Ordering.Set(cp, peerBytes(originPeer))
	return nil
}

// UpdateName sets the name LWW register.
func (l *TaskList) UpdateName(name string, originPeer identity.AgentId) {
	l.Name.Set(name, peerBytes(originPeer))
}

// TasksOrdered projects the ordering vector filtered by current OR-Set
// liveness, followed by any live task not yet present in the vector,
// appended in ascending TaskId byte order.
func (l *TaskList) TasksOrdered() []TaskId {
	ordered, _ := l.Ordering.Get()
	live := make(map[TaskId]struct{})
	for _, id := range l.Tasks.Live() {
		live[id] = struct{}{}
	}

	out := make([]TaskId, 0, len(live))
	placed := make(map[TaskId]struct{}, len(ordered))
	for _, id := range ordered {
		if _, isLive := live[id]; !isLive {
			continue
		}
		out = append(out, id)
		placed[id] = struct{}{}
	}
	var rest []TaskId
	for _, id := range l.Tasks.Live() {
		if _, done := placed[id]; done {
			continue
		}
		rest = append(rest, id)
	}
	sort.Slice(rest, func(i, j int) bool { return bytes.Compare(rest[i][:], rest[j][:]) < 0 })
	return append(out, rest...)
}

// Merge folds other into l: fails ErrIdMismatch on differing IDs; otherwise
// merges the OR-Set, unions the task maps pairwise, and merges name and
// ordering LWW registers.
func (l *TaskList) Merge(other *TaskList) error {
	if l.Id != other.Id {
		return ErrIdMismatch
	}
	l.Tasks.Merge(other.Tasks)
	for id, item := range other.TaskData {
		if existing, ok := l.TaskData[id]; ok {
			if err := existing.Merge(item); err != nil {
				return err
			}
		} else {
			l.TaskData[id] = item.Clone()
		}
	}
	l.Name.Merge(other.Name)
	l.Ordering.Merge(other.Ordering)
	return nil
}

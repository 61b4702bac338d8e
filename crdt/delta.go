package crdt

import "x0x/identity"

// Delta is the minimal change-set between two versions of a TaskList,
// sufficient to drive a remote replica from the earlier version to the
// later (spec section 4.6).
type Delta struct {
	AddedTasks     map[TaskId]AddedTask
	RemovedTasks   map[TaskId]map[Tag]struct{}
	TaskUpdates    map[TaskId]*TaskItem
	OrderingUpdate []TaskId
	HasOrdering    bool
	NameUpdate     string
	HasName        bool
	Version        uint64
}

// AddedTask pairs a TaskItem with the OR-Set tag it was inserted under.
type AddedTask struct {
	Item *TaskItem
	Tag  Tag
}

// VersionedTaskList wraps a TaskList with a monotonic per-replica mutation
// counter, tracked independently of task_count() (spec section 9, design
// note 1: task_count()-derived versions are not monotonic under
// remove+add). Every mutating call on the list must flow through this
// wrapper's methods so Version() advances exactly once per observable
// change.
type VersionedTaskList struct {
	List    *TaskList
	version uint64
	// history retains a log of mutations keyed by the version at which
	// they landed, so Delta(sinceVersion) can replay the open interval
	// (sinceVersion, currentVersion].
	history []versionedChange
}

type versionedChange struct {
	version uint64
	added   map[TaskId]AddedTask
	removed map[TaskId]map[Tag]struct{}
	updated map[TaskId]*TaskItem
	order   []TaskId
	hasOrd  bool
	name    string
	hasName bool
}

// NewVersionedTaskList wraps an existing list at version 0.
func NewVersionedTaskList(list *TaskList) *VersionedTaskList {
	return &VersionedTaskList{List: list}
}

// Version returns the current monotonic version.
func (v *VersionedTaskList) Version() uint64 { return v.version }

func (v *VersionedTaskList) bump(change versionedChange) {
	v.version++
	change.version = v.version
	v.history = append(v.history, change)
}

// RecordAddTask performs AddTask on the wrapped list and records the change
// for future delta generation.
func (v *VersionedTaskList) RecordAddTask(task *TaskItem, originPeer [32]byte, seq uint64) error {
	if err := v.List.AddTask(task, originPeer, seq); err != nil {
		return err
	}
	v.bump(versionedChange{
		added: map[TaskId]AddedTask{task.Id: {Item: task.Clone(), Tag: Tag{Origin: originPeer, Seq: seq}}},
	})
	return nil
}

// RecordRemoveTask performs RemoveTask and records the change.
func (v *VersionedTaskList) RecordRemoveTask(id TaskId) {
	tags := v.List.Tasks.TagsFor(id)
	v.List.RemoveTask(id)
	v.bump(versionedChange{removed: map[TaskId]map[Tag]struct{}{id: tags}})
}

// RecordTaskUpdate snapshots a task after an in-place mutation (claim,
// complete, metadata update) performed by the caller directly on
// v.List.TaskData[id], and records it as a task_updates entry.
func (v *VersionedTaskList) RecordTaskUpdate(id TaskId) {
	item, ok := v.List.TaskData[id]
	if !ok {
		return
	}
	v.bump(versionedChange{updated: map[TaskId]*TaskItem{id: item.Clone()}})
}

// RecordReorder performs Reorder and records the change.
func (v *VersionedTaskList) RecordReorder(newOrder []TaskId, originPeer identity.AgentId) error {
	if err := v.List.Reorder(newOrder, originPeer); err != nil {
		return err
	}
	v.bump(versionedChange{order: append([]TaskId{}, newOrder...), hasOrd: true})
	return nil
}

// RecordUpdateName performs UpdateName and records the change.
func (v *VersionedTaskList) RecordUpdateName(name string, originPeer identity.AgentId) {
	v.List.UpdateName(name, originPeer)
	v.bump(versionedChange{name: name, hasName: true})
}

// DeltaSince returns the changes in the open interval (sinceVersion,
// currentVersion], or ok=false if there is nothing newer.
func (v *VersionedTaskList) DeltaSince(sinceVersion uint64) (Delta, bool) {
	if v.version <= sinceVersion {
		return Delta{}, false
	}
	d := Delta{
		AddedTasks:   make(map[TaskId]AddedTask),
		RemovedTasks: make(map[TaskId]map[Tag]struct{}),
		TaskUpdates:  make(map[TaskId]*TaskItem),
		Version:      v.version,
	}
	for _, change := range v.history {
		if change.version <= sinceVersion {
			continue
		}
		for id, at := range change.added {
			d.AddedTasks[id] = at
		}
		for id, tags := range change.removed {
			merged := d.RemovedTasks[id]
			if merged == nil {
				merged = make(map[Tag]struct{})
			}
			for tag := range tags {
				merged[tag] = struct{}{}
			}
			d.RemovedTasks[id] = merged
		}
		for id, item := range change.updated {
			d.TaskUpdates[id] = item
		}
		if change.hasOrd {
			d.OrderingUpdate = change.order
			d.HasOrdering = true
		}
		if change.hasName {
			d.NameUpdate = change.name
			d.HasName = true
		}
	}
	return d, true
}

// MergeDelta applies a remote Delta to the wrapped list in the prescribed
// order: adds, removes, updates, ordering LWW set (validated against the
// live set), name LWW set. Idempotent when the same delta is applied twice,
// since every step below is itself idempotent (OR-Set add/remove, LWW set).
func (v *VersionedTaskList) MergeDelta(d Delta, peer [32]byte) error {
	for id, at := range d.AddedTasks {
		v.List.Tasks.Add(at.Tag, id)
		if existing, ok := v.List.TaskData[id]; ok {
			if err := existing.Merge(at.Item); err != nil {
				return err
			}
		} else {
			v.List.TaskData[id] = at.Item.Clone()
		}
	}
	for id, tags := range d.RemovedTasks {
		v.List.Tasks.RemoveTags(tags)
		if !v.List.Tasks.Contains(id) {
			delete(v.List.TaskData, id)
		}
	}
	for id, item := range d.TaskUpdates {
		if existing, ok := v.List.TaskData[id]; ok {
			if err := existing.Merge(item); err != nil {
				return err
			}
		} else {
			v.List.TaskData[id] = item.Clone()
		}
	}
	if d.HasOrdering {
		valid := true
		for _, id := range d.OrderingUpdate {
			if _, ok := v.List.TaskData[id]; !ok {
				valid = false
				break
			}
		}
		if valid {
			v.List.Ordering.SetAt(append([]TaskId{}, d.OrderingUpdate...), Clock{Peer: peer, Counter: d.Version})
		}
	}
	if d.HasName {
		v.List.Name.SetAt(d.NameUpdate, Clock{Peer: peer, Counter: d.Version})
	}
	if d.Version > v.version {
		v.version = d.Version
	}
	return nil
}

package persistence

import "time"

// CheckpointReason names why a Persist action fired.
type CheckpointReason int

const (
	ReasonMutationThreshold CheckpointReason = iota
	ReasonDirtyTimeFloor
	ReasonGracefulShutdown
	ReasonExplicitRequest
)

func (r CheckpointReason) String() string {
	switch r {
	case ReasonMutationThreshold:
		return "mutation_threshold"
	case ReasonDirtyTimeFloor:
		return "dirty_time_floor"
	case ReasonGracefulShutdown:
		return "graceful_shutdown"
	case ReasonExplicitRequest:
		return "explicit_request"
	default:
		return "unknown"
	}
}

// ActionKind is the scheduler's decision for a given mutation or tick.
type ActionKind int

const (
	ActionSkipPolicy ActionKind = iota
	ActionSkipDebounced
	ActionPersist
)

// Action is the scheduler's decision, carrying Reason when Kind ==
// ActionPersist.
type Action struct {
	Kind   ActionKind
	Reason CheckpointReason
}

// CheckpointScheduler tracks per-entity mutation pressure and decides when
// a checkpoint should fire, per spec section 4.7.
type CheckpointScheduler struct {
	policy            CheckpointPolicy
	mutationCounter   uint32
	firstDirtyAt      time.Time
	hasFirstDirty     bool
	lastCheckpointAt  time.Time
	hasLastCheckpoint bool
	dirty             bool
}

// NewCheckpointScheduler creates a scheduler governed by policy.
func NewCheckpointScheduler(policy CheckpointPolicy) *CheckpointScheduler {
	return &CheckpointScheduler{policy: policy}
}

// Dirty reports whether the scheduler has unpersisted mutations.
func (s *CheckpointScheduler) Dirty() bool { return s.dirty }

// OnMutation advances the scheduler state for a mutation observed at now
// and returns the resulting Action.
func (s *CheckpointScheduler) OnMutation(now time.Time) Action {
	s.mutationCounter++
	if !s.dirty {
		s.firstDirtyAt = now
		s.hasFirstDirty = true
		s.dirty = true
	}

	if s.hasLastCheckpoint && now.Sub(s.lastCheckpointAt) < s.policy.DebounceFloor {
		return Action{Kind: ActionSkipDebounced}
	}
	if s.mutationCounter >= s.policy.MutationThreshold {
		return Action{Kind: ActionPersist, Reason: ReasonMutationThreshold}
	}
	return Action{Kind: ActionSkipPolicy}
}

// OnTimerTick evaluates the dirty-time-floor trigger at now.
func (s *CheckpointScheduler) OnTimerTick(now time.Time) Action {
	if !s.dirty {
		return Action{Kind: ActionSkipPolicy}
	}
	if s.hasLastCheckpoint && now.Sub(s.lastCheckpointAt) < s.policy.DebounceFloor {
		return Action{Kind: ActionSkipPolicy}
	}
	if s.hasFirstDirty && now.Sub(s.firstDirtyAt) >= s.policy.DirtyTimeFloor {
		return Action{Kind: ActionPersist, Reason: ReasonDirtyTimeFloor}
	}
	return Action{Kind: ActionSkipPolicy}
}

// OnPersistSucceeded resets scheduler state after a successful checkpoint
// at now.
func (s *CheckpointScheduler) OnPersistSucceeded(now time.Time) {
	s.mutationCounter = 0
	s.hasFirstDirty = false
	s.dirty = false
	s.lastCheckpointAt = now
	s.hasLastCheckpoint = true
}

// Package persistence implements the checkpoint scheduler, snapshot
// envelope, file-backed storage, and startup/shutdown orchestrator that
// give the CRDT task-list engine durable, crash-safe storage — mirroring
// the on-disk state handling in internal/testutil/sandbox.go, generalized
// from "a test helper" into the real storage layer.
package persistence

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how the orchestrator reacts to storage failures.
type Mode int

const (
	ModeDegraded Mode = iota
	ModeStrict
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "degraded"
}

// ParseMode parses a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "degraded":
		return ModeDegraded, nil
	case "strict":
		return ModeStrict, nil
	default:
		return ModeDegraded, fmt.Errorf("invalid persistence mode: %s", s)
	}
}

// StrictInitializationPolicy governs strict-mode startup behavior.
type StrictInitializationPolicy struct {
	InitializeIfMissing bool
}

// CheckpointPolicy governs when the scheduler fires (spec section 4.7
// defaults: mutation_threshold=32, dirty_time_floor=300s, debounce_floor=2s).
type CheckpointPolicy struct {
	MutationThreshold uint32
	DirtyTimeFloor    time.Duration
	DebounceFloor     time.Duration
}

// DefaultCheckpointPolicy returns the ADR defaults.
func DefaultCheckpointPolicy() CheckpointPolicy {
	return CheckpointPolicy{
		MutationThreshold: 32,
		DirtyTimeFloor:    300 * time.Second,
		DebounceFloor:     2 * time.Second,
	}
}

// RetentionPolicy governs checkpoint retention and storage-budget pressure
// thresholds.
type RetentionPolicy struct {
	CheckpointsToKeep        uint8
	StorageBudgetBytes       uint64
	WarningThresholdPercent  uint8
	CriticalThresholdPercent uint8
}

// DefaultRetentionPolicy returns the ADR defaults.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		CheckpointsToKeep:        3,
		StorageBudgetBytes:       256 * 1024 * 1024,
		WarningThresholdPercent:  80,
		CriticalThresholdPercent: 90,
	}
}

// Policy is the runtime persistence policy resolved at startup.
type Policy struct {
	Enabled              bool
	Mode                 Mode
	Checkpoint           CheckpointPolicy
	Retention            RetentionPolicy
	StrictInitialization StrictInitializationPolicy
}

// DefaultPolicy returns the disabled-by-default, degraded-mode policy.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:    false,
		Mode:       ModeDegraded,
		Checkpoint: DefaultCheckpointPolicy(),
		Retention:  DefaultRetentionPolicy(),
	}
}

// Validate checks internal policy consistency: non-zero mutation threshold,
// debounce floor of at least one second, and warning strictly below critical.
func (p Policy) Validate() error {
	if p.Checkpoint.MutationThreshold == 0 {
		return fmt.Errorf("mutation threshold must be at least 1, got %d", p.Checkpoint.MutationThreshold)
	}
	if p.Checkpoint.DebounceFloor < time.Second {
		return fmt.Errorf("debounce floor must be at least 1 second")
	}
	if p.Retention.WarningThresholdPercent >= p.Retention.CriticalThresholdPercent {
		return fmt.Errorf("invalid retention thresholds: warning=%d, critical=%d",
			p.Retention.WarningThresholdPercent, p.Retention.CriticalThresholdPercent)
	}
	return nil
}

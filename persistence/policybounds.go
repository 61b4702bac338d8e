package persistence

import (
	"fmt"
	"time"

	"x0x/internal/xerrors"
)

// Stable error codes for host-envelope and bounds-checking failures (spec
// section 6's {code, message, remediation} shape).
const (
	ErrCodeBoundsInvalid     xerrors.Code = "policy_bounds_invalid"
	ErrCodeAdjustmentBlocked xerrors.Code = "policy_adjustment_not_allowed"
	ErrCodeOutOfBounds       xerrors.Code = "policy_value_out_of_bounds"
)

// PolicyEnvelope bounds what an embedding host allows a runtime checkpoint-
// frequency update to set. Supplemented from
// original_source/src/runtime/policy_bounds.rs, whose bounds-checking
// rules go beyond what the distilled requirements describe.
type PolicyEnvelope struct {
	AllowRuntimeCheckpointFrequencyAdjustment bool
	MinMutationThreshold                      uint32
	MaxMutationThreshold                      uint32
	MinDirtyTimeFloorSecs                     uint64
	MaxDirtyTimeFloorSecs                     uint64
	MinDebounceFloorSecs                      uint64
	MaxDebounceFloorSecs                      uint64
}

// CheckpointFrequencyUpdate is a runtime request to adjust one or more
// checkpoint-trigger fields; nil fields are left unchanged.
type CheckpointFrequencyUpdate struct {
	MutationThreshold *uint32
	DirtyTimeFloor    *time.Duration
	DebounceFloor     *time.Duration
}

// boundsErr builds a stable-code bounds-violation error. remediation tells
// the caller what to change in the host envelope or the requested update.
func boundsErr(code xerrors.Code, remediation, format string, args ...any) error {
	return xerrors.New(code, fmt.Sprintf(format, args...), remediation)
}

// ValidateHostEnvelope checks the envelope's own internal consistency: all
// bounds non-zero, min <= max, and — when runtime adjustment is disallowed
// — every bound pinned to a single value (min == max).
func ValidateHostEnvelope(env PolicyEnvelope) error {
	if env.MinMutationThreshold == 0 || env.MaxMutationThreshold == 0 || env.MinMutationThreshold > env.MaxMutationThreshold {
		return boundsErr(ErrCodeBoundsInvalid, "set MinMutationThreshold <= MaxMutationThreshold, both non-zero", "host envelope mutation threshold bounds invalid: min=%d, max=%d", env.MinMutationThreshold, env.MaxMutationThreshold)
	}
	if env.MinDirtyTimeFloorSecs == 0 || env.MaxDirtyTimeFloorSecs == 0 || env.MinDirtyTimeFloorSecs > env.MaxDirtyTimeFloorSecs {
		return boundsErr(ErrCodeBoundsInvalid, "set MinDirtyTimeFloorSecs <= MaxDirtyTimeFloorSecs, both non-zero", "host envelope dirty-time bounds invalid: min=%d, max=%d", env.MinDirtyTimeFloorSecs, env.MaxDirtyTimeFloorSecs)
	}
	if env.MinDebounceFloorSecs == 0 || env.MaxDebounceFloorSecs == 0 || env.MinDebounceFloorSecs > env.MaxDebounceFloorSecs {
		return boundsErr(ErrCodeBoundsInvalid, "set MinDebounceFloorSecs <= MaxDebounceFloorSecs, both non-zero", "host envelope debounce bounds invalid: min=%d, max=%d", env.MinDebounceFloorSecs, env.MaxDebounceFloorSecs)
	}
	if !env.AllowRuntimeCheckpointFrequencyAdjustment &&
		(env.MinMutationThreshold != env.MaxMutationThreshold ||
			env.MinDirtyTimeFloorSecs != env.MaxDirtyTimeFloorSecs ||
			env.MinDebounceFloorSecs != env.MaxDebounceFloorSecs) {
		return boundsErr(ErrCodeAdjustmentBlocked, "set AllowRuntimeCheckpointFrequencyAdjustment or pin min==max for every bound", "runtime checkpoint adjustment is not allowed by host envelope")
	}
	return nil
}

// EnsurePolicyWithinEnvelope checks that an already-resolved Policy's
// checkpoint trigger values fall within the host's bounds.
func EnsurePolicyWithinEnvelope(p Policy, env PolicyEnvelope) error {
	if p.Checkpoint.MutationThreshold < env.MinMutationThreshold || p.Checkpoint.MutationThreshold > env.MaxMutationThreshold {
		return boundsErr(ErrCodeOutOfBounds, "choose a mutation threshold within the host envelope", "mutation threshold %d out of host bounds [%d, %d]", p.Checkpoint.MutationThreshold, env.MinMutationThreshold, env.MaxMutationThreshold)
	}
	dirtySecs := uint64(p.Checkpoint.DirtyTimeFloor.Seconds())
	if dirtySecs < env.MinDirtyTimeFloorSecs || dirtySecs > env.MaxDirtyTimeFloorSecs {
		return boundsErr(ErrCodeOutOfBounds, "choose a dirty-time floor within the host envelope", "dirty-time floor %ds out of host bounds [%ds, %ds]", dirtySecs, env.MinDirtyTimeFloorSecs, env.MaxDirtyTimeFloorSecs)
	}
	debounceSecs := uint64(p.Checkpoint.DebounceFloor.Seconds())
	if debounceSecs < env.MinDebounceFloorSecs || debounceSecs > env.MaxDebounceFloorSecs {
		return boundsErr(ErrCodeOutOfBounds, "choose a debounce floor within the host envelope", "debounce floor %ds out of host bounds [%ds, %ds]", debounceSecs, env.MinDebounceFloorSecs, env.MaxDebounceFloorSecs)
	}
	return nil
}

// ApplyCheckpointFrequencyUpdate validates the envelope, checks the update
// is permitted and within bounds, and returns a new Policy with the
// checkpoint fields updated. policy is left unmodified.
func ApplyCheckpointFrequencyUpdate(p Policy, env PolicyEnvelope, update CheckpointFrequencyUpdate) (Policy, error) {
	nextCheckpoint, err := ApplyCheckpointFrequencyUpdateToCheckpointPolicy(p.Checkpoint, env, update)
	if err != nil {
		return Policy{}, err
	}
	next := p
	next.Checkpoint = nextCheckpoint
	return next, nil
}

// ApplyCheckpointFrequencyUpdateToCheckpointPolicy is the same operation
// scoped to a bare CheckpointPolicy, used when the caller doesn't have (or
// doesn't want to thread through) a full Policy.
func ApplyCheckpointFrequencyUpdateToCheckpointPolicy(checkpoint CheckpointPolicy, env PolicyEnvelope, update CheckpointFrequencyUpdate) (CheckpointPolicy, error) {
	if err := ValidateHostEnvelope(env); err != nil {
		return CheckpointPolicy{}, err
	}

	requestsChange := update.MutationThreshold != nil || update.DirtyTimeFloor != nil || update.DebounceFloor != nil
	if !env.AllowRuntimeCheckpointFrequencyAdjustment && requestsChange {
		return CheckpointPolicy{}, boundsErr(ErrCodeAdjustmentBlocked, "set AllowRuntimeCheckpointFrequencyAdjustment or pin min==max for every bound", "runtime checkpoint adjustment is not allowed by host envelope")
	}

	next := checkpoint

	if update.MutationThreshold != nil {
		v := *update.MutationThreshold
		if v < env.MinMutationThreshold || v > env.MaxMutationThreshold {
			return CheckpointPolicy{}, boundsErr(ErrCodeOutOfBounds, "choose a mutation threshold within the host envelope", "mutation threshold %d out of host bounds [%d, %d]", v, env.MinMutationThreshold, env.MaxMutationThreshold)
		}
		next.MutationThreshold = v
	}

	if update.DirtyTimeFloor != nil {
		secs := uint64(update.DirtyTimeFloor.Seconds())
		if secs < env.MinDirtyTimeFloorSecs || secs > env.MaxDirtyTimeFloorSecs {
			return CheckpointPolicy{}, boundsErr(ErrCodeOutOfBounds, "choose a dirty-time floor within the host envelope", "dirty-time floor %ds out of host bounds [%ds, %ds]", secs, env.MinDirtyTimeFloorSecs, env.MaxDirtyTimeFloorSecs)
		}
		next.DirtyTimeFloor = *update.DirtyTimeFloor
	}

	if update.DebounceFloor != nil {
		secs := uint64(update.DebounceFloor.Seconds())
		if secs < env.MinDebounceFloorSecs || secs > env.MaxDebounceFloorSecs {
			return CheckpointPolicy{}, boundsErr(ErrCodeOutOfBounds, "choose a debounce floor within the host envelope", "debounce floor %ds out of host bounds [%ds, %ds]", secs, env.MinDebounceFloorSecs, env.MaxDebounceFloorSecs)
		}
		next.DebounceFloor = *update.DebounceFloor
	}

	return next, nil
}

package persistence

import (
	"testing"
	"time"
)

func fixedEnvelope() PolicyEnvelope {
	return PolicyEnvelope{
		AllowRuntimeCheckpointFrequencyAdjustment: true,
		MinMutationThreshold:                      1,
		MaxMutationThreshold:                      1000,
		MinDirtyTimeFloorSecs:                     1,
		MaxDirtyTimeFloorSecs:                     3600,
		MinDebounceFloorSecs:                      1,
		MaxDebounceFloorSecs:                      60,
	}
}

func TestValidateHostEnvelopeAcceptsSaneBounds(t *testing.T) {
	if err := ValidateHostEnvelope(fixedEnvelope()); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}
}

func TestValidateHostEnvelopeRejectsInvertedBounds(t *testing.T) {
	env := fixedEnvelope()
	env.MinMutationThreshold = 500
	env.MaxMutationThreshold = 10
	if err := ValidateHostEnvelope(env); err == nil {
		t.Fatalf("expected error for inverted mutation threshold bounds")
	}
}

func TestValidateHostEnvelopeRejectsUnpinnedBoundsWhenAdjustmentDisallowed(t *testing.T) {
	env := fixedEnvelope()
	env.AllowRuntimeCheckpointFrequencyAdjustment = false
	if err := ValidateHostEnvelope(env); err == nil {
		t.Fatalf("expected error: adjustment disallowed but bounds not pinned")
	}
}

func TestValidateHostEnvelopeAcceptsPinnedBoundsWhenAdjustmentDisallowed(t *testing.T) {
	env := PolicyEnvelope{
		AllowRuntimeCheckpointFrequencyAdjustment: false,
		MinMutationThreshold:                      32,
		MaxMutationThreshold:                      32,
		MinDirtyTimeFloorSecs:                     300,
		MaxDirtyTimeFloorSecs:                     300,
		MinDebounceFloorSecs:                      2,
		MaxDebounceFloorSecs:                       2,
	}
	if err := ValidateHostEnvelope(env); err != nil {
		t.Fatalf("expected pinned envelope to validate, got %v", err)
	}
}

func TestEnsurePolicyWithinEnvelopeRejectsOutOfBoundsMutationThreshold(t *testing.T) {
	p := DefaultPolicy()
	p.Checkpoint.MutationThreshold = 5000
	if err := EnsurePolicyWithinEnvelope(p, fixedEnvelope()); err == nil {
		t.Fatalf("expected out-of-bounds mutation threshold to fail")
	}
}

func TestEnsurePolicyWithinEnvelopeAcceptsDefaultsWithinWideEnvelope(t *testing.T) {
	if err := EnsurePolicyWithinEnvelope(DefaultPolicy(), fixedEnvelope()); err != nil {
		t.Fatalf("expected default policy within envelope, got %v", err)
	}
}

func TestApplyCheckpointFrequencyUpdateAppliesWithinBounds(t *testing.T) {
	p := DefaultPolicy()
	newThreshold := uint32(64)
	next, err := ApplyCheckpointFrequencyUpdate(p, fixedEnvelope(), CheckpointFrequencyUpdate{
		MutationThreshold: &newThreshold,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Checkpoint.MutationThreshold != 64 {
		t.Fatalf("expected threshold updated to 64, got %d", next.Checkpoint.MutationThreshold)
	}
	if p.Checkpoint.MutationThreshold == 64 {
		t.Fatalf("original policy must not be mutated")
	}
}

func TestApplyCheckpointFrequencyUpdateRejectsOutOfBounds(t *testing.T) {
	p := DefaultPolicy()
	tooHigh := uint32(5000)
	_, err := ApplyCheckpointFrequencyUpdate(p, fixedEnvelope(), CheckpointFrequencyUpdate{
		MutationThreshold: &tooHigh,
	})
	if err == nil {
		t.Fatalf("expected out-of-bounds update to fail")
	}
}

func TestApplyCheckpointFrequencyUpdateRejectsWhenDisallowed(t *testing.T) {
	env := PolicyEnvelope{
		AllowRuntimeCheckpointFrequencyAdjustment: false,
		MinMutationThreshold:                      32,
		MaxMutationThreshold:                      32,
		MinDirtyTimeFloorSecs:                     300,
		MaxDirtyTimeFloorSecs:                     300,
		MinDebounceFloorSecs:                      2,
		MaxDebounceFloorSecs:                       2,
	}
	newThreshold := uint32(32)
	_, err := ApplyCheckpointFrequencyUpdate(DefaultPolicy(), env, CheckpointFrequencyUpdate{
		MutationThreshold: &newThreshold,
	})
	if err == nil {
		t.Fatalf("expected update to be rejected when adjustment is disallowed")
	}
}

func TestApplyCheckpointFrequencyUpdateNoOpWhenNoFieldsSet(t *testing.T) {
	env := PolicyEnvelope{
		AllowRuntimeCheckpointFrequencyAdjustment: false,
		MinMutationThreshold:                      32,
		MaxMutationThreshold:                      32,
		MinDirtyTimeFloorSecs:                     300,
		MaxDirtyTimeFloorSecs:                     300,
		MinDebounceFloorSecs:                      2,
		MaxDebounceFloorSecs:                       2,
	}
	next, err := ApplyCheckpointFrequencyUpdate(DefaultPolicy(), env, CheckpointFrequencyUpdate{})
	if err != nil {
		t.Fatalf("expected empty update to succeed even when adjustment disallowed, got %v", err)
	}
	if next.Checkpoint != DefaultPolicy().Checkpoint {
		t.Fatalf("expected checkpoint policy unchanged")
	}
}

func TestApplyCheckpointFrequencyUpdateToCheckpointPolicyAppliesAllFields(t *testing.T) {
	dirty := 10 * time.Second
	debounce := 3 * time.Second
	threshold := uint32(50)
	next, err := ApplyCheckpointFrequencyUpdateToCheckpointPolicy(DefaultCheckpointPolicy(), fixedEnvelope(), CheckpointFrequencyUpdate{
		MutationThreshold: &threshold,
		DirtyTimeFloor:    &dirty,
		DebounceFloor:     &debounce,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.MutationThreshold != 50 || next.DirtyTimeFloor != dirty || next.DebounceFloor != debounce {
		t.Fatalf("unexpected result: %+v", next)
	}
}

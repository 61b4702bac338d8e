package persistence

import "testing"

func TestDefaultPolicyMatchesADRValues(t *testing.T) {
	p := DefaultPolicy()
	if p.Enabled {
		t.Fatalf("expected disabled by default")
	}
	if p.Mode != ModeDegraded {
		t.Fatalf("expected degraded mode by default")
	}
	if p.Checkpoint.MutationThreshold != 32 {
		t.Fatalf("expected mutation_threshold=32, got %d", p.Checkpoint.MutationThreshold)
	}
	if p.Checkpoint.DirtyTimeFloor.Seconds() != 300 {
		t.Fatalf("expected dirty_time_floor=300s, got %v", p.Checkpoint.DirtyTimeFloor)
	}
	if p.Checkpoint.DebounceFloor.Seconds() != 2 {
		t.Fatalf("expected debounce_floor=2s, got %v", p.Checkpoint.DebounceFloor)
	}
	if p.Retention.CheckpointsToKeep != 3 {
		t.Fatalf("expected checkpoints_to_keep=3, got %d", p.Retention.CheckpointsToKeep)
	}
	if p.Retention.StorageBudgetBytes != 256*1024*1024 {
		t.Fatalf("expected storage_budget=256MiB, got %d", p.Retention.StorageBudgetBytes)
	}
	if p.Retention.WarningThresholdPercent != 80 || p.Retention.CriticalThresholdPercent != 90 {
		t.Fatalf("expected warn=80/crit=90, got %d/%d", p.Retention.WarningThresholdPercent, p.Retention.CriticalThresholdPercent)
	}
}

func TestParseModeCaseInsensitive(t *testing.T) {
	m, err := ParseMode("STRICT")
	if err != nil || m != ModeStrict {
		t.Fatalf("expected Strict, got %v (err=%v)", m, err)
	}
	m, err = ParseMode("degraded")
	if err != nil || m != ModeDegraded {
		t.Fatalf("expected Degraded, got %v (err=%v)", m, err)
	}
}

func TestParseModeRejectsUnknown(t *testing.T) {
	if _, err := ParseMode("best_effort"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestValidateRejectsZeroMutationThreshold(t *testing.T) {
	p := DefaultPolicy()
	p.Checkpoint.MutationThreshold = 0
	if err := p.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateRejectsBadRetentionThresholds(t *testing.T) {
	p := DefaultPolicy()
	p.Retention.WarningThresholdPercent = 90
	p.Retention.CriticalThresholdPercent = 80
	if err := p.Validate(); err == nil {
		t.Fatalf("expected validation error for warning >= critical")
	}
}

func TestValidateAcceptsStrictModeDefaults(t *testing.T) {
	p := DefaultPolicy()
	p.Enabled = true
	p.Mode = ModeStrict
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid policy, got %v", err)
	}
}

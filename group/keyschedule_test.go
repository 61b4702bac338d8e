package group

import "testing"

func TestDeriveKeyScheduleIsDeterministic(t *testing.T) {
	ctx := NewContext([]byte("test-group"))
	s1 := DeriveKeySchedule(ctx)
	s2 := DeriveKeySchedule(ctx)

	if s1.EncryptionKey != s2.EncryptionKey || s1.BaseNonce != s2.BaseNonce || s1.Secret != s2.Secret {
		t.Fatalf("expected identical derivation for identical context")
	}
}

func TestDeriveKeyScheduleVariesWithEpoch(t *testing.T) {
	ctx0 := NewContext([]byte("test-group"))
	ctx1 := ctx0.withCommit([]byte("tree-1"), []byte("transcript-1"))

	s0 := DeriveKeySchedule(ctx0)
	s1 := DeriveKeySchedule(ctx1)

	if s0.EncryptionKey == s1.EncryptionKey {
		t.Fatalf("expected different keys across epochs")
	}
	if s0.BaseNonce == s1.BaseNonce {
		t.Fatalf("expected different nonces across epochs")
	}
}

func TestDeriveKeyScheduleVariesWithGroupID(t *testing.T) {
	s1 := DeriveKeySchedule(NewContext([]byte("group-1")))
	s2 := DeriveKeySchedule(NewContext([]byte("group-2")))

	if s1.EncryptionKey == s2.EncryptionKey {
		t.Fatalf("expected different groups to derive different keys")
	}
}

func TestDeriveNonceCounterZeroMatchesBaseNonce(t *testing.T) {
	schedule := DeriveKeySchedule(NewContext([]byte("test-group")))
	nonce := schedule.DeriveNonce(0)
	if nonce != schedule.BaseNonce {
		t.Fatalf("expected counter 0 to match base nonce")
	}
}

func TestDeriveNonceVariesByCounter(t *testing.T) {
	schedule := DeriveKeySchedule(NewContext([]byte("test-group")))
	n0 := schedule.DeriveNonce(0)
	n1 := schedule.DeriveNonce(1)
	n100 := schedule.DeriveNonce(100)

	if n0 == n1 || n1 == n100 || n0 == n100 {
		t.Fatalf("expected distinct nonces per counter")
	}
}

func TestDeriveNonceIsDeterministicPerCounter(t *testing.T) {
	schedule := DeriveKeySchedule(NewContext([]byte("test-group")))
	if schedule.DeriveNonce(42) != schedule.DeriveNonce(42) {
		t.Fatalf("expected deterministic nonce derivation")
	}
}

package group

import "testing"

func TestSealDeltaThenOpenDeltaRoundTrips(t *testing.T) {
	initiator := testAgent(1)
	s := New([]byte("test-group"), initiator)

	encrypted, err := SealDelta(s, []byte(`{"added_tasks":{}}`))
	if err != nil {
		t.Fatalf("unexpected seal error: %v", err)
	}
	if string(encrypted.GroupID) != "test-group" || encrypted.Epoch != 0 {
		t.Fatalf("unexpected envelope metadata: %+v", encrypted)
	}

	plaintext, err := OpenDelta(s, encrypted)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	if string(plaintext) != `{"added_tasks":{}}` {
		t.Fatalf("unexpected plaintext: %s", plaintext)
	}
}

func TestOpenDeltaRejectsEpochMismatchAfterCommit(t *testing.T) {
	initiator := testAgent(1)
	s := New([]byte("test-group"), initiator)

	encrypted, err := SealDelta(s, []byte("payload-at-epoch-0"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	commit := s.Commit()
	if err := s.ApplyCommit(commit); err != nil {
		t.Fatalf("apply commit: %v", err)
	}

	_, err = OpenDelta(s, encrypted)
	mismatch, ok := err.(*EpochMismatchError)
	if !ok {
		t.Fatalf("expected *EpochMismatchError, got %T (%v)", err, err)
	}
	if mismatch.Current != 1 || mismatch.Received != 0 {
		t.Fatalf("unexpected mismatch fields: %+v", mismatch)
	}
}

func TestOpenDeltaRejectsWrongGroupID(t *testing.T) {
	initiator := testAgent(1)
	s := New([]byte("test-group"), initiator)

	encrypted, err := SealDelta(s, []byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	encrypted.GroupID = []byte("different-group")

	if _, err := OpenDelta(s, encrypted); err == nil {
		t.Fatalf("expected group ID mismatch error")
	}
}

func TestSealDeltaKeysRotateAcrossEpochs(t *testing.T) {
	initiator := testAgent(1)
	s := New([]byte("test-group"), initiator)

	atEpoch0, err := SealDelta(s, []byte("payload"))
	if err != nil {
		t.Fatalf("seal at epoch 0: %v", err)
	}

	commit := s.Commit()
	if err := s.ApplyCommit(commit); err != nil {
		t.Fatalf("apply commit: %v", err)
	}

	atEpoch1, err := SealDelta(s, []byte("payload"))
	if err != nil {
		t.Fatalf("seal at epoch 1: %v", err)
	}

	if string(atEpoch0.Ciphertext) == string(atEpoch1.Ciphertext) {
		t.Fatalf("expected epoch rotation to change ciphertext for identical plaintext")
	}
}

package identity

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDeriveIDIsDeterministic(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	a := kp.MachineId()
	b := MachineIdFromPublicKey(kp.PublicKeyBytes())
	if a != b {
		t.Fatalf("derivation not deterministic: %x != %x", a, b)
	}
}

func TestMachineAndAgentIdShareDerivation(t *testing.T) {
	// Same derivation function, but distinct types: a MachineId and an
	// AgentId from the same keypair are equal in bytes and differ only in
	// type — callers must not conflate the two at the type level.
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	mid := kp.MachineId()
	aid := kp.AgentId()
	if !bytes.Equal(mid.Bytes(), aid.Bytes()) {
		t.Fatalf("expected identical derivation for same public key")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	msg := []byte("task-list delta payload")
	sig := kp.Sign(msg)

	ok, err := Verify(kp.PublicKeyBytes(), msg, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}

	ok, err = Verify(kp.PublicKeyBytes(), []byte("tampered"), sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("expected signature over tampered message to fail")
	}
}

func TestVerifyRejectsWrongLengthKey(t *testing.T) {
	_, err := Verify([]byte("too-short"), []byte("msg"), []byte("sig"))
	if err == nil {
		t.Fatalf("expected error for malformed public key")
	}
	ce, ok := err.(*CodedError)
	if !ok || ce.Code != ErrCodeInvalidPubKey {
		t.Fatalf("expected %s coded error, got %v", ErrCodeInvalidPubKey, err)
	}
}

func TestKeyPairFromBytesRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	loaded, err := KeyPairFromBytes(kp.PublicKeyBytes(), kp.PrivateKeyBytes())
	if err != nil {
		t.Fatalf("KeyPairFromBytes: %v", err)
	}
	if loaded.MachineId() != kp.MachineId() {
		t.Fatalf("round-tripped keypair derives a different MachineId")
	}
	msg := []byte("round trip check")
	sig := loaded.Sign(msg)
	ok, err := Verify(kp.PublicKeyBytes(), msg, sig)
	if err != nil || !ok {
		t.Fatalf("round-tripped keypair failed to produce a verifiable signature: ok=%v err=%v", ok, err)
	}
}

func TestLoadOrCreateMachineKeyPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.key")

	first, err := LoadOrCreateMachineKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateMachineKey (create): %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %o", info.Mode().Perm())
	}

	second, err := LoadOrCreateMachineKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateMachineKey (load): %v", err)
	}
	if first.MachineId() != second.MachineId() {
		t.Fatalf("reloaded machine key derives a different identity")
	}
}

func TestDecodeMachineKeyRejectsTruncatedFile(t *testing.T) {
	_, err := decodeMachineKey([]byte{0x01, 0x02})
	if err == nil {
		t.Fatalf("expected error for truncated file")
	}
	ce, ok := err.(*CodedError)
	if !ok || ce.Code != ErrCodeSerialization {
		t.Fatalf("expected %s coded error, got %v", ErrCodeSerialization, err)
	}
}

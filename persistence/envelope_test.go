package persistence

import "testing"

func TestNewSnapshotEnvelopeVerifiesIntegrity(t *testing.T) {
	e := NewSnapshotEnvelope([]byte("hello world"))
	if err := e.VerifyIntegrity(); err != nil {
		t.Fatalf("expected integrity to verify, got %v", err)
	}
	if e.SchemaVersion != SchemaVersion || e.CodecMarker != CodecMarker {
		t.Fatalf("unexpected envelope metadata: %+v", e)
	}
}

func TestVerifyIntegrityDetectsTamperedPayload(t *testing.T) {
	e := NewSnapshotEnvelope([]byte("hello world"))
	e.Payload = []byte("tampered payload")
	if err := e.VerifyIntegrity(); err == nil {
		t.Fatalf("expected integrity mismatch for tampered payload")
	}
}

func TestVerifyIntegrityRejectsUnsupportedAlgorithm(t *testing.T) {
	e := NewSnapshotEnvelope([]byte("x"))
	e.Integrity.Algorithm = "sha1"
	if err := e.VerifyIntegrity(); err == nil {
		t.Fatalf("expected unsupported algorithm error")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	e := NewSnapshotEnvelope([]byte("roundtrip payload"))
	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	decoded, err := UnmarshalSnapshotEnvelope(data)
	if err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if err := decoded.VerifyIntegrity(); err != nil {
		t.Fatalf("expected decoded envelope to verify, got %v", err)
	}
	if string(decoded.Payload) != "roundtrip payload" {
		t.Fatalf("unexpected payload: %s", decoded.Payload)
	}
}

func TestLooksLikeLegacyEncryptedArtifactDetectsKnownShape(t *testing.T) {
	raw := []byte(`{"ciphertext":"abcd","nonce":"1234","key_id":"k1"}`)
	if !LooksLikeLegacyEncryptedArtifact(raw) {
		t.Fatalf("expected legacy artifact shape to be detected")
	}
}

func TestLooksLikeLegacyEncryptedArtifactRejectsPlainSnapshot(t *testing.T) {
	e := NewSnapshotEnvelope([]byte("x"))
	data, _ := e.Marshal()
	if LooksLikeLegacyEncryptedArtifact(data) {
		t.Fatalf("expected a plain snapshot envelope not to be misdetected as legacy")
	}
}

func TestLooksLikeLegacyEncryptedArtifactRejectsMissingCiphertext(t *testing.T) {
	raw := []byte(`{"nonce":"1234","key_id":"k1"}`)
	if LooksLikeLegacyEncryptedArtifact(raw) {
		t.Fatalf("expected missing ciphertext field to fail detection")
	}
}

func TestLooksLikeLegacyEncryptedArtifactRejectsInvalidJSON(t *testing.T) {
	if LooksLikeLegacyEncryptedArtifact([]byte("not json")) {
		t.Fatalf("expected invalid JSON to fail detection")
	}
}

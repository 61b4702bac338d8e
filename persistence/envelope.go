package persistence

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"
)

// SchemaVersion is the current SnapshotEnvelope schema version.
const SchemaVersion uint32 = 1

// CodecMarker names the opaque payload encoding: the payload's own schema
// is owned by the CRDT, not by this envelope.
const CodecMarker = "bincode"

// CodecVersion is the current payload codec version.
const CodecVersion uint32 = 1

// IntegrityAlgorithm is the only supported digest algorithm.
const IntegrityAlgorithm = "blake3"

// Integrity carries the digest algorithm and hex-encoded digest of the
// envelope's payload.
type Integrity struct {
	Algorithm string `json:"algorithm"`
	DigestHex string `json:"digest_hex"`
}

// SnapshotEnvelope is the self-describing JSON wrapper around an opaque
// binary CRDT snapshot (spec section 3/6).
type SnapshotEnvelope struct {
	SchemaVersion uint32    `json:"schema_version"`
	CodecMarker   string    `json:"codec_marker"`
	CodecVersion  uint32    `json:"codec_version"`
	Integrity     Integrity `json:"integrity"`
	Payload       []byte    `json:"payload"`
}

// NewSnapshotEnvelope wraps payload, computing its BLAKE3 digest.
func NewSnapshotEnvelope(payload []byte) SnapshotEnvelope {
	sum := blake3.Sum256(payload)
	return SnapshotEnvelope{
		SchemaVersion: SchemaVersion,
		CodecMarker:   CodecMarker,
		CodecVersion:  CodecVersion,
		Integrity: Integrity{
			Algorithm: IntegrityAlgorithm,
			DigestHex: hex.EncodeToString(sum[:]),
		},
		Payload: payload,
	}
}

// ErrIntegrityMismatch is returned by VerifyIntegrity when the payload's
// digest does not match the recorded one.
var ErrIntegrityMismatch = fmt.Errorf("snapshot integrity digest mismatch")

// VerifyIntegrity recomputes the payload's digest and compares it against
// the envelope's recorded digest.
func (e SnapshotEnvelope) VerifyIntegrity() error {
	if e.Integrity.Algorithm != IntegrityAlgorithm {
		return fmt.Errorf("unsupported integrity algorithm: %s", e.Integrity.Algorithm)
	}
	sum := blake3.Sum256(e.Payload)
	if hex.EncodeToString(sum[:]) != e.Integrity.DigestHex {
		return ErrIntegrityMismatch
	}
	return nil
}

// Marshal encodes the envelope as JSON.
func (e SnapshotEnvelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalSnapshotEnvelope decodes a JSON-encoded envelope.
func UnmarshalSnapshotEnvelope(data []byte) (SnapshotEnvelope, error) {
	var e SnapshotEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return SnapshotEnvelope{}, err
	}
	return e, nil
}

// LooksLikeLegacyEncryptedArtifact reports whether raw decodes as a JSON
// object carrying the telltale fields of a non-migratable legacy encrypted
// snapshot: "ciphertext", one of "nonce"/"iv", and one of
// "key_id"/"kdf"/"aad"/"encryption".
func LooksLikeLegacyEncryptedArtifact(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	if _, ok := obj["ciphertext"]; !ok {
		return false
	}
	if _, hasNonce := obj["nonce"]; !hasNonce {
		if _, hasIV := obj["iv"]; !hasIV {
			return false
		}
	}
	for _, key := range []string{"key_id", "kdf", "aad", "encryption"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

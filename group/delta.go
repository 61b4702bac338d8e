package group

import (
	"bytes"
	"encoding/binary"
)

const encryptedDeltaAADPrefix = "EncryptedDelta"

// EncryptedDelta is an AEAD-sealed payload bound to a specific (group,
// epoch) pair (spec section 4.12, C12). Payload is left opaque here: the
// caller is responsible for canonically serializing whatever delta it
// wraps (e.g. a crdt.Delta) before calling SealDelta, and deserializing
// the plaintext OpenDelta returns.
type EncryptedDelta struct {
	GroupID    []byte
	Epoch      uint64
	Ciphertext []byte
	AAD        []byte
}

func buildDeltaAAD(groupID []byte, epoch uint64) []byte {
	var buf bytes.Buffer
	buf.WriteString(encryptedDeltaAADPrefix)
	buf.Write(groupID)
	epochBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(epochBytes, epoch)
	buf.Write(epochBytes)
	return buf.Bytes()
}

// SealDelta encrypts serializedDelta under session's current epoch key
// schedule, using counter 0 since each delta is a self-contained message
// authenticated to its (group, epoch) pair.
func SealDelta(session *Session, serializedDelta []byte) (EncryptedDelta, error) {
	ctx := session.Context()
	aad := buildDeltaAAD(ctx.GroupID, ctx.Epoch)
	schedule := DeriveKeySchedule(ctx)

	ciphertext, err := Seal(schedule, serializedDelta, aad, 0)
	if err != nil {
		return EncryptedDelta{}, err
	}

	return EncryptedDelta{
		GroupID:    ctx.GroupID,
		Epoch:      ctx.Epoch,
		Ciphertext: ciphertext,
		AAD:        aad,
	}, nil
}

// OpenDelta validates encrypted against session's current (group, epoch),
// re-derives the schedule, and authenticates/decrypts the ciphertext.
func OpenDelta(session *Session, encrypted EncryptedDelta) ([]byte, error) {
	ctx := session.Context()
	if encrypted.Epoch != ctx.Epoch {
		return nil, &EpochMismatchError{Current: ctx.Epoch, Received: encrypted.Epoch}
	}
	if !bytes.Equal(encrypted.GroupID, ctx.GroupID) {
		return nil, &GroupIDMismatchError{}
	}

	aad := buildDeltaAAD(ctx.GroupID, ctx.Epoch)
	schedule := DeriveKeySchedule(ctx)
	return Open(schedule, encrypted.Ciphertext, aad, 0)
}

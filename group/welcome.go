package group

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"x0x/identity"

	"lukechampine.com/blake3"
)

// Welcome onboards a new member into a group: it carries the group secrets
// needed to derive the current key schedule, encrypted per-invitee so only
// the intended agent can decrypt them (spec section 3/6 Welcome, grounded
// on original_source/src/mls/welcome.rs). This is a deliberate
// simplification of full MLS welcome messages — no ratchet tree is
// transmitted, and group-secrets serialization is a concatenation of
// context fields rather than the full MLS key-package/HPKE construction.
type Welcome struct {
	GroupID               []byte
	Epoch                 uint64
	EncryptedGroupSecrets map[identity.AgentId][]byte
	Tree                  []byte
	ConfirmationTag       [32]byte
}

// CreateWelcome builds a Welcome admitting invitee into session's group at
// its current epoch.
func CreateWelcome(session *Session, invitee identity.AgentId) (Welcome, error) {
	ctx := session.Context()

	inviteeKey := deriveInviteeKey(invitee, ctx.GroupID, ctx.Epoch)
	aad := buildWelcomeAAD(ctx.GroupID, ctx.Epoch, invitee)

	secrets := serializeGroupSecrets(ctx)
	ciphertext, err := sealWithKey(inviteeKey, secrets, aad)
	if err != nil {
		return Welcome{}, err
	}

	return Welcome{
		GroupID: append([]byte{}, ctx.GroupID...),
		Epoch:   ctx.Epoch,
		EncryptedGroupSecrets: map[identity.AgentId][]byte{
			invitee: ciphertext,
		},
		Tree:            serializeTree(ctx),
		ConfirmationTag: confirmationTag(ctx, invitee),
	}, nil
}

// Verify checks the Welcome's structural invariants: a 32-byte
// confirmation tag, a non-empty group ID, a non-empty tree, and at least
// one encrypted secret. It does not authenticate any particular invitee.
func (w Welcome) Verify() error {
	if len(w.GroupID) == 0 {
		return fmt.Errorf("welcome: empty group_id")
	}
	if len(w.Tree) == 0 {
		return fmt.Errorf("welcome: empty tree")
	}
	if len(w.EncryptedGroupSecrets) == 0 {
		return fmt.Errorf("welcome: no encrypted secrets")
	}
	return nil
}

// Accept decrypts and reconstructs the group Context for agentID, the
// invitee this Welcome was created for.
func (w Welcome) Accept(agentID identity.AgentId) (Context, error) {
	if err := w.Verify(); err != nil {
		return Context{}, err
	}

	encrypted, ok := w.EncryptedGroupSecrets[agentID]
	if !ok {
		return Context{}, &MemberNotInGroupError{AgentID: agentID}
	}

	inviteeKey := deriveInviteeKey(agentID, w.GroupID, w.Epoch)
	aad := buildWelcomeAAD(w.GroupID, w.Epoch, agentID)

	secrets, err := openWithKey(inviteeKey, encrypted, aad)
	if err != nil {
		return Context{}, err
	}

	return deserializeGroupSecrets(secrets, w.GroupID, w.Epoch)
}

// deriveInviteeKey computes BLAKE3(invitee || group_id || epoch_le64 ||
// "welcome-key") as the per-invitee AEAD key (spec section 6 labels).
func deriveInviteeKey(invitee identity.AgentId, groupID []byte, epoch uint64) [32]byte {
	material := append([]byte{}, invitee[:]...)
	material = append(material, groupID...)
	material = append(material, epochLE(epoch)...)
	material = append(material, []byte("welcome-key")...)
	return blake3.Sum256(material)
}

func buildWelcomeAAD(groupID []byte, epoch uint64, invitee identity.AgentId) []byte {
	aad := []byte("MLS-Welcome")
	aad = append(aad, groupID...)
	aad = append(aad, epochLE(epoch)...)
	aad = append(aad, invitee[:]...)
	return aad
}

func confirmationTag(ctx Context, invitee identity.AgentId) [32]byte {
	material := []byte("MLS-Welcome-Tag")
	material = append(material, ctx.GroupID...)
	material = append(material, epochLE(ctx.Epoch)...)
	material = append(material, invitee[:]...)
	material = append(material, ctx.TreeHash...)
	material = append(material, ctx.ConfirmedTranscriptHash...)
	return blake3.Sum256(material)
}

func serializeGroupSecrets(ctx Context) []byte {
	out := append([]byte{}, ctx.GroupID...)
	out = append(out, epochLE(ctx.Epoch)...)
	out = append(out, ctx.TreeHash...)
	out = append(out, ctx.ConfirmedTranscriptHash...)
	return out
}

func deserializeGroupSecrets(secrets, expectedGroupID []byte, expectedEpoch uint64) (Context, error) {
	if len(secrets) < len(expectedGroupID)+8 {
		return Context{}, fmt.Errorf("welcome: invalid group secrets length")
	}

	offset := len(expectedGroupID)
	groupID := secrets[:offset]
	if !bytes.Equal(groupID, expectedGroupID) {
		return Context{}, fmt.Errorf("welcome: group ID mismatch")
	}

	epoch := binary.LittleEndian.Uint64(secrets[offset : offset+8])
	offset += 8
	if epoch != expectedEpoch {
		return Context{}, &EpochMismatchError{Current: expectedEpoch, Received: epoch}
	}

	remaining := secrets[offset:]
	half := len(remaining) / 2
	treeHash := append([]byte{}, remaining[:half]...)
	transcriptHash := append([]byte{}, remaining[half:]...)

	return Context{
		GroupID:                 append([]byte{}, groupID...),
		Epoch:                   epoch,
		TreeHash:                treeHash,
		ConfirmedTranscriptHash: transcriptHash,
	}, nil
}

func serializeTree(ctx Context) []byte {
	out := []byte("TREE")
	length := make([]byte, 4)
	binary.LittleEndian.PutUint32(length, uint32(len(ctx.GroupID)))
	out = append(out, length...)
	out = append(out, ctx.GroupID...)
	out = append(out, ctx.TreeHash...)
	return out
}

func sealWithKey(key [32]byte, plaintext, aad []byte) ([]byte, error) {
	schedule := KeySchedule{EncryptionKey: key}
	return Seal(schedule, plaintext, aad, 0)
}

func openWithKey(key [32]byte, ciphertext, aad []byte) ([]byte, error) {
	schedule := KeySchedule{EncryptionKey: key}
	return Open(schedule, ciphertext, aad, 0)
}

package group

import "lukechampine.com/blake3"

// KeySchedule is the deterministic per-epoch {key, base_nonce} pair derived
// from a group's context (spec section 4.11, C11).
type KeySchedule struct {
	Epoch         uint64
	PskIDHash     [32]byte
	Secret        [32]byte
	EncryptionKey [32]byte
	BaseNonce     [12]byte
}

// DeriveKeySchedule computes the key schedule for ctx's current epoch:
//
//	psk_id_hash    = H(group_id || epoch_le64)
//	secret         = H(group_id || tree_hash || transcript_hash || epoch_le64)
//	encryption_key = H(secret || "encryption" || epoch_le64)[0..32]
//	base_nonce     = H(secret || "nonce"      || epoch_le64)[0..12]
func DeriveKeySchedule(ctx Context) KeySchedule {
	epoch := epochLE(ctx.Epoch)

	pskMaterial := append(append([]byte{}, ctx.GroupID...), epoch...)
	pskIDHash := blake3.Sum256(pskMaterial)

	secretMaterial := append([]byte{}, ctx.GroupID...)
	secretMaterial = append(secretMaterial, ctx.TreeHash...)
	secretMaterial = append(secretMaterial, ctx.ConfirmedTranscriptHash...)
	secretMaterial = append(secretMaterial, epoch...)
	secret := blake3.Sum256(secretMaterial)

	keyMaterial := append(append([]byte{}, secret[:]...), []byte("encryption")...)
	keyMaterial = append(keyMaterial, epoch...)
	keyHash := blake3.Sum256(keyMaterial)

	nonceMaterial := append(append([]byte{}, secret[:]...), []byte("nonce")...)
	nonceMaterial = append(nonceMaterial, epoch...)
	nonceHash := blake3.Sum256(nonceMaterial)

	var schedule KeySchedule
	schedule.Epoch = ctx.Epoch
	schedule.PskIDHash = pskIDHash
	schedule.Secret = secret
	schedule.EncryptionKey = keyHash
	copy(schedule.BaseNonce[:], nonceHash[:12])
	return schedule
}

// DeriveNonce XORs counter's little-endian bytes into base_nonce[4..12],
// producing the unique per-message nonce for that counter (spec section
// 4.11). Counter reuse under the same key breaks AEAD security — callers
// must ensure uniqueness.
func (k KeySchedule) DeriveNonce(counter uint64) [12]byte {
	nonce := k.BaseNonce
	for i := 0; i < 8; i++ {
		nonce[4+i] ^= byte(counter >> (8 * i))
	}
	return nonce
}

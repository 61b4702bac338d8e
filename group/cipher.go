package group

import (
	"golang.org/x/crypto/chacha20poly1305"
)

// Seal encrypts plaintext under schedule's key/nonce-at-counter, binding
// aad as additional authenticated data. Returns ciphertext with the
// 16-byte authentication tag appended (spec section 4.11).
func Seal(schedule KeySchedule, plaintext, aad []byte, counter uint64) ([]byte, error) {
	aead, err := chacha20poly1305.New(schedule.EncryptionKey[:])
	if err != nil {
		return nil, err
	}
	nonce := schedule.DeriveNonce(counter)
	return aead.Seal(nil, nonce[:], plaintext, aad), nil
}

// Open decrypts and authenticates ciphertext under schedule's key/nonce-at-
// counter, against aad. Any authentication failure (tamper, wrong key,
// wrong AAD, wrong counter) surfaces uniformly as DecryptionError.
func Open(schedule KeySchedule, ciphertext, aad []byte, counter uint64) ([]byte, error) {
	aead, err := chacha20poly1305.New(schedule.EncryptionKey[:])
	if err != nil {
		return nil, err
	}
	nonce := schedule.DeriveNonce(counter)
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, aad)
	if err != nil {
		return nil, &DecryptionError{cause: err}
	}
	return plaintext, nil
}

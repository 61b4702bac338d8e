// Package identity derives stable 32-byte agent/machine identities from
// post-quantum public keys, the way core/security.go isolates signature
// algorithm quirks behind a small surface (Sign/Verify + one KeyAlgo).
//
// x0x uses a single PQ signature scheme everywhere (ML-DSA-65-class, backed
// by CIRCL's Dilithium mode3), so there is no KeyAlgo switch here — just a
// keypair type and the two ID derivations that wrap it.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"x0x/pkg/utils"
)

// idDomainSeparator matches the wire constant from spec section 6:
// "AUTONOMI_PEER_ID_V2:" prefixes every public key before hashing.
const idDomainSeparator = "AUTONOMI_PEER_ID_V2:"

// Error codes, stable per spec section 6.
const (
	ErrCodeKeyGeneration = "key_generation"
	ErrCodeInvalidPubKey = "invalid_public_key"
	ErrCodeInvalidSecKey = "invalid_secret_key"
	ErrCodeStorage       = "storage"
	ErrCodeSerialization = "serialization"
)

// CodedError pairs a stable error code with the underlying cause.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *CodedError) Unwrap() error { return e.Err }

func coded(code string, err error) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Err: err}
}

// MachineId is a host-pinned 32-byte identity, derived from a machine's
// ML-DSA-65-class public key. It never leaves the host it was generated on.
type MachineId [32]byte

// AgentId is a portable 32-byte identity, derived the same way as MachineId
// but intended to move across hosts with the agent it names.
type AgentId [32]byte

func derivePeerID(pubkey []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(idDomainSeparator))
	h.Write(pubkey)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// MachineIdFromPublicKey derives a MachineId from a raw ML-DSA-65-class
// public key encoding.
func MachineIdFromPublicKey(pubkey []byte) MachineId { return MachineId(derivePeerID(pubkey)) }

// AgentIdFromPublicKey derives an AgentId from a raw ML-DSA-65-class public
// key encoding.
func AgentIdFromPublicKey(pubkey []byte) AgentId { return AgentId(derivePeerID(pubkey)) }

func (id MachineId) Bytes() []byte    { return id[:] }
func (id MachineId) String() string   { return fmt.Sprintf("%x", id[:]) }
func (id AgentId) Bytes() []byte      { return id[:] }
func (id AgentId) String() string     { return fmt.Sprintf("%x", id[:]) }
func (id MachineId) IsZero() bool     { return id == MachineId{} }
func (id AgentId) IsZero() bool       { return id == AgentId{} }

// KeyPair wraps an ML-DSA-65-class (CIRCL Dilithium mode3) keypair. It is
// the common representation behind both MachineId and AgentId: which ID a
// keypair names depends only on whether the caller treats it as host-pinned
// or portable — the cryptographic material is identical.
type KeyPair struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

// GenerateKeyPair creates a fresh ML-DSA-65-class keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := mode3.GenerateKey(rand.Reader)
	if err != nil {
		return nil, coded(ErrCodeKeyGeneration, err)
	}
	return &KeyPair{pub: pub, priv: priv}, nil
}

// PublicKeyBytes returns the packed public key encoding used for ID
// derivation, signature verification, and on-disk storage.
func (k *KeyPair) PublicKeyBytes() []byte {
	var buf [mode3.PublicKeySize]byte
	k.pub.Pack(&buf)
	return buf[:]
}

// PrivateKeyBytes returns the packed secret key encoding used for on-disk
// storage. Callers must write this with restrictive file permissions.
func (k *KeyPair) PrivateKeyBytes() []byte {
	var buf [mode3.PrivateKeySize]byte
	k.priv.Pack(&buf)
	return buf[:]
}

// MachineId derives this keypair's MachineId.
func (k *KeyPair) MachineId() MachineId { return MachineIdFromPublicKey(k.PublicKeyBytes()) }

// AgentId derives this keypair's AgentId.
func (k *KeyPair) AgentId() AgentId { return AgentIdFromPublicKey(k.PublicKeyBytes()) }

// Sign authenticates msg with the keypair's secret key.
func (k *KeyPair) Sign(msg []byte) []byte {
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(k.priv, msg, sig)
	return sig
}

// Verify checks a signature produced by Sign against a raw public key
// encoding (as returned by PublicKeyBytes).
func Verify(pubkey, msg, sig []byte) (bool, error) {
	if len(pubkey) != mode3.PublicKeySize {
		return false, coded(ErrCodeInvalidPubKey, fmt.Errorf("want %d bytes, got %d", mode3.PublicKeySize, len(pubkey)))
	}
	var pk mode3.PublicKey
	var packed [mode3.PublicKeySize]byte
	copy(packed[:], pubkey)
	pk.Unpack(packed[:])
	return mode3.Verify(&pk, msg, sig), nil
}

// KeyPairFromBytes reconstructs a KeyPair from packed public/secret key
// encodings, as loaded from the machine-key file.
func KeyPairFromBytes(pubkey, seckey []byte) (*KeyPair, error) {
	if len(pubkey) != mode3.PublicKeySize {
		return nil, coded(ErrCodeInvalidPubKey, fmt.Errorf("want %d bytes, got %d", mode3.PublicKeySize, len(pubkey)))
	}
	if len(seckey) != mode3.PrivateKeySize {
		return nil, coded(ErrCodeInvalidSecKey, fmt.Errorf("want %d bytes, got %d", mode3.PrivateKeySize, len(seckey)))
	}
	var pub mode3.PublicKey
	var packedPub [mode3.PublicKeySize]byte
	copy(packedPub[:], pubkey)
	pub.Unpack(packedPub[:])

	var priv mode3.PrivateKey
	var packedPriv [mode3.PrivateKeySize]byte
	copy(packedPriv[:], seckey)
	priv.Unpack(packedPriv[:])

	return &KeyPair{pub: &pub, priv: &priv}, nil
}

// DefaultMachineKeyPath returns "<home>/.x0x/machine.key", the well-known
// path named in spec section 6. It is treated here as a plain configuration
// input rather than read transparently (design note in spec section 9:
// "Global-ish state").
func DefaultMachineKeyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", coded(ErrCodeStorage, err)
	}
	dir := utils.EnvOrDefault("X0X_HOME", filepath.Join(home, ".x0x"))
	return filepath.Join(dir, "machine.key"), nil
}

// LoadOrCreateMachineKey loads a keypair from path, generating and
// persisting a new one with mode 0600 if it does not exist. The builder
// (spec section 9, "async consume-on-call builder") treats this as an
// explicit, one-shot configuration step — not a transparent global read.
func LoadOrCreateMachineKey(path string) (*KeyPair, error) {
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		kp, genErr := GenerateKeyPair()
		if genErr != nil {
			return nil, genErr
		}
		if saveErr := saveMachineKey(path, kp); saveErr != nil {
			return nil, saveErr
		}
		return kp, nil
	case err != nil:
		return nil, coded(ErrCodeStorage, err)
	}
	return decodeMachineKey(raw)
}

// saveMachineKey writes the on-disk layout: a 4-byte little-endian length of
// the public key, the public key, then the secret key, matching the style of a simple self-describing
// binary blob (no JSON for key material; JSON is reserved for the snapshot
// envelope's metadata per spec section 3).
func saveMachineKey(path string, kp *KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return coded(ErrCodeStorage, err)
	}
	pub := kp.PublicKeyBytes()
	priv := kp.PrivateKeyBytes()
	buf := make([]byte, 0, 4+len(pub)+len(priv))
	buf = append(buf, byte(len(pub)), byte(len(pub)>>8), byte(len(pub)>>16), byte(len(pub)>>24))
	buf = append(buf, pub...)
	buf = append(buf, priv...)
	return coded(ErrCodeStorage, os.WriteFile(path, buf, 0o600))
}

func decodeMachineKey(raw []byte) (*KeyPair, error) {
	if len(raw) < 4 {
		return nil, coded(ErrCodeSerialization, fmt.Errorf("machine key file truncated"))
	}
	pubLen := int(raw[0]) | int(raw[1])<<8 | int(raw[2])<<16 | int(raw[3])<<24
	raw = raw[4:]
	if pubLen < 0 || pubLen > len(raw) {
		return nil, coded(ErrCodeSerialization, fmt.Errorf("machine key file corrupt"))
	}
	pub, priv := raw[:pubLen], raw[pubLen:]
	return KeyPairFromBytes(pub, priv)
}

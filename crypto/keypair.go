// Package crypto adapts the cryptographic primitives the blockchain core
// depends on (SHA-256 digests and secp256k1 ECDSA) behind a small interface,
// so the rest of the module never imports an elliptic-curve library directly.
package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	ecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
)

// PubKeyLen is the length of an uncompressed secp256k1 public key (0x04 || X || Y).
const PubKeyLen = 65

// SigMaxLen is the maximum length of a DER-encoded ECDSA signature this
// module will ever produce or accept.
const SigMaxLen = 72

// Signature is a DER-encoded ECDSA signature together with its actual
// length, mirroring the fixed `sig: [u8;72]` / `len: u8` wire pair.
type Signature struct {
	Bytes [SigMaxLen]byte
	Len   uint8
}

// DER returns the signature's meaningful bytes, trimmed to Len.
func (s Signature) DER() []byte {
	return s.Bytes[:s.Len]
}

// KeyPair wraps a secp256k1 private key. A KeyPair built from a public key
// only (via FromPublicKeyBytes) has a nil Private and can verify but not sign.
type KeyPair struct {
	Private *btcec.PrivateKey
	Public  *btcec.PublicKey
}

// GenerateKeyPair creates a fresh, random secp256k1 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, chainerr.New(chainerr.CryptoFailure, "GenerateKeyPair", err)
	}
	return &KeyPair{Private: priv, Public: priv.PubKey()}, nil
}

// PublicKeyBytes returns the 65-byte uncompressed encoding (0x04 || X || Y).
func (kp *KeyPair) PublicKeyBytes() [PubKeyLen]byte {
	var out [PubKeyLen]byte
	copy(out[:], kp.Public.SerializeUncompressed())
	return out
}

// FromPublicKeyBytes reconstructs a public-key-only KeyPair from its
// 65-byte uncompressed encoding. The resulting KeyPair can Verify but
// any call to Sign fails with InvalidArgument.
func FromPublicKeyBytes(pub [PubKeyLen]byte) (*KeyPair, error) {
	parsed, err := btcec.ParsePubKey(pub[:])
	if err != nil {
		return nil, chainerr.New(chainerr.CryptoFailure, "FromPublicKeyBytes", err)
	}
	return &KeyPair{Public: parsed}, nil
}

// SHA256 computes the 32-byte SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Sign signs a 32-byte digest directly (no internal re-hash — the caller is
// responsible for passing an already-hashed digest, per §4.1/§9 of the spec).
func (kp *KeyPair) Sign(digest [32]byte) (Signature, error) {
	var sig Signature
	if kp.Private == nil {
		return sig, chainerr.New(chainerr.InvalidArgument, "Sign", fmt.Errorf("key pair has no private key"))
	}
	der := ecdsa.Sign(kp.Private, digest[:]).Serialize()
	if len(der) > SigMaxLen {
		return sig, chainerr.New(chainerr.CryptoFailure, "Sign", fmt.Errorf("signature of %d bytes exceeds %d-byte cap", len(der), SigMaxLen))
	}
	copy(sig.Bytes[:], der)
	sig.Len = uint8(len(der))
	return sig, nil
}

// VerifySignature checks sig against digest under the public key pub.
func VerifySignature(pub [PubKeyLen]byte, digest [32]byte, sig Signature) bool {
	parsed, err := btcec.ParsePubKey(pub[:])
	if err != nil {
		return false
	}
	parsedSig, err := ecdsa.ParseDERSignature(sig.DER())
	if err != nil {
		return false
	}
	return parsedSig.Verify(digest[:], parsed)
}

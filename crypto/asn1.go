package crypto

import (
	"encoding/asn1"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// secp256k1 is not one of the four NIST curves crypto/x509 recognizes by
// identity (P224/P256/P384/P521), so its MarshalECPrivateKey/
// MarshalPKIXPublicKey/ParseECPrivateKey all fail on this module's only key
// type with "unknown elliptic curve". These two ASN.1 shapes — RFC 5915's
// ECPrivateKey and RFC 5480's SubjectPublicKeyInfo, the same structures
// OpenSSL's PEM_write_ECPrivateKey/PEM_write_EC_PUBKEY emit for
// NID_secp256k1 — are encoded/decoded by hand instead.
var (
	oidNamedCurveSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
	oidPublicKeyECDSA      = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
)

type sec1ECPrivateKey struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

type pkixAlgorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

type pkixPublicKey struct {
	Algorithm pkixAlgorithmIdentifier
	PublicKey asn1.BitString
}

// marshalSEC1PrivateKey produces the DER body of an "EC PRIVATE KEY" PEM
// block for kp.
func marshalSEC1PrivateKey(kp *KeyPair) ([]byte, error) {
	pub := kp.Public.SerializeUncompressed()
	return asn1.Marshal(sec1ECPrivateKey{
		Version:       1,
		PrivateKey:    kp.Private.Serialize(),
		NamedCurveOID: oidNamedCurveSecp256k1,
		PublicKey:     asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
}

// parseSEC1PrivateKey reconstructs a KeyPair from the DER body of an
// "EC PRIVATE KEY" PEM block, rejecting anything not tagged secp256k1.
func parseSEC1PrivateKey(der []byte) (*KeyPair, error) {
	var parsed sec1ECPrivateKey
	rest, err := asn1.Unmarshal(der, &parsed)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing data after EC private key")
	}
	if !parsed.NamedCurveOID.Equal(oidNamedCurveSecp256k1) {
		return nil, fmt.Errorf("unsupported curve OID %v, want secp256k1", parsed.NamedCurveOID)
	}
	priv, pub := btcec.PrivKeyFromBytes(parsed.PrivateKey)
	return &KeyPair{Private: priv, Public: pub}, nil
}

// marshalPKIXPublicKey produces the DER body of a "PUBLIC KEY" PEM block
// for kp.
func marshalPKIXPublicKey(kp *KeyPair) ([]byte, error) {
	pub := kp.Public.SerializeUncompressed()
	return asn1.Marshal(pkixPublicKey{
		Algorithm: pkixAlgorithmIdentifier{Algorithm: oidPublicKeyECDSA, Parameters: oidNamedCurveSecp256k1},
		PublicKey: asn1.BitString{Bytes: pub, BitLength: len(pub) * 8},
	})
}

package crypto

import (
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/holbertonschool/atlas-blockchain/chainerr"
)

const (
	privateKeyFile = "key.pem"
	publicKeyFile  = "key_pub.pem"
	keyDirMode     = 0755
	keyFileMode    = 0644
)

// SaveKeyPair persists kp under dir as two PEM files, key.pem (EC PRIVATE KEY)
// and key_pub.pem (PUBLIC KEY), creating dir (mode 0755) if it does not exist.
func SaveKeyPair(kp *KeyPair, dir string) error {
	if kp == nil || kp.Private == nil {
		return chainerr.New(chainerr.InvalidArgument, "SaveKeyPair", fmt.Errorf("key pair has no private key to save"))
	}
	if err := os.MkdirAll(dir, keyDirMode); err != nil {
		return chainerr.New(chainerr.IoFailure, "SaveKeyPair", err)
	}

	privDER, err := marshalSEC1PrivateKey(kp)
	if err != nil {
		return chainerr.New(chainerr.CryptoFailure, "SaveKeyPair", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privPEM, keyFileMode); err != nil {
		return chainerr.New(chainerr.IoFailure, "SaveKeyPair", err)
	}

	pubDER, err := marshalPKIXPublicKey(kp)
	if err != nil {
		return chainerr.New(chainerr.CryptoFailure, "SaveKeyPair", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), pubPEM, keyFileMode); err != nil {
		return chainerr.New(chainerr.IoFailure, "SaveKeyPair", err)
	}
	return nil
}

// LoadKeyPair reads key.pem from dir and reconstructs the key pair. The
// public key file is not consulted — the private key determines both.
func LoadKeyPair(dir string) (*KeyPair, error) {
	raw, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, chainerr.New(chainerr.IoFailure, "LoadKeyPair", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, chainerr.New(chainerr.FormatError, "LoadKeyPair", fmt.Errorf("%s is not a PEM-encoded EC private key", privateKeyFile))
	}
	kp, err := parseSEC1PrivateKey(block.Bytes)
	if err != nil {
		return nil, chainerr.New(chainerr.FormatError, "LoadKeyPair", err)
	}
	return kp, nil
}

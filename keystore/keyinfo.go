package keystore

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/gridprotocol/computing-evaluator/lib/attest"
)

type KeyType string

const Ed25519 KeyType = "ed25519"

// KeyInfo is used for storing keys in KeyStore
type KeyInfo struct {
	Type      KeyType
	SecretKey ed25519.PrivateKey
}

// create a keyinfo with a fresh key
func NewKey() (*KeyInfo, error) {
	_, sk, err := attest.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &KeyInfo{Type: Ed25519, SecretKey: sk}, nil
}

// import a keyinfo from any supported private key encoding
func Import(b []byte) (*KeyInfo, error) {
	sk, err := attest.LoadPrivateKey(b)
	if err != nil {
		return nil, err
	}
	return &KeyInfo{Type: Ed25519, SecretKey: sk}, nil
}

func (ki KeyInfo) PublicKey() ed25519.PublicKey {
	return ki.SecretKey.Public().(ed25519.PublicKey)
}

// hex of the public key, used when printing
func (ki KeyInfo) ID() string {
	return hex.EncodeToString(ki.PublicKey())
}

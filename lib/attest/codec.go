package attest

import (
	"crypto/ed25519"
	"encoding/base64"

	"golang.org/x/xerrors"
)

// Sign signs the canonical form of rec and returns the base64 signature.
func Sign(rec *Record, sk ed25519.PrivateKey) (string, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return "", keyFormatError(nil, "private key size %d", len(sk))
	}
	sig := ed25519.Sign(sk, []byte(Canonicalize(rec)))
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignRecord signs rec and stores the result in its signature field.
func SignRecord(rec *Record, sk ed25519.PrivateKey) error {
	if rec == nil {
		return xerrors.New("sign: nil record")
	}
	sig, err := Sign(rec, sk)
	if err != nil {
		return err
	}
	rec.Set(FieldSignature, String(sig))
	return nil
}

// Verify checks sig against the canonical form of rec. Every failure,
// including malformed input, yields false.
func Verify(rec *Record, sig string, pk ed25519.PublicKey) bool {
	if len(pk) != ed25519.PublicKeySize || sig == "" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pk, []byte(Canonicalize(rec)), raw)
}

// VerifyRecord verifies rec against the signature it carries.
func VerifyRecord(rec *Record, pk ed25519.PublicKey) bool {
	sig, ok := rec.Field(FieldSignature).AsString()
	if !ok {
		return false
	}
	return Verify(rec, sig, pk)
}

package attest

import (
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/xerrors"
)

const (
	NonceSize = 16
	// DefaultFreshnessWindow is the maximum response age in milliseconds.
	DefaultFreshnessWindow int64 = 10_000
)

// NewNonce returns 16 random bytes, base64url encoded.
func NewNonce() (string, error) {
	b := make([]byte, NonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", xerrors.Errorf("read random nonce: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CheckFreshness rejects a response whose echoed nonce differs from the
// one sent or whose timestamp (ms) is older than maxAgeMillis. A missing
// timestamp counts as zero; a negative one is always stale.
func CheckFreshness(rec *Record, expectedNonce string, nowMillis, maxAgeMillis int64) bool {
	if expectedNonce == "" {
		return false
	}
	nonce, ok := rec.Field(FieldNonce).AsString()
	if !ok || nonce != expectedNonce {
		return false
	}
	ts, _ := rec.Field(FieldTimestamp).AsInt()
	if ts < 0 {
		return false
	}
	return nowMillis-ts <= maxAgeMillis
}

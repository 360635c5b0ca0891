// Package auth signs and checks admin requests with a shared HMAC secret.
package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

const (
	HeaderSignature = "X-Admin-Signature"
	HeaderTimestamp = "X-Admin-Timestamp"

	// DefaultWindow is the accepted clock skew in seconds.
	DefaultWindow int64 = 300
)

var (
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenExpired  = errors.New("token is expired")
	ErrEmptySecret   = errors.New("HS256 secret is empty")
	ErrMissingHeader = errors.New("missing admin headers")
)

// SigningString binds the method, path, unix timestamp and body digest of
// a request.
func SigningString(method, path string, ts int64, body []byte) string {
	sum := sha256.Sum256(body)
	return strings.ToUpper(method) + "\n" + path + "\n" + strconv.FormatInt(ts, 10) + "\n" + hex.EncodeToString(sum[:])
}

// SignRequest returns the HS256 token for a request.
func SignRequest(secret []byte, method, path string, ts int64, body []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	hasher := hmac.New(crypto.SHA256.New, secret)
	hasher.Write([]byte(SigningString(method, path, ts, body)))
	return EncodeSegment(hasher.Sum(nil)), nil
}

// VerifyRequest checks token against the request and rejects timestamps
// more than window seconds away from now.
func VerifyRequest(secret []byte, method, path, tsHeader, token string, body []byte, now, window int64) error {
	if len(secret) == 0 {
		return ErrEmptySecret
	}
	if tsHeader == "" || token == "" {
		return ErrMissingHeader
	}
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return ErrTokenInvalid
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if d := now - ts; d > window || d < -window {
		return ErrTokenExpired
	}

	sig, err := DecodeSegment(token)
	if err != nil {
		return ErrTokenInvalid
	}
	hasher := hmac.New(crypto.SHA256.New, secret)
	hasher.Write([]byte(SigningString(method, path, ts, body)))
	if !hmac.Equal(sig, hasher.Sum(nil)) {
		return ErrTokenInvalid
	}
	return nil
}

// EncodeSegment is base64url with padding stripped.
func EncodeSegment(seg []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(seg), "=")
}

func DecodeSegment(seg string) ([]byte, error) {
	if l := len(seg) % 4; l > 0 {
		seg += strings.Repeat("=", 4-l)
	}
	return base64.URLEncoding.DecodeString(seg)
}

package attest

import "fmt"

// KeyFormatError reports key material that could not be parsed or has
// the wrong size.
type KeyFormatError struct {
	Reason string
	Err    error
}

func (e *KeyFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid ed25519 key: %s: %v", e.Reason, e.Err)
	}
	return "invalid ed25519 key: " + e.Reason
}

func (e *KeyFormatError) Unwrap() error { return e.Err }

func keyFormatError(err error, format string, args ...interface{}) error {
	return &KeyFormatError{Reason: fmt.Sprintf(format, args...), Err: err}
}

package attest

import (
	"sort"
	"strings"
)

// Canonicalize renders a record as the message that gets signed: every
// non-null field except the signature as key=value, sorted by key,
// joined with '&'.
func Canonicalize(rec *Record) string {
	keys := make([]string, 0, rec.Len())
	for _, k := range rec.Keys() {
		if k == FieldSignature {
			continue
		}
		if rec.Field(k).IsNull() {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(rec.Field(k).String())
	}
	return sb.String()
}

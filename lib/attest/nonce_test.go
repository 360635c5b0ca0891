package attest

import (
	"encoding/base64"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNonce(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		n, err := NewNonce()
		require.NoError(t, err)
		raw, err := base64.URLEncoding.DecodeString(n)
		require.NoError(t, err)
		require.Len(t, raw, NonceSize)
		_, dup := seen[n]
		require.False(t, dup)
		seen[n] = struct{}{}
	}
}

func TestCheckFreshness(t *testing.T) {
	const now = int64(1_700_000_010_000)
	rec := func(nonce string, ts int64) *Record {
		return NewRecord().Set(FieldNonce, String(nonce)).Set(FieldTimestamp, Int(ts))
	}

	require.True(t, CheckFreshness(rec("n", now), "n", now, DefaultFreshnessWindow))
	require.True(t, CheckFreshness(rec("n", now-10_000), "n", now, DefaultFreshnessWindow))
	require.False(t, CheckFreshness(rec("n", now-10_001), "n", now, DefaultFreshnessWindow))
	require.False(t, CheckFreshness(rec("other", now), "n", now, DefaultFreshnessWindow))
	require.False(t, CheckFreshness(rec("", now), "", now, DefaultFreshnessWindow))

	// configurable window
	require.True(t, CheckFreshness(rec("n", now-30_000), "n", now, 60_000))

	// missing timestamp is stale
	require.False(t, CheckFreshness(NewRecord().Set(FieldNonce, String("n")), "n", now, DefaultFreshnessWindow))
	// timestamps that would wrap the age computation are stale
	require.False(t, CheckFreshness(rec("n", math.MinInt64), "n", now, DefaultFreshnessWindow))
	require.False(t, CheckFreshness(rec("n", math.MinInt64+now), "n", now, DefaultFreshnessWindow))
	require.False(t, CheckFreshness(rec("n", -1), "n", now, DefaultFreshnessWindow))
	// nonce must be a string
	require.False(t, CheckFreshness(NewRecord().Set(FieldNonce, Int(1)).Set(FieldTimestamp, Int(now)), "1", now, DefaultFreshnessWindow))
}

func TestStaleButValidlySignedIsRejected(t *testing.T) {
	pk, sk, err := GenerateKey()
	require.NoError(t, err)

	const now = int64(1_700_000_100_000)
	r := NewRecord().Set(FieldNonce, String("abc")).Set(FieldTimestamp, Int(now-20_000))
	require.NoError(t, SignRecord(r, sk))

	require.True(t, VerifyRecord(r, pk))
	require.False(t, CheckFreshness(r, "abc", now, DefaultFreshnessWindow))
	require.False(t, CheckFreshness(r, "xyz", now+1_000_000, 10_000_000))
}

package attest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSortsAndJoins(t *testing.T) {
	rec := NewRecord().Set("b", Int(2)).Set("a", Int(1))
	require.Equal(t, "a=1&b=2", Canonicalize(rec))
}

func TestCanonicalizeValueRendering(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	rec := NewRecord().
		Set("flag", Bool(true)).
		Set("off", Bool(false)).
		Set("count", Int(-42)).
		Set("ratio", Float(0.25)).
		Set("whole", Float(100)).
		Set("at", Time(ts)).
		Set("at0", Time(ts.Truncate(time.Second))).
		Set("name", String("gpu node")).
		Set("gpu", Raw(`[{"model":"X"}]`)).
		Set("missing", Null()).
		Set("signature", String("ignored"))

	require.Equal(t,
		"at=2024-05-06T07:08:09.123456+00:00"+
			"&at0=2024-05-06T07:08:09+00:00"+
			"&count=-42"+
			"&flag=true"+
			`&gpu=[{"model":"X"}]`+
			"&name=gpu node"+
			"&off=false"+
			"&ratio=0.25"+
			"&whole=100.0",
		Canonicalize(rec))
}

func TestCanonicalizeNonFiniteFloats(t *testing.T) {
	rec := NewRecord().Set("a", Float(math.NaN())).Set("b", Float(math.Inf(1))).Set("c", Float(math.Inf(-1)))
	require.Equal(t, "a=nan&b=inf&c=-inf", Canonicalize(rec))
}

func TestCanonicalizeFloatExponentForm(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{-0.000012, "-1.2e-05"},
		{1e15, "1000000000000000.0"},
		{9999999999999998, "9999999999999998.0"},
		{1e16, "1e+16"},
		{1.5e16, "1.5e+16"},
		{1e100, "1e+100"},
		{0.1 + 0.2, "0.30000000000000004"},
	}
	for _, c := range cases {
		require.Equal(t, "v="+c.want, Canonicalize(NewRecord().Set("v", Float(c.in))), c.want)
	}
}

func TestCanonicalizeOrderIndependent(t *testing.T) {
	fields := []struct {
		k string
		v Value
	}{
		{"nonce", String("abc")},
		{"timestamp", Int(1700000000000)},
		{"ip", String("10.0.0.1")},
		{"containers", Raw(`[{"status":1,"uptime":5}]`)},
		{"ok", Bool(true)},
	}

	forward := NewRecord()
	for _, f := range fields {
		forward.Set(f.k, f.v)
	}
	backward := NewRecord()
	for i := len(fields) - 1; i >= 0; i-- {
		backward.Set(fields[i].k, fields[i].v)
	}

	require.Equal(t, Canonicalize(forward), Canonicalize(backward))
}

func TestCanonicalizeEmptyAndNil(t *testing.T) {
	require.Equal(t, "", Canonicalize(nil))
	require.Equal(t, "", Canonicalize(NewRecord().Set("signature", String("x"))))
}

func TestRecordJSONKeepsCanonicalForm(t *testing.T) {
	in := []byte(`{"nonce":"n1","timestamp":1700000000123,"ratio":1.0,"load":0.5,"ok":true,` +
		`"gpu":[ {"model" : "H100"} ],"ip":null,"signature":"abc"}`)

	var rec Record
	require.NoError(t, rec.UnmarshalJSON(in))
	require.Equal(t, []string{"nonce", "timestamp", "ratio", "load", "ok", "gpu", "ip", "signature"}, rec.Keys())
	require.Equal(t, KindInt, rec.Field("timestamp").Kind())
	require.Equal(t, KindFloat, rec.Field("ratio").Kind())
	require.Equal(t, `gpu=[{"model":"H100"}]`, Canonicalize(NewRecord().Set("gpu", rec.Field("gpu"))))

	out, err := rec.MarshalJSON()
	require.NoError(t, err)

	var again Record
	require.NoError(t, again.UnmarshalJSON(out))
	require.Equal(t, Canonicalize(&rec), Canonicalize(&again))
	require.Equal(t, "1.0", again.Field("ratio").String())
}

func TestRecordRejectsNonObject(t *testing.T) {
	var rec Record
	require.Error(t, rec.UnmarshalJSON([]byte(`[1,2]`)))
	require.Error(t, rec.UnmarshalJSON([]byte(`{"a":}`)))
}

func TestRecordSetDelete(t *testing.T) {
	rec := NewRecord().Set("a", Int(1)).Set("b", Int(2)).Set("a", Int(3))
	require.Equal(t, []string{"a", "b"}, rec.Keys())
	require.Equal(t, "3", rec.Field("a").String())

	rec.Delete("a")
	require.Equal(t, []string{"b"}, rec.Keys())
	require.True(t, rec.Field("a").IsNull())
}

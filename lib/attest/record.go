package attest

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

// well-known record fields
const (
	FieldSignature = "signature"
	FieldNonce     = "nonce"
	FieldTimestamp = "timestamp"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindTime
	KindString
	// KindRaw holds a nested JSON array or object as its compact text.
	KindRaw
)

// Value is a closed variant over the primitive types a Record may carry.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	t    time.Time
	s    string
}

func Null() Value              { return Value{} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func Time(t time.Time) Value   { return Value{kind: KindTime, t: t} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Raw(compact string) Value { return Value{kind: KindRaw, s: compact} }

// RawJSON compacts a JSON document and wraps it as a raw value.
func RawJSON(b []byte) (Value, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return Value{}, err
	}
	return Raw(buf.String()), nil
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInt returns integers as-is and floats truncated toward zero.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return 0, false
		}
		return int64(v.f), true
	}
	return 0, false
}

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) AsTime() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// AsRaw returns the compact JSON text of a nested value.
func (v Value) AsRaw() ([]byte, bool) {
	if v.kind != KindRaw {
		return nil, false
	}
	return []byte(v.s), true
}

// Truthy reports whether the value counts as set: true, non-zero,
// non-empty.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0 && !math.IsNaN(v.f)
	case KindTime:
		return !v.t.IsZero()
	case KindString:
		return v.s != ""
	case KindRaw:
		return v.s != "[]" && v.s != "{}" && v.s != ""
	}
	return false
}

// String renders the value the way it appears in a canonical form.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindTime:
		return formatTime(v.t)
	case KindString, KindRaw:
		return v.s
	}
	return ""
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	// shortest round-trip digits; scientific form outside [1e-4, 1e16)
	e := strconv.FormatFloat(f, 'e', -1, 64)
	if exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:]); err == nil && (exp < -4 || exp >= 16) {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ISO-8601 with microsecond precision and a numeric offset; the
// fraction is omitted when it is zero.
func formatTime(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02T15:04:05-07:00")
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}

// Record is an ordered mapping from field name to Value.
type Record struct {
	keys []string
	vals map[string]Value
}

func NewRecord() *Record {
	return &Record{vals: make(map[string]Value)}
}

// Set stores v under k. Overwriting keeps the original position.
func (r *Record) Set(k string, v Value) *Record {
	if r.vals == nil {
		r.vals = make(map[string]Value)
	}
	if _, ok := r.vals[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.vals[k] = v
	return r
}

func (r *Record) Get(k string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.vals[k]
	return v, ok
}

// Field returns the value under k, null when missing.
func (r *Record) Field(k string) Value {
	v, _ := r.Get(k)
	return v
}

func (r *Record) Delete(k string) {
	if r == nil {
		return
	}
	if _, ok := r.vals[k]; !ok {
		return
	}
	delete(r.vals, k)
	for i, key := range r.keys {
		if key == k {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

func (r *Record) Clone() *Record {
	c := NewRecord()
	if r == nil {
		return c
	}
	for _, k := range r.keys {
		c.Set(k, r.vals[k])
	}
	return c
}

// MarshalJSON writes the fields in insertion order. Floats always carry
// a fraction or exponent so they decode back as floats.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		v := r.vals[k]
		switch v.kind {
		case KindNull:
			buf.WriteString("null")
		case KindBool, KindInt:
			buf.WriteString(v.String())
		case KindFloat:
			if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
				return nil, xerrors.Errorf("field %q: unsupported float value %v", k, v.f)
			}
			buf.WriteString(formatFloat(v.f))
		case KindTime, KindString:
			sb, err := json.Marshal(v.String())
			if err != nil {
				return nil, err
			}
			buf.Write(sb)
		case KindRaw:
			buf.WriteString(v.s)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping field order. Integral number
// literals become Int, other numbers Float, arrays and objects Raw.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return xerrors.Errorf("record: expected object, got %v", tok)
	}

	out := NewRecord()
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return xerrors.Errorf("record: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return xerrors.Errorf("record: field %q: %w", key, err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return xerrors.Errorf("record: field %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = *out
	return nil
}

func decodeValue(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Value{}, xerrors.New("empty value")
	}
	switch raw[0] {
	case 'n':
		return Null(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case '{', '[':
		return RawJSON(raw)
	}

	lit := string(raw)
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, xerrors.Errorf("invalid number %q: %w", lit, err)
	}
	return Float(f), nil
}

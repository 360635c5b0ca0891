// Package protocol holds the probe payloads exchanged between the
// evaluator and computing providers.
package protocol

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/gridprotocol/computing-evaluator/lib/attest"
	"golang.org/x/xerrors"
)

const (
	// MethodConfig is the only probe method providers answer.
	MethodConfig = "config"
	// DefaultPath is where providers serve probes.
	DefaultPath = "/v1/agent/miner"

	ContainerRunning = 1
	// StatusOther marks a status that is not a whole number.
	StatusOther = -1

	FieldContainers = "containers"
	FieldGpu        = "gpu"
	FieldIP         = "ip"
)

type ProbeParams struct {
	Nonce string `json:"nonce"`
}

// ProbeRequest is sent to every peer; the method name and the nonce field
// are part of the contract with providers.
type ProbeRequest struct {
	URL    string      `json:"url"`
	Method string      `json:"method"`
	Params ProbeParams `json:"params"`
}

func NewProbeRequest(url, nonce string) *ProbeRequest {
	return &ProbeRequest{
		URL:    url,
		Method: MethodConfig,
		Params: ProbeParams{Nonce: nonce},
	}
}

// RawResponse is a provider reply before any verification.
type RawResponse struct {
	Status bool           `json:"status"`
	Msg    string         `json:"msg,omitempty"`
	Data   *attest.Record `json:"data,omitempty"`
}

// UnmarshalJSON accepts any truthy status value and keeps the data
// record's field order. A missing data object decodes as empty.
func (r *RawResponse) UnmarshalJSON(b []byte) error {
	var env attest.Record
	if err := env.UnmarshalJSON(b); err != nil {
		return err
	}

	data := attest.NewRecord()
	if raw, ok := env.Field("data").AsRaw(); ok {
		if err := data.UnmarshalJSON(raw); err != nil {
			return xerrors.Errorf("response data: %w", err)
		}
	}

	msg, _ := env.Field("msg").AsString()
	*r = RawResponse{
		Status: env.Field("status").Truthy(),
		Msg:    msg,
		Data:   data,
	}
	return nil
}

type ContainerStatus struct {
	Status int   `json:"status"`
	Uptime int64 `json:"uptime"` // seconds
}

func (c ContainerStatus) Running() bool {
	return c.Status == ContainerRunning
}

// UnmarshalJSON reads any status value: whole numbers keep their value,
// true counts as 1 and everything else becomes StatusOther. Uptime may be
// any JSON number; it must be numeric only for running containers.
func (c *ContainerStatus) UnmarshalJSON(b []byte) error {
	var raw struct {
		Status json.RawMessage `json:"status"`
		Uptime json.RawMessage `json:"uptime"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	st := ContainerStatus{Status: statusCode(raw.Status)}
	up, ok := jsonNumber(raw.Uptime)
	switch {
	case ok && math.Abs(up) < math.MaxInt64:
		st.Uptime = int64(up)
	case st.Running():
		return xerrors.Errorf("running container with uptime %s", string(raw.Uptime))
	}
	*c = st
	return nil
}

func statusCode(raw json.RawMessage) int {
	if string(bytes.TrimSpace(raw)) == "true" {
		return ContainerRunning
	}
	f, ok := jsonNumber(raw)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return StatusOther
	}
	return int(f)
}

func jsonNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// GpuDescriptor carries the model name; providers may send more fields,
// which are ignored here but still covered by the signature.
type GpuDescriptor struct {
	Model string `json:"model"`
}

// Report is the verified content of one provider reply.
type Report struct {
	Containers []ContainerStatus `json:"containers"`
	Gpus       []GpuDescriptor   `json:"gpu"`
	IP         string            `json:"ip"`
}

// RunningUptimes lists the uptime of every running container.
func (r *Report) RunningUptimes() []int64 {
	var out []int64
	for _, c := range r.Containers {
		if c.Running() {
			out = append(out, c.Uptime)
		}
	}
	return out
}

// ReportFromRecord decodes the containers, gpu and ip fields of a
// response record. Missing or null lists decode as empty.
func ReportFromRecord(rec *attest.Record) (*Report, error) {
	rep := &Report{}

	if err := decodeList(rec.Field(FieldContainers), &rep.Containers); err != nil {
		return nil, xerrors.Errorf("containers: %w", err)
	}
	for _, c := range rep.Containers {
		if c.Running() && c.Uptime < 0 {
			return nil, xerrors.Errorf("containers: negative uptime %d", c.Uptime)
		}
	}

	if err := decodeList(rec.Field(FieldGpu), &rep.Gpus); err != nil {
		return nil, xerrors.Errorf("gpu: %w", err)
	}

	switch v := rec.Field(FieldIP); v.Kind() {
	case attest.KindNull:
	case attest.KindString:
		rep.IP, _ = v.AsString()
	default:
		return nil, xerrors.Errorf("ip: unexpected %s", v.String())
	}

	return rep, nil
}

func decodeList(v attest.Value, out interface{}) error {
	if v.IsNull() {
		return nil
	}
	raw, ok := v.AsRaw()
	if !ok {
		return xerrors.Errorf("expected a list, got %q", v.String())
	}
	return json.Unmarshal(raw, out)
}

// NewRecord builds the unsigned response record a provider returns.
func NewRecord(nonce string, timestampMillis int64, rep *Report) (*attest.Record, error) {
	containers := rep.Containers
	if containers == nil {
		containers = []ContainerStatus{}
	}
	gpus := rep.Gpus
	if gpus == nil {
		gpus = []GpuDescriptor{}
	}

	cb, err := json.Marshal(containers)
	if err != nil {
		return nil, err
	}
	gb, err := json.Marshal(gpus)
	if err != nil {
		return nil, err
	}

	rec := attest.NewRecord().
		Set(attest.FieldNonce, attest.String(nonce)).
		Set(attest.FieldTimestamp, attest.Int(timestampMillis)).
		Set(FieldContainers, attest.Raw(string(cb))).
		Set(FieldGpu, attest.Raw(string(gb)))
	if rep.IP != "" {
		rec.Set(FieldIP, attest.String(rep.IP))
	}
	return rec, nil
}

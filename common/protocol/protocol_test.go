package protocol

import (
	"encoding/json"
	"testing"

	"github.com/gridprotocol/computing-evaluator/lib/attest"
	"github.com/stretchr/testify/require"
)

func TestResponseSignedByProviderVerifiesAfterTransit(t *testing.T) {
	pk, sk, err := attest.GenerateKey()
	require.NoError(t, err)

	rep := &Report{
		Containers: []ContainerStatus{{Status: ContainerRunning, Uptime: 700000}, {Status: 0, Uptime: 12}},
		Gpus:       []GpuDescriptor{{Model: "NVIDIA H100"}},
		IP:         "10.1.2.3",
	}
	rec, err := NewRecord("nonce-1", 1700000000000, rep)
	require.NoError(t, err)
	require.NoError(t, attest.SignRecord(rec, sk))

	wire, err := json.Marshal(&RawResponse{Status: true, Data: rec})
	require.NoError(t, err)

	var got RawResponse
	require.NoError(t, json.Unmarshal(wire, &got))
	require.True(t, got.Status)
	require.True(t, attest.VerifyRecord(got.Data, pk))

	decoded, err := ReportFromRecord(got.Data)
	require.NoError(t, err)
	require.Equal(t, rep, decoded)
	require.Equal(t, []int64{700000}, decoded.RunningUptimes())
}

func TestRawResponseTruthyStatusAndMissingData(t *testing.T) {
	var r RawResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":1}`), &r))
	require.True(t, r.Status)
	require.Equal(t, 0, r.Data.Len())

	require.NoError(t, json.Unmarshal([]byte(`{"status":"","msg":"busy"}`), &r))
	require.False(t, r.Status)
	require.Equal(t, "busy", r.Msg)

	require.Error(t, json.Unmarshal([]byte(`{"status":true,"data":[1]}`), &r))
}

func TestReportFromRecordRejectsMalformed(t *testing.T) {
	cases := map[string]*attest.Record{
		"containers not a list":  attest.NewRecord().Set(FieldContainers, attest.String("x")),
		"negative uptime":        attest.NewRecord().Set(FieldContainers, attest.Raw(`[{"status":1,"uptime":-5}]`)),
		"gpu object":             attest.NewRecord().Set(FieldGpu, attest.Raw(`{"model":"X"}`)),
		"ip number":              attest.NewRecord().Set(FieldIP, attest.Int(7)),
		"running without uptime": attest.NewRecord().Set(FieldContainers, attest.Raw(`[{"status":1,"uptime":"long"}]`)),
		"container not object":   attest.NewRecord().Set(FieldContainers, attest.Raw(`["up"]`)),
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReportFromRecord(rec)
			require.Error(t, err)
		})
	}

	rep, err := ReportFromRecord(attest.NewRecord())
	require.NoError(t, err)
	require.Empty(t, rep.Containers)
	require.Empty(t, rep.Gpus)
}

func TestNewProbeRequestShape(t *testing.T) {
	b, err := json.Marshal(NewProbeRequest("http://127.0.0.1:8000/v1/agent/miner", "abc"))
	require.NoError(t, err)
	require.JSONEq(t, `{"url":"http://127.0.0.1:8000/v1/agent/miner","method":"config","params":{"nonce":"abc"}}`, string(b))
}

func TestReportFromRecordLenientContainerFields(t *testing.T) {
	rec := attest.NewRecord().
		Set(FieldContainers, attest.Raw(`[{"status":"exited","uptime":5},{"status":1,"uptime":700000},`+
			`{"status":1.0,"uptime":3600.0},{"status":true,"uptime":10},{"status":1.5,"uptime":9},`+
			`{"status":0,"uptime":-4},{"status":null},{"status":2,"uptime":"n/a"}]`)).
		Set(FieldGpu, attest.Raw(`[{"model":"model X"}]`))

	rep, err := ReportFromRecord(rec)
	require.NoError(t, err)
	require.NotNil(t, rep)
	require.Len(t, rep.Gpus, 1)
	require.Equal(t, []ContainerStatus{
		{Status: StatusOther, Uptime: 5},
		{Status: ContainerRunning, Uptime: 700000},
		{Status: ContainerRunning, Uptime: 3600},
		{Status: ContainerRunning, Uptime: 10},
		{Status: StatusOther, Uptime: 9},
		{Status: 0, Uptime: -4},
		{Status: StatusOther},
		{Status: 2},
	}, rep.Containers)
	require.Equal(t, []int64{700000, 3600, 10}, rep.RunningUptimes())
}

package httpserver

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/evaluator/dispatch"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/gridprotocol/computing-evaluator/lib/attest"
	"github.com/stretchr/testify/require"
)

type staticCollector struct {
	rep *protocol.Report
	err error
}

func (s staticCollector) Collect(context.Context) (*protocol.Report, error) { return s.rep, s.err }

var inventory = &protocol.Report{
	Containers: []protocol.ContainerStatus{{Status: 1, Uptime: 700000}, {Status: 0}},
	Gpus:       []protocol.GpuDescriptor{{Model: "model X"}, {Model: "model X"}},
	IP:         "10.0.0.1",
}

func newKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	pk, sk, err := attest.GenerateKey()
	require.NoError(t, err)
	return pk, sk
}

func post(h http.Handler, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, protocol.DefaultPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestProbeAnswerVerifies(t *testing.T) {
	pk, sk := newKey(t)
	h := registerAllRoute(staticCollector{rep: inventory}, sk)

	body, _ := json.Marshal(protocol.NewProbeRequest("http://evaluator", "abc"))
	w := post(h, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp protocol.RawResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Status)
	require.True(t, attest.VerifyRecord(resp.Data, pk))

	nonce, _ := resp.Data.Field(attest.FieldNonce).AsString()
	require.Equal(t, "abc", nonce)
	require.True(t, attest.CheckFreshness(resp.Data, "abc", time.Now().UnixMilli(), attest.DefaultFreshnessWindow))

	rep, err := protocol.ReportFromRecord(resp.Data)
	require.NoError(t, err)
	require.Equal(t, inventory, rep)
}

func TestProbeEndToEnd(t *testing.T) {
	pk, sk := newKey(t)
	srv := httptest.NewServer(registerAllRoute(staticCollector{rep: inventory}, sk))
	defer srv.Close()

	_, wrongSK := newKey(t)
	forged := httptest.NewServer(registerAllRoute(staticCollector{rep: inventory}, wrongSK))
	defer forged.Close()

	d := dispatch.New(dispatch.NewHTTPTransport(), pk, dispatch.Config{URL: "http://evaluator", Timeout: 2 * time.Second})
	_, results, err := d.Round(context.Background(), []model.Peer{
		{Address: "forged", Endpoint: forged.URL + protocol.DefaultPath},
		{Address: "honest", Endpoint: srv.URL + protocol.DefaultPath},
	})
	require.NoError(t, err)
	require.Nil(t, results[0])
	require.Equal(t, inventory, results[1])
}

func TestProbeRejects(t *testing.T) {
	_, sk := newKey(t)
	h := registerAllRoute(staticCollector{rep: inventory}, sk)

	require.Equal(t, http.StatusBadRequest, post(h, []byte("{")).Code)

	req := protocol.NewProbeRequest("", "abc")
	req.Method = "deploy"
	body, _ := json.Marshal(req)
	require.Equal(t, http.StatusBadRequest, post(h, body).Code)

	body, _ = json.Marshal(protocol.NewProbeRequest("", ""))
	require.Equal(t, http.StatusBadRequest, post(h, body).Code)

	broken := registerAllRoute(staticCollector{err: errors.New("docker down")}, sk)
	body, _ = json.Marshal(protocol.NewProbeRequest("", "abc"))
	w := post(broken, body)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp protocol.RawResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Status)
}

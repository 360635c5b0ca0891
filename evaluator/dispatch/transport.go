package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"golang.org/x/xerrors"
)

// maxResponseSize bounds how much of a reply is read from a provider.
const maxResponseSize = 1 << 20

// Transport delivers one probe to one peer.
type Transport interface {
	Call(ctx context.Context, peer model.Peer, req *protocol.ProbeRequest) (*protocol.RawResponse, error)
}

// TransportError is returned when a peer could not be reached or answered
// with something that is not a probe response.
type TransportError struct {
	Peer string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("peer %s: %v", e.Peer, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPTransport posts the probe as JSON to the peer endpoint.
type HTTPTransport struct {
	Client *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{}}
}

func (t *HTTPTransport) Call(ctx context.Context, peer model.Peer, req *protocol.ProbeRequest) (*protocol.RawResponse, error) {
	fail := func(err error) (*protocol.RawResponse, error) {
		return nil, &TransportError{Peer: peer.Address, Err: err}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fail(err)
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, peer.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(err)
	}
	hreq.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hreq)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fail(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(xerrors.Errorf("unexpected status %d", resp.StatusCode))
	}

	var raw protocol.RawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return fail(xerrors.Errorf("decode response: %w", err))
	}
	return &raw, nil
}

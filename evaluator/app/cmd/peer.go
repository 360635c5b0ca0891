package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/gridprotocol/computing-evaluator/evaluator/model"
	"github.com/gridprotocol/computing-evaluator/evaluator/registry"
	"github.com/gridprotocol/computing-evaluator/lib/auth"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

// peer commands talk to the running daemon, which owns the database
var PeerCmd = &cli.Command{
	Name:  "peer",
	Usage: "manage the peers of a running daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "api",
			Usage: "daemon api address, Http.Listen from the config by default",
		},
	},
	Subcommands: []*cli.Command{
		peerAddCmd,
		peerListCmd,
		peerRemoveCmd,
	},
}

var peerAddCmd = &cli.Command{
	Name:      "add",
	Usage:     "register a provider",
	ArgsUsage: "<address> <endpoint>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return xerrors.New("address and endpoint must be given")
		}
		addr, err := registry.NormalizeAddress(ctx.Args().Get(0))
		if err != nil {
			return err
		}
		body, err := json.Marshal(model.Peer{Address: addr, Endpoint: ctx.Args().Get(1)})
		if err != nil {
			return err
		}

		var p model.Peer
		if err := callAPI(ctx, http.MethodPost, "/peers", body, &p); err != nil {
			return err
		}
		fmt.Printf("added %s -> %s\n", p.Address, p.Endpoint)
		return nil
	},
}

var peerListCmd = &cli.Command{
	Name:  "list",
	Usage: "list registered providers",
	Action: func(ctx *cli.Context) error {
		var peers []model.Peer
		if err := callAPI(ctx, http.MethodGet, "/peers", nil, &peers); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tENDPOINT")
		for _, p := range peers {
			fmt.Fprintf(w, "%s\t%s\n", p.Address, p.Endpoint)
		}
		return w.Flush()
	},
}

var peerRemoveCmd = &cli.Command{
	Name:      "remove",
	Aliases:   []string{"rm"},
	Usage:     "unregister a provider",
	ArgsUsage: "<address>",
	Action: func(ctx *cli.Context) error {
		addr, err := registry.NormalizeAddress(ctx.Args().First())
		if err != nil {
			return err
		}
		if err := callAPI(ctx, http.MethodDelete, "/peers/"+addr, nil, nil); err != nil {
			return err
		}
		fmt.Println("removed", addr)
		return nil
	},
}

func apiBase(ctx *cli.Context) (string, string, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return "", "", err
	}
	base := ctx.String("api")
	if base == "" {
		host, port, err := net.SplitHostPort(cfg.Http.Listen)
		if err != nil {
			return "", "", xerrors.Errorf("Http.Listen: %w", err)
		}
		if host == "" || host == "0.0.0.0" || host == "::" {
			host = "127.0.0.1"
		}
		base = "http://" + net.JoinHostPort(host, port)
	}
	return base, cfg.Http.AdminSecret, nil
}

func callAPI(ctx *cli.Context, method, path string, body []byte, out interface{}) error {
	base, secret, err := apiBase(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx.Context, method, base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		ts := time.Now().Unix()
		tok, err := auth.SignRequest([]byte(secret), method, path, ts, body)
		if err != nil {
			return xerrors.Errorf("Http.AdminSecret must be set to manage peers: %w", err)
		}
		req.Header.Set(auth.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(auth.HeaderSignature, tok)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Err string `json:"err"`
		}
		_ = json.Unmarshal(data, &e)
		return xerrors.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

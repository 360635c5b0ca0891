package collector

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"golang.org/x/xerrors"
)

// StaticGpus reports a fixed list of models.
type StaticGpus []string

func (s StaticGpus) Gpus(context.Context) ([]protocol.GpuDescriptor, error) {
	out := make([]protocol.GpuDescriptor, 0, len(s))
	for _, m := range s {
		out = append(out, protocol.GpuDescriptor{Model: m})
	}
	return out, nil
}

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NvidiaSmi queries the installed GPUs through nvidia-smi.
type NvidiaSmi struct {
	run runner
}

func NewNvidiaSmi() *NvidiaSmi {
	return &NvidiaSmi{run: execRunner}
}

func (n *NvidiaSmi) Gpus(ctx context.Context) ([]protocol.GpuDescriptor, error) {
	out, err := n.run(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	if err != nil {
		return nil, xerrors.Errorf("nvidia-smi: %w", err)
	}
	return parseGpuNames(out), nil
}

func parseGpuNames(out []byte) []protocol.GpuDescriptor {
	gpus := []protocol.GpuDescriptor{}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" {
			continue
		}
		gpus = append(gpus, protocol.GpuDescriptor{Model: name})
	}
	return gpus
}

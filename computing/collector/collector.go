// Package collector gathers the container and GPU inventory a provider
// reports when probed.
package collector

import (
	"context"

	"github.com/gridprotocol/computing-evaluator/common/protocol"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
	"golang.org/x/xerrors"
)

var logger = logc.Logger("collector")

// container states other than running
const (
	StatusStopped    = 0
	StatusPaused     = 2
	StatusRestarting = 3
)

type ContainerSource interface {
	Containers(ctx context.Context) ([]protocol.ContainerStatus, error)
}

type GpuSource interface {
	Gpus(ctx context.Context) ([]protocol.GpuDescriptor, error)
}

// Inventory combines the sources into a report. Nil sources report
// nothing.
type Inventory struct {
	containers ContainerSource
	gpus       GpuSource
	ip         string
}

func New(containers ContainerSource, gpus GpuSource, ip string) *Inventory {
	return &Inventory{containers: containers, gpus: gpus, ip: ip}
}

func (inv *Inventory) Collect(ctx context.Context) (*protocol.Report, error) {
	rep := &protocol.Report{
		Containers: []protocol.ContainerStatus{},
		Gpus:       []protocol.GpuDescriptor{},
		IP:         inv.ip,
	}

	if inv.containers != nil {
		cs, err := inv.containers.Containers(ctx)
		if err != nil {
			return nil, xerrors.Errorf("collect containers: %w", err)
		}
		rep.Containers = append(rep.Containers, cs...)
	}
	if inv.gpus != nil {
		gs, err := inv.gpus.Gpus(ctx)
		if err != nil {
			return nil, xerrors.Errorf("collect gpus: %w", err)
		}
		rep.Gpus = append(rep.Gpus, gs...)
	}

	logger.Debugf("collected %d containers, %d gpus", len(rep.Containers), len(rep.Gpus))
	return rep, nil
}

func uptimeSeconds(now, started int64) int64 {
	if started <= 0 || now < started {
		return 0
	}
	return now - started
}

package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridprotocol/computing-evaluator/common/version"
	"github.com/gridprotocol/computing-evaluator/computing/collector"
	"github.com/gridprotocol/computing-evaluator/computing/config"
	"github.com/gridprotocol/computing-evaluator/computing/server/httpserver"
	"github.com/gridprotocol/computing-evaluator/keystore"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var (
	logger = logc.Logger("cmd")
	// quit chan
	quit = make(chan os.Signal, 1)
)

var DaemonCmd = &cli.Command{
	Name:  "daemon",
	Usage: "provider daemon",
	Subcommands: []*cli.Command{
		runCmd,
	},
}

// run daemon
var runCmd = &cli.Command{
	Name:  "run",
	Usage: "serve probes",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path of the config file, config.toml in the working directory by default",
		},
	},
	Action: func(ctx *cli.Context) error {
		if err := config.InitConfig(ctx.String("config")); err != nil {
			return err
		}
		cfg := config.GetConfig()
		if err := logc.Setup(cfg.Log); err != nil {
			return err
		}
		defer logc.Sync()

		log.Println("Current Version:", version.CurrentVersion())

		sk, err := keystore.ReadPrivateKey(cfg.Key.PrivateKey)
		if err != nil {
			return err
		}

		inv, err := newInventory(cfg.Node)
		if err != nil {
			return err
		}

		logger.Debug("listen address: ", cfg.Http.Listen)

		svr := httpserver.NewServer(cfg.Http.Listen, inv, sk)
		go func() {
			if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("fail to start serving: %v", err)
			}
		}()

		// notify signal to chan
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down provider...")

		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svr.Shutdown(cctx); err != nil {
			logger.Error("Server forced to shutdown: ", err)
		}
		return nil
	},
}

func newInventory(n config.Node) (*collector.Inventory, error) {
	var containers collector.ContainerSource
	switch n.Source {
	case config.SourceDocker:
		cli, err := collector.NewDockerClient()
		if err != nil {
			return nil, err
		}
		containers = collector.NewDockerSource(cli)
	case config.SourceKube:
		cs, err := collector.NewKubeClient(n.Kubeconfig)
		if err != nil {
			return nil, err
		}
		containers = collector.NewKubeSource(cs, n.Namespace, n.NodeName)
	case config.SourceNone:
	default:
		return nil, xerrors.Errorf("unknown inventory source %q", n.Source)
	}

	var gpus collector.GpuSource = collector.StaticGpus(n.GPUs)
	if n.UseNvidiaSmi {
		gpus = collector.NewNvidiaSmi()
	}
	return collector.New(containers, gpus, n.IP), nil
}

package cmd

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gridprotocol/computing-evaluator/common/version"
	"github.com/gridprotocol/computing-evaluator/evaluator/config"
	"github.com/gridprotocol/computing-evaluator/evaluator/dispatch"
	"github.com/gridprotocol/computing-evaluator/evaluator/metrics"
	"github.com/gridprotocol/computing-evaluator/evaluator/registry"
	"github.com/gridprotocol/computing-evaluator/evaluator/server/httpserver"
	"github.com/gridprotocol/computing-evaluator/evaluator/service"
	"github.com/gridprotocol/computing-evaluator/keystore"
	"github.com/gridprotocol/computing-evaluator/lib/kv"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/go-ps"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var (
	logger = logc.Logger("cmd")
	// quit chan
	quit = make(chan os.Signal, 1)
)

var ConfigFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path of the config file, config.toml in the working directory by default",
	EnvVars: []string{"EVALUATOR_CONFIG"},
}

var pidFlag = &cli.StringFlag{
	Name:  "pidfile",
	Usage: "where the daemon records its pid",
	Value: "./evaluator.pid",
}

func loadConfig(ctx *cli.Context) (*config.EvaluatorConfig, error) {
	if err := config.InitConfig(ctx.String(ConfigFlag.Name)); err != nil {
		return nil, err
	}
	return config.GetConfig(), nil
}

var DaemonCmd = &cli.Command{
	Name:  "daemon",
	Usage: "evaluator daemon",
	Subcommands: []*cli.Command{
		runCmd,
		stopCmd,
	},
}

// run daemon
var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the probe loop and the status api",
	Flags: []cli.Flag{
		pidFlag,
		&cli.BoolFlag{
			Name:  "once",
			Usage: "run a single round, print the rewards and exit",
		},
	},
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := logc.Setup(cfg.Log); err != nil {
			return err
		}
		defer logc.Sync()

		log.Println("Current Version:", version.CurrentVersion())

		pub, err := keystore.ReadPublicKey(cfg.Key.PublicKey)
		if err != nil {
			return xerrors.Errorf("load provider public key: %w", err)
		}

		dbPath, err := homedir.Expand(cfg.Local.DBPath)
		if err != nil {
			return err
		}
		db, err := kv.NewDatabase(dbPath)
		if err != nil {
			return err
		}
		// close db
		defer db.Close()

		reg := registry.New(db)
		disp := dispatch.New(dispatch.NewHTTPTransport(), pub, dispatch.Config{
			URL:             cfg.Probe.URL,
			Timeout:         cfg.Probe.Timeout(),
			FreshnessWindow: cfg.Probe.FreshnessWindowMs,
			Concurrency:     cfg.Probe.Concurrency,
		})
		svc := service.New(service.Config{
			SampleSize: cfg.Probe.SampleSize,
			Interval:   cfg.Probe.Interval(),
			Reward:     cfg.Reward.Params(),
		}, disp, reg, reg, metrics.Sink{})

		if ctx.Bool("once") {
			round, err := svc.RunRound(ctx.Context)
			if err != nil {
				return err
			}
			for i, p := range round.Peers {
				log.Printf("%s %.6f\n", p.Address, round.Rewards[i])
			}
			return nil
		}

		if err := writePid(ctx.String(pidFlag.Name)); err != nil {
			return err
		}
		defer os.Remove(ctx.String(pidFlag.Name))

		logger.Debug("listen address: ", cfg.Http.Listen)

		svr := httpserver.NewServer(cfg.Http.Listen, reg, cfg.Http.AdminSecret)
		go func() {
			if err := svr.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("fail to start serving: %v", err)
			}
		}()

		rctx, stop := context.WithCancel(ctx.Context)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = svc.Run(rctx)
		}()

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down evaluator...")
		stop()
		<-done

		cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svr.Shutdown(cctx); err != nil {
			logger.Error("Server forced to shutdown: ", err)
		}
		return nil
	},
}

// stop app
var stopCmd = &cli.Command{
	Name:  "stop",
	Usage: "stop a running daemon",
	Flags: []cli.Flag{pidFlag},
	Action: func(ctx *cli.Context) error {
		pidfile := ctx.String(pidFlag.Name)
		pid, err := readPid(pidfile)
		if err != nil {
			return err
		}

		proc, err := ps.FindProcess(pid)
		if err != nil {
			return err
		}
		if proc == nil {
			os.Remove(pidfile)
			return xerrors.Errorf("no process with pid %d, removed stale pidfile", pid)
		}

		if err := kill(pid); err != nil {
			return err
		}
		log.Println("evaluator gracefully exit...")
		return nil
	},
}

func writePid(path string) error {
	p, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func readPid(path string) (int, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return 0, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return 0, xerrors.Errorf("read pidfile: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, xerrors.Errorf("bad pidfile %s: %w", p, err)
	}
	return pid, nil
}

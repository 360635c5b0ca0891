package main

import (
	"fmt"
	"os"

	"github.com/gridprotocol/computing-evaluator/common/keycmd"
	"github.com/gridprotocol/computing-evaluator/common/version"
	"github.com/gridprotocol/computing-evaluator/evaluator/app/cmd"
	"github.com/urfave/cli/v2"
)

func main() {
	local := make([]*cli.Command, 0, 4)
	local = append(local, cmd.DaemonCmd)
	local = append(local, cmd.PeerCmd)
	local = append(local, keycmd.KeyCmd)
	local = append(local, cmd.VersionCmd)

	app := cli.App{
		Name:     "evaluator",
		Usage:    "probe computing providers and score them",
		Commands: local,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "Show application version",
			},
			cmd.ConfigFlag,
		},
		Action: func(ctx *cli.Context) error {
			if ctx.Bool("version") {
				fmt.Println(version.CurrentVersion())
				return nil
			}
			return cli.ShowAppHelp(ctx)
		},
	}
	app.Setup()

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err) // nolint:errcheck
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/gridprotocol/computing-evaluator/common/keycmd"
	"github.com/gridprotocol/computing-evaluator/common/version"
	"github.com/gridprotocol/computing-evaluator/computing/app/cmd"
	"github.com/urfave/cli/v2"
)

func main() {
	local := make([]*cli.Command, 0, 3)
	local = append(local, cmd.DaemonCmd)
	local = append(local, cmd.VersionCmd)
	local = append(local, keycmd.KeyCmd)

	app := cli.App{
		Name:     "computing",
		Usage:    "computing provider agent",
		Commands: local,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "Show application version",
			},
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

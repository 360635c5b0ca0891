package cmd

import (
	"fmt"

	"github.com/gridprotocol/computing-evaluator/common/version"
	"github.com/urfave/cli/v2"
)

var VersionCmd = &cli.Command{
	Name:    "version",
	Usage:   "print evaluator version",
	Aliases: []string{"V"},
	Action: func(_ *cli.Context) error {
		fmt.Println(version.CurrentVersion())
		return nil
	},
}

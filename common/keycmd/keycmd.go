// Package keycmd is the key management command shared by the evaluator
// and provider binaries.
package keycmd

import (
	"fmt"
	"os"

	"github.com/gridprotocol/computing-evaluator/keystore"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var pathFlag = &cli.StringFlag{
	Name:    "path",
	Aliases: []string{"p"},
	Usage:   "set the keystore path",
	Value:   "./.keystore",
}

var nameFlag = &cli.StringFlag{
	Name:    "name",
	Aliases: []string{"n"},
	Usage:   "key name, files are <name>.key and <name>.pub",
	Value:   "provider",
}

var KeyCmd = &cli.Command{
	Name:  "key",
	Usage: "ed25519 key management",
	Subcommands: []*cli.Command{
		generateCmd,
		importCmd,
		listCmd,
	},
}

var generateCmd = &cli.Command{
	Name:  "generate",
	Usage: "create a new key pair",
	Flags: []cli.Flag{pathFlag, nameFlag},
	Action: func(ctx *cli.Context) error {
		ks, err := keystore.NewKeyStore(ctx.String(pathFlag.Name))
		if err != nil {
			return err
		}
		ki, err := keystore.NewKey()
		if err != nil {
			return err
		}
		if err := ks.Put(ctx.String(nameFlag.Name), *ki); err != nil {
			return err
		}
		fmt.Println("public key:", ki.ID())
		return nil
	},
}

var importCmd = &cli.Command{
	Name:      "import",
	Usage:     "import a private key (raw seed, raw 64 bytes, PKCS#8 PEM or OpenSSH)",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{pathFlag, nameFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return xerrors.New("the key file must be given")
		}
		file, err := homedir.Expand(ctx.Args().First())
		if err != nil {
			return err
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		ki, err := keystore.Import(b)
		if err != nil {
			return xerrors.Errorf("import %s: %w", file, err)
		}

		ks, err := keystore.NewKeyStore(ctx.String(pathFlag.Name))
		if err != nil {
			return err
		}
		if err := ks.Put(ctx.String(nameFlag.Name), *ki); err != nil {
			return err
		}
		fmt.Println("public key:", ki.ID())
		return nil
	},
}

var listCmd = &cli.Command{
	Name:  "list",
	Usage: "list stored keys",
	Flags: []cli.Flag{pathFlag},
	Action: func(ctx *cli.Context) error {
		ks, err := keystore.NewKeyStore(ctx.String(pathFlag.Name))
		if err != nil {
			return err
		}
		names, err := ks.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			ki, err := ks.Get(n)
			if err != nil {
				fmt.Printf("%s\t<unreadable: %s>\n", n, err)
				continue
			}
			fmt.Printf("%s\t%s\n", n, ki.ID())
		}
		return nil
	},
}

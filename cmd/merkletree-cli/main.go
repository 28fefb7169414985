// Command merkletree-cli operates on-disk merkle trees: inspecting,
// cloning, checkpointing and running an end-to-end demo sequence.
//
//	go run ./cmd/merkletree-cli <command> <flags>
package main

import (
	"fmt"
	"os"

	"github.com/pwrlabs/merkletree/merkletree"
	"github.com/urfave/cli/v2"
)

var dirFlag = cli.StringFlag{
	Name:     "dir",
	Usage:    "path to the tree's on-disk pebble directory",
	Required: true,
}

func main() {
	stop := merkletree.InstallShutdownHook()
	defer stop()

	app := &cli.App{
		Name:  "merkletree-cli",
		Usage: "inspect and operate on merkletree instances",
		Commands: []*cli.Command{
			&Info,
			&Demo,
			&Clone,
			&Checkpoint,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

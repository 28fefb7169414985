package main

import (
	"fmt"

	"github.com/pwrlabs/merkletree/merkletree"
	"github.com/pwrlabs/merkletree/storage/pebblestore"
	"github.com/urfave/cli/v2"
)

var toFlag = cli.StringFlag{
	Name:     "to",
	Usage:    "target directory for the clone or checkpoint",
	Required: true,
}

var Clone = cli.Command{
	Name:  "clone",
	Usage: "flushes a tree and materializes a full checkpointed copy under --to",
	Flags: []cli.Flag{&dirFlag, &toFlag},
	Action: func(c *cli.Context) error {
		dir := c.String(dirFlag.Name)
		to := c.String(toFlag.Name)

		tree, logger, err := openTree(treeNameFor(dir), dir)
		if err != nil {
			return err
		}
		defer closeTree(tree, logger)

		reopenClone := func() (merkletree.Storage, error) {
			return pebblestore.Open(to)
		}
		clone, err := tree.Clone(treeNameFor(to), to, reopenClone)
		if err != nil {
			return err
		}
		defer closeTree(clone, logger)

		fmt.Printf("Cloned %s into %s\n", dir, to)
		return nil
	},
}

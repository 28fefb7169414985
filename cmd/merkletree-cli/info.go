package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"
)

var Info = cli.Command{
	Name:  "info",
	Usage: "opens a tree and prints its root hash, leaf count, depth and RAM info",
	Flags: []cli.Flag{&dirFlag},
	Action: func(c *cli.Context) error {
		dir := c.String(dirFlag.Name)
		tree, logger, err := openTree(treeNameFor(dir), dir)
		if err != nil {
			return err
		}
		defer closeTree(tree, logger)

		root, err := tree.GetRootHash()
		if err != nil {
			return err
		}
		numLeaves, err := tree.GetNumLeaves()
		if err != nil {
			return err
		}
		depth, err := tree.GetDepth()
		if err != nil {
			return err
		}
		ram, err := tree.GetRamInfo()
		if err != nil {
			return err
		}
		ramStr, err := ram.ToString(tree.Name())
		if err != nil {
			return err
		}

		fmt.Printf("Tree at %s:\n", dir)
		if root == nil {
			fmt.Println("\tRoot hash:   (empty tree)")
		} else {
			fmt.Printf("\tRoot hash:   %s\n", hex.EncodeToString(root[:]))
		}
		fmt.Printf("\tLeaves:      %d\n", numLeaves)
		fmt.Printf("\tDepth:       %d\n", depth)
		fmt.Printf("\tRAM usage:\n%s", ramStr)
		return nil
	},
}

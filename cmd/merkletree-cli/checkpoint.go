package main

import (
	"fmt"

	"github.com/pwrlabs/merkletree/merkletree"
	"github.com/pwrlabs/merkletree/storage/pebblestore"
	"github.com/urfave/cli/v2"
)

// Checkpoint exposes the same flush-and-checkpoint mechanism as Clone as a
// standalone verb for operational scripting (e.g. a cron job snapshotting a
// live tree), closing the resulting copy immediately rather than keeping it
// registered as a second open instance.
var Checkpoint = cli.Command{
	Name:  "checkpoint",
	Usage: "flushes a tree and writes a consistent on-disk snapshot to --to",
	Flags: []cli.Flag{&dirFlag, &toFlag},
	Action: func(c *cli.Context) error {
		dir := c.String(dirFlag.Name)
		to := c.String(toFlag.Name)

		tree, logger, err := openTree(treeNameFor(dir), dir)
		if err != nil {
			return err
		}
		defer closeTree(tree, logger)

		reopenSnapshot := func() (merkletree.Storage, error) {
			return pebblestore.Open(to)
		}
		snapshot, err := tree.Clone(treeNameFor(to)+"-checkpoint", to, reopenSnapshot)
		if err != nil {
			return err
		}
		if err := snapshot.Close(); err != nil {
			return err
		}

		fmt.Printf("Checkpointed %s to %s\n", dir, to)
		return nil
	},
}

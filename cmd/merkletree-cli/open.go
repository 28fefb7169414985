package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pwrlabs/merkletree/internal/metrics"
	"github.com/pwrlabs/merkletree/internal/telemetry"
	"github.com/pwrlabs/merkletree/merkletree"
	"github.com/pwrlabs/merkletree/storage/pebblestore"
	"github.com/prometheus/client_golang/prometheus"
)

// openTree opens the pebble database at dir as a named tree, wiring the
// zap-backed logger and the Prometheus lock/flush instrumentation.
func openTree(name, dir string) (*merkletree.Tree, *telemetry.Logger, error) {
	logger, err := telemetry.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("constructing logger: %w", err)
	}

	reopen := func() (merkletree.Storage, error) {
		return pebblestore.Open(dir)
	}
	store, err := pebblestore.Open(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening pebble store at %q: %w", dir, err)
	}

	cfg := merkletree.Config{
		DefaultLockTimeout:     30 * time.Second,
		UnhealthyWaitThreshold: 250 * time.Millisecond,
		Logger:                 logger,
		OnUnhealthyWait:        metrics.OnUnhealthyWait,
		OnFlush:                metrics.ObserveFlush,
	}

	tree, err := merkletree.Open(name, store, cfg, reopen)
	if err != nil {
		return nil, nil, err
	}
	metrics.OpenTrees.Set(float64(merkletree.OpenTreeCount()))
	return tree, logger, nil
}

func closeTree(tree *merkletree.Tree, logger *telemetry.Logger) {
	_ = tree.Close()
	metrics.OpenTrees.Set(float64(merkletree.OpenTreeCount()))
	_ = logger.Sync()
}

func treeNameFor(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}

func init() {
	_ = metrics.Register(prometheus.DefaultRegisterer)
}

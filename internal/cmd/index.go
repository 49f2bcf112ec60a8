package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dendrite-md/dendrite/internal/config"
	"github.com/dendrite-md/dendrite/internal/engine"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the vault and write the persistent cache",
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().Bool("no-cache", false, "ignore and do not write the snapshot cache")
}

func runIndex(cmd *cobra.Command, args []string) error {
	fs, cfg, err := vaultFS(cmd)
	if err != nil {
		return err
	}
	opts := config.DefaultOptions()
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		opts.CacheEnabled = false
	}

	eng, err := engine.New(fs, cfg, opts)
	if err != nil {
		return err
	}
	if err := eng.Start(cmd.Context()); err != nil {
		return err
	}
	defer eng.Shutdown()

	// A second pass settles on the metadata tier; only its elapsed time
	// is reported.
	stats, err := eng.Indexer().FullScan(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d notes, %s on disk, %s\n",
		eng.Store().Len(), humanize.Bytes(uint64(totalSize(eng))), stats.Elapsed.Round(time.Millisecond))
	return nil
}

func totalSize(eng *engine.Engine) int64 {
	var total int64
	for _, n := range eng.Store().All() {
		total += n.Size
	}
	return total
}

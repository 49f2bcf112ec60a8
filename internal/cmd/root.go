// Package cmd implements the dendrite CLI: headless access to the
// engine for scripting and debugging. The CLI acts as its own LSP
// client: the engine hands it plans, and it applies them.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dendrite-md/dendrite/internal/config"
	"github.com/dendrite-md/dendrite/internal/engine"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

var rootCmd = &cobra.Command{
	Use:   "dendrite",
	Short: "Semantic engine for a vault of markdown notes",
	Long: `Dendrite indexes a directory of markdown notes into a link graph and
computes whole-vault refactors: renames, moves, splits, and audits.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("vault", "w", ".", "vault root directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
}

// vaultFS resolves the --vault flag into a physical backend plus the
// workspace config found at that root. When the config names vaults,
// the one named "main" (or the first) becomes the served directory.
func vaultFS(cmd *cobra.Command) (*vfs.Physical, *config.Config, error) {
	root, _ := cmd.Root().PersistentFlags().GetString("vault")
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("not a vault directory: %s", abs)
	}
	fs := vfs.NewPhysical(abs)

	cfg, err := config.Load(fs)
	if err != nil {
		return nil, nil, err
	}
	if v := cfg.MainVault(); v.Path != "" && v.Path != "." {
		sub := filepath.Join(abs, filepath.FromSlash(v.Path))
		if info, err := os.Stat(sub); err != nil || !info.IsDir() {
			return nil, nil, fmt.Errorf("vault %q not found at %s", v.Name, sub)
		}
		fs = vfs.NewPhysical(sub)
	}
	return fs, cfg, nil
}

// openEngine builds and starts an engine over the vault. The caller
// must Shutdown it.
func openEngine(cmd *cobra.Command) (*engine.Engine, *vfs.Physical, error) {
	if debug, _ := cmd.Root().PersistentFlags().GetBool("debug"); !debug {
		log.SetOutput(io.Discard)
	}

	fs, cfg, err := vaultFS(cmd)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(fs, cfg, config.DefaultOptions())
	if err != nil {
		return nil, nil, err
	}
	if err := eng.Start(context.Background()); err != nil {
		return nil, nil, err
	}
	return eng, fs, nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/respite/internal/config"
	"github.com/Norgate-AV/respite/internal/ui"
)

var cleanCmd = &cobra.Command{
	Use:          "clean",
	Short:        "Remove build outputs",
	Long:         `Remove the dependency caches, object files, executable and build journal.`,
	RunE:         runClean,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	console := ui.NewConsole(cmd.OutOrStdout())

	targets := []string{cfg.DepDir, cfg.ObjDir, cfg.ExecutablePath(), cfg.JournalPath()}

	for _, path := range targets {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			continue
		}

		if cfg.DryRun {
			console.Info("Would remove " + path)
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}

		console.Info("Removed " + path)
	}

	if !cfg.DryRun {
		// The state directory goes too once nothing else lives in it
		_ = os.Remove(filepath.Dir(cfg.DepDir))
	}

	return nil
}

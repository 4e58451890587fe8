package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/respite/internal/cache"
	"github.com/Norgate-AV/respite/internal/config"
	"github.com/Norgate-AV/respite/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show build journal statistics",
	RunE:         runStats,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	path := cfg.JournalPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		ui.NewConsole(cmd.OutOrStdout()).Info("No build journal at " + path)
		return nil
	}

	journal, err := cache.New(path)
	if err != nil {
		return err
	}
	defer journal.Close()

	stats, err := journal.Stats()
	if err != nil {
		return err
	}

	return ui.RenderStats(cmd.OutOrStdout(), path, stats)
}

package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/respite/internal/build"
	"github.com/Norgate-AV/respite/internal/cache"
	"github.com/Norgate-AV/respite/internal/compiler"
	"github.com/Norgate-AV/respite/internal/config"
	"github.com/Norgate-AV/respite/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:          "build",
	Short:        "Build the project",
	Long:         `Compile every stale object in parallel and relink the executable if any object changed.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

// newRunner creates the runner external tools are launched with
var newRunner = func(timeout time.Duration) compiler.Runner {
	return compiler.NewExecRunner(timeout)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	log := newLogger(cfg, cmd.ErrOrStderr())
	console := ui.NewConsole(cmd.OutOrStdout())

	log.Debug("Loaded configuration.",
		"base_dir", cfg.BaseDir,
		"source_dir", cfg.SourceDir,
		"compiler", cfg.Compiler,
		"workers", cfg.Workers(),
	)

	journal := openJournal(cfg, console, log)
	if journal != nil {
		defer journal.Close()
	}

	_, err = build.New(cfg, newRunner(cfg.Timeout), journal, console, log).Run(cmd.Context())
	return err
}

// openJournal opens the build journal. The build goes ahead without one
// when it is disabled or cannot be opened. A dry run only reads it, and only
// when command tracking needs the recorded fingerprints.
func openJournal(cfg *config.Config, console *ui.Console, log *slog.Logger) *cache.Cache {
	if !cfg.Journal {
		return nil
	}

	open := cache.New
	if cfg.DryRun {
		if !cfg.TrackCommands {
			return nil
		}

		if _, err := os.Stat(cfg.JournalPath()); os.IsNotExist(err) {
			return nil
		}

		open = cache.OpenReadOnly
	}

	journal, err := open(cfg.JournalPath())
	if err != nil {
		console.Warning("Build journal unavailable: " + err.Error())
		log.Debug("Failed to open journal.", "path", cfg.JournalPath(), "error", err)
		return nil
	}

	return journal
}

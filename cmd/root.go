package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Norgate-AV/respite/internal/build"
	"github.com/Norgate-AV/respite/internal/config"
	"github.com/Norgate-AV/respite/internal/ui"
	"github.com/Norgate-AV/respite/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "respite",
	Short:         "Incremental C++ builds",
	Long:          `Rebuild only the C++ objects whose sources or headers changed, in parallel, then relink.`,
	RunE:          runBuild,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		// Build and link failures have already been reported
		if !errors.Is(err, build.ErrBuildFailed) && !errors.Is(err, build.ErrLinkFailed) {
			ui.NewConsole(rootCmd.ErrOrStderr()).Error(err.Error())
		}

		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().StringP("base-dir", "C", "", "Project directory (default: directory of the local config file, else the current one)")
	rootCmd.PersistentFlags().IntP("jobs", "j", 0, "Parallel compile jobs (default: number of CPUs)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolP("dry-run", "n", false, "Show what would be rebuilt without compiling or linking")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format (text, json)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Time limit for a single compiler invocation (0 = none)")
	rootCmd.PersistentFlags().Bool("track-commands", false, "Rebuild objects whose compile command changed")
	rootCmd.PersistentFlags().Bool("no-journal", false, "Do not record the build journal")
	rootCmd.AddCommand(buildCmd, cleanCmd, statsCmd)
}

// newLogger builds the diagnostic logger; user-facing output goes through ui
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

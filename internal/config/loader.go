package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"base_dir":   "RESPITE_BASE_DIR",
	"source_dir": "RESPITE_SOURCE_DIR",
	"dep_dir":    "RESPITE_DEP_DIR",
	"obj_dir":    "RESPITE_OBJ_DIR",
	"bin_dir":    "RESPITE_BIN_DIR",
	"output":     "RESPITE_OUTPUT",
	"jobs":       "RESPITE_JOBS",
	"cxx":        "CXX",
	"cppflags":   "CPPFLAGS",
	"cxxflags":   "CXXFLAGS",
	"ldflags":    "LDFLAGS",
	"ldlibs":     "LDLIBS",
}

// flagBindings maps config keys to command flag names
var flagBindings = map[string]string{
	"base_dir":       "base-dir",
	"jobs":           "jobs",
	"verbose":        "verbose",
	"dry_run":        "dry-run",
	"log_format":     "log-format",
	"timeout":        "timeout",
	"track_commands": "track-commands",
}

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForBuild loads configuration specifically for build operations
func (l *Loader) LoadForBuild(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	l.bindEnv()
	l.loadGlobalConfig()
	l.bindCommandFlags(cmd)
	l.loadLocalConfig(l.searchDir())

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("source_dir", DefaultSourceDir)
	viper.SetDefault("dep_dir", DefaultDepDir)
	viper.SetDefault("obj_dir", DefaultObjDir)
	viper.SetDefault("bin_dir", DefaultBinDir)
	viper.SetDefault("output", DefaultOutput)
	viper.SetDefault("cxx", DefaultCompiler)
	viper.SetDefault("cppflags", DefaultCPPFlags)
	viper.SetDefault("cxxflags", DefaultCXXFlags)
	viper.SetDefault("ldflags", DefaultLDFlags)
	viper.SetDefault("ldlibs", DefaultLDLibs)
	viper.SetDefault("extensions", DefaultExtensions)
	viper.SetDefault("jobs", 0)
	viper.SetDefault("timeout", "0s")
	viper.SetDefault("journal", DefaultJournal)
	viper.SetDefault("track_commands", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_format", DefaultLogFormat)
}

// bindEnv binds the compiler environment variables. An empty variable is a
// real value (CXXFLAGS= clears the default flags).
func (l *Loader) bindEnv() {
	viper.AllowEmptyEnv(true)

	for key, env := range envBindings {
		_ = viper.BindEnv(key, env)
	}
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	globalPath := FindGlobalConfig()
	if globalPath == "" {
		return
	}

	viper.SetConfigFile(globalPath)
	_ = viper.ReadInConfig()
}

// loadLocalConfig merges the nearest .respite.* found walking up from dir.
// The directory holding it becomes the base directory unless one is set,
// so its relative paths mean the same from any subdirectory.
func (l *Loader) loadLocalConfig(dir string) {
	if dir == "" {
		return
	}

	localPath := FindLocalConfig(dir)
	if localPath == "" {
		return
	}

	viper.SetConfigFile(localPath)
	_ = viper.MergeInConfig()

	if viper.GetString("base_dir") == "" {
		viper.SetDefault("base_dir", filepath.Dir(localPath))
	}
}

// searchDir is where the local config lookup starts: the base directory if
// one was given, otherwise the working directory
func (l *Loader) searchDir() string {
	if dir := viper.GetString("base_dir"); dir != "" {
		return dir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "" // silently ignore, config.Load() will handle validation
	}

	return cwd
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	for key, name := range flagBindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}

	if f := cmd.Flags().Lookup("no-journal"); f != nil && f.Changed {
		viper.Set("journal", false)
	}
}

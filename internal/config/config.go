package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/respite/internal/utils"
)

// Default configuration values
const (
	DefaultSourceDir = "src"
	DefaultDepDir    = ".respite/dep"
	DefaultObjDir    = ".respite/obj"
	DefaultBinDir    = "."
	DefaultOutput    = "a.respite"
	DefaultCompiler  = "g++"
	DefaultCPPFlags  = ""
	DefaultCXXFlags  = "-std=c++11 -Wall -O2 -g"
	DefaultLDFlags   = ""
	DefaultLDLibs    = ""
	DefaultLogFormat = "text"
	DefaultJournal   = true

	// JournalFile is created next to the dependency cache root
	JournalFile = "journal.db"
)

// DefaultExtensions are the file extensions treated as translation units
var DefaultExtensions = []string{".cpp", ".cxx", ".cc"}

// Holds the configuration options for respite
type Config struct {
	// Project root every relative directory below is resolved against
	BaseDir string

	// Source tree root
	SourceDir string
	// Dependency cache root (one .dep file per source file)
	DepDir string
	// Object output root
	ObjDir string
	// Directory the executable is linked into
	BinDir string
	// Executable file name
	Output string

	// Compiler driver used for dependency listing, compiling and linking
	Compiler string

	CPPFlags string
	CXXFlags string
	LDFlags  string
	LDLibs   string

	// Source file extensions, dot included
	Extensions []string

	// Parallel compile workers, 0 means one per logical CPU
	Jobs int

	// Limit for a single external invocation, 0 means none
	Timeout time.Duration

	// Record compile history in the build journal
	Journal bool

	// Rebuild units whose compile command changed since the journal recorded it
	TrackCommands bool

	// Print the plan without compiling or linking
	DryRun bool

	Verbose   bool
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		BaseDir:       viper.GetString("base_dir"),
		SourceDir:     viper.GetString("source_dir"),
		DepDir:        viper.GetString("dep_dir"),
		ObjDir:        viper.GetString("obj_dir"),
		BinDir:        viper.GetString("bin_dir"),
		Output:        viper.GetString("output"),
		Compiler:      viper.GetString("cxx"),
		CPPFlags:      viper.GetString("cppflags"),
		CXXFlags:      viper.GetString("cxxflags"),
		LDFlags:       viper.GetString("ldflags"),
		LDLibs:        viper.GetString("ldlibs"),
		Extensions:    append([]string(nil), viper.GetStringSlice("extensions")...),
		Jobs:          viper.GetInt("jobs"),
		Timeout:       viper.GetDuration("timeout"),
		Journal:       viper.GetBool("journal"),
		TrackCommands: viper.GetBool("track_commands"),
		DryRun:        viper.GetBool("dry_run"),
		Verbose:       viper.GetBool("verbose"),
		LogFormat:     viper.GetString("log_format"),
	}

	// Apply defaults if not set
	if cfg.SourceDir == "" {
		cfg.SourceDir = DefaultSourceDir
	}

	if cfg.DepDir == "" {
		cfg.DepDir = DefaultDepDir
	}

	if cfg.ObjDir == "" {
		cfg.ObjDir = DefaultObjDir
	}

	if cfg.BinDir == "" {
		cfg.BinDir = DefaultBinDir
	}

	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}

	if cfg.Compiler == "" {
		cfg.Compiler = DefaultCompiler
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), DefaultExtensions...)
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}

		c.BaseDir = cwd
	}

	abs, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return fmt.Errorf("invalid base directory: %v", err)
	}

	c.BaseDir = utils.Normalize(abs)

	// Resolve project directories against the base
	for _, dir := range []*string{&c.SourceDir, &c.DepDir, &c.ObjDir, &c.BinDir} {
		if *dir == "" {
			return fmt.Errorf("project directories must not be empty")
		}

		*dir = c.resolve(*dir)
	}

	if c.Output == "" {
		return fmt.Errorf("output name must not be empty")
	}

	if strings.TrimSpace(c.Compiler) == "" {
		return fmt.Errorf("compiler must not be empty")
	}

	if c.Jobs < 0 {
		return fmt.Errorf("invalid job count: %d", c.Jobs)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}

	// Validate extensions
	if len(c.Extensions) == 0 {
		return fmt.Errorf("no source extensions configured")
	}

	for i, ext := range c.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" || ext == "." {
			return fmt.Errorf("invalid source extension: %q", c.Extensions[i])
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		c.Extensions[i] = ext
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	return nil
}

// Workers returns the degree of parallelism for one compile phase
func (c *Config) Workers() int {
	if c.Jobs > 0 {
		return c.Jobs
	}

	return max(runtime.NumCPU(), 1)
}

// ExecutablePath is the link target
func (c *Config) ExecutablePath() string {
	return utils.Normalize(c.BinDir + string(filepath.Separator) + c.Output)
}

// JournalPath is the build journal database, kept beside the dependency cache root
func (c *Config) JournalPath() string {
	return filepath.Join(filepath.Dir(c.DepDir), JournalFile)
}

func (c *Config) resolve(dir string) string {
	if !filepath.IsAbs(dir) {
		dir = c.BaseDir + string(filepath.Separator) + dir
	}

	return utils.Normalize(dir)
}

package build

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBuildFailed is returned when at least one object failed to compile
	ErrBuildFailed = errors.New("build failed")

	// ErrLinkFailed is returned when the linker reported failure
	ErrLinkFailed = errors.New("link failed")

	// ErrNoSources is returned when the source tree holds no translation units
	ErrNoSources = errors.New("no source files found")

	// ErrOutputConflict is returned when two sources map to the same output file
	ErrOutputConflict = errors.New("conflicting output paths")
)

// MissingDependencyError reports a unit whose dependency list still names
// files that do not exist after being regenerated. Nothing is compiled when
// it is returned.
type MissingDependencyError struct {
	Unit    string
	Object  string
	Missing []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s: missing dependencies: %s", e.Unit, strings.Join(e.Missing, ", "))
}

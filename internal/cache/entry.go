package cache

import "time"

// Entry records the most recent compile of one source file
type Entry struct {
	// Source is the absolute, normalized path of the source file (the key)
	Source string `json:"source"`

	// Object is the object file the compile wrote
	Object string `json:"object"`

	// CommandHash fingerprints the compile command line, see HashCommand
	CommandHash string `json:"command_hash"`

	// Success indicates if the compile exited with status 0
	Success bool `json:"success"`

	// Duration of the compile invocation
	Duration time.Duration `json:"duration"`

	// RunID identifies the build run that performed the compile
	RunID string `json:"run_id"`

	// Timestamp when the compile finished
	Timestamp time.Time `json:"timestamp"`
}

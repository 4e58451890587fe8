package codes

import "fmt"

// ErrorCodes maps compiler driver and shell exit codes to their descriptions
var ErrorCodes = map[int]string{
	0:   "Success",
	1:   "Compilation or link errors",
	2:   "Invalid invocation",
	4:   "Internal compiler error",
	126: "Program found but not executable",
	127: "Program not found",
}

// Signals that commonly end a compiler process, reported as 128+n
var signalNames = map[int]string{
	1:  "SIGHUP",
	2:  "SIGINT",
	6:  "SIGABRT",
	9:  "SIGKILL",
	11: "SIGSEGV",
	15: "SIGTERM",
}

// IsSuccess returns true if the exit code indicates a successful invocation
func IsSuccess(code int) bool {
	return code == 0
}

// GetErrorMessage returns the error message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	if code > 128 {
		if name, ok := signalNames[code-128]; ok {
			return fmt.Sprintf("Terminated by %s", name)
		}

		return fmt.Sprintf("Terminated by signal %d", code-128)
	}

	return "Unknown error"
}

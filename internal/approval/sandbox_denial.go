package approval

import "strings"

// sandboxDenialMarkers are substrings commonly emitted by sandboxed
// execution backends (seccomp, Landlock, macOS sandbox-exec) when a syscall
// or filesystem access is denied rather than failing for a normal reason.
var sandboxDenialMarkers = []string{
	"operation not permitted",
	"permission denied",
	"read-only file system",
	"sandbox-exec",
	"deny(1)",
	"seccomp",
	"landlock",
}

// LooksLikeSandboxDenial applies the §4.D "sandbox denial detection"
// heuristic to a command's aggregated output after a short exit: it
// inspects stdout/stderr for markers that suggest the failure was caused by
// the sandbox rather than the command's own logic.
func LooksLikeSandboxDenial(exitCode int, stdout, stderr string) bool {
	if exitCode == 0 {
		return false
	}
	combined := strings.ToLower(stdout + "\n" + stderr)
	for _, marker := range sandboxDenialMarkers {
		if strings.Contains(combined, marker) {
			return true
		}
	}
	return false
}

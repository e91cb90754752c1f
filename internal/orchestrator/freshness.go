package orchestrator

import (
	"os"
	"time"
)

// IsFresh implements the freshness contract from §3/§4.6: a cached
// executable is fresh iff its mtime is no older than the source and the
// synthesised manifest. sourceModTime is the caller's best knowledge of
// when the logical source last changed; for ephemeral origins (stdin,
// expression, repl-buffer) callers should pass time.Now() so freshness is
// never claimed for input that was never written to disk.
func IsFresh(paths Paths, sourceModTime time.Time) bool {
	exeInfo, err := os.Stat(paths.Executable)
	if err != nil {
		return false
	}
	if sourceModTime.After(exeInfo.ModTime()) {
		return false
	}
	if manifestInfo, err := os.Stat(paths.ManifestPath()); err == nil {
		if manifestInfo.ModTime().After(exeInfo.ModTime()) {
			return false
		}
	}
	return true
}

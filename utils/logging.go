package utils

import "log"

// LogError reports a non-fatal error from a named subsystem. The node's
// background loops use it so a failed persistence pass is visible without
// killing the process.
func LogError(stage string, err error) {
	log.Printf("[%s] error: %v", stage, err)
}

// Package debug provides global debug logging flags
package debug

import "fmt"

// Enabled controls whether debug logging is active
var Enabled bool

// Pipeline controls whether per-frame pipeline traces are shown (frame drops,
// snapshot reads, extraction handoffs). Use --debug-pipeline to enable these
// very verbose logs.
var Pipeline bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// PipelineLog prints a message only if pipeline debug mode is enabled
func PipelineLog(format string, args ...interface{}) {
	if Pipeline {
		fmt.Printf(format, args...)
	}
}

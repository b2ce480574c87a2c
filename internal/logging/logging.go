// Package logging builds the process logger: a text file sink plus optional
// GELF and OpenTelemetry sinks, with the running match's position attached
// to every record.
package logging

import (
	"path/filepath"
	"time"
)

// LogFilePath names a per-run log file, e.g. matchsim_20260212_213836.log,
// or matchsim_20260212_213836.otel.log for kind "otel".
func LogFilePath(logsDir, program, kind string, runStart time.Time) string {
	name := program + "_" + runStart.Format("20060102_150405")
	if kind != "" {
		name += "." + kind
	}
	return filepath.Join(logsDir, name+".log")
}

package smoke

import (
	"fmt"
	"os"

	"github.com/okian/halloffame/pkg/logger"
)

// SetupLogging initializes the logger in the given format and enables debug
// output when verbose is set.
func SetupLogging(format string, verbose bool) error {
	if err := logger.InitWithFormat(format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	os.Stdout.WriteString(`HallOfFame Smoke Tool
=====================

Drives a running HallOfFame service through create, list, update and delete
for many people at once, then checks that invalid input is refused.

Usage:
  go run ./cmd/people-smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -people int
        Number of people to create (default 200)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log-format string
        Log output format: text or json (default "text")
  -verbose
        Log progress and debug output
  -help
        Show this help message

Examples:
  # Run with default settings
  go run ./cmd/people-smoke

  # Heavier run against another host
  go run ./cmd/people-smoke -people 5000 -workers 32 -url http://localhost:9090
`)
}

// Package smoke drives a running service through a full CRUD cycle over
// HTTP and checks every answer against what it sent.
package smoke

import (
	"errors"
	"time"
)

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	People  int           // Number of people to create
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Log every request outcome
}

// Stats holds run statistics.
type Stats struct {
	Generated int
	Created   int
	Verified  int
	Updated   int
	Deleted   int
	Gone      int
	Rejected  int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Sentinel errors for a failed run.
var (
	ErrUnhealthy    = errors.New("service not ready")
	ErrMismatch     = errors.New("stored person differs from submitted one")
	ErrUnexpected   = errors.New("unexpected status code")
	ErrFailedChecks = errors.New("smoke checks failed")
)

func (c *Config) normalize() {
	if c.People <= 0 {
		c.People = 1
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Workers > c.People {
		c.Workers = c.People
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

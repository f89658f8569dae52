package smoke

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/halloffame/internal/domain/model"
	"github.com/okian/halloffame/pkg/logger"
)

// percent scales ratios for reporting.
const percent = 100

// Run executes the complete smoke cycle and returns its statistics. The error
// is non-nil when the service was unreachable or any check failed.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	cfg.normalize()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("smoke")
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("people", cfg.People),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	// Step 1: Check service readiness
	if _, err := c.expect(ctx, http.StatusOK, http.MethodGet, readyPath, nil); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	// Step 2: Generate people
	people := generatePeople(cfg.People)
	stats.Generated = len(people)

	// Step 3: Create them concurrently
	created, failed := runPool(ctx, "create", cfg.Workers, len(people), cfg.Verbose, func(ctx context.Context, i int) error {
		_, err := c.expect(ctx, http.StatusOK, http.MethodPost, personPath, people[i])
		return err
	})
	stats.Created = created
	stats.Failed += failed

	// Step 4: Learn assigned ids from the list and compare content
	ids, err := verifyListed(ctx, c, people, stats)
	if err != nil {
		return finish(ctx, stats, err)
	}

	// Step 5: Replace half of them and read them back
	half := len(people) / 2
	updated, failed := runPool(ctx, "update", cfg.Workers, half, cfg.Verbose, func(ctx context.Context, i int) error {
		if ids[i] == 0 {
			return fmt.Errorf("%w: person %d was never listed", ErrMismatch, i)
		}
		next := people[i].Clone()
		next.ID = ids[i]
		next.DisplayName = nil
		next.Skills = randomSkills()
		if _, err := c.expect(ctx, http.StatusOK, http.MethodPut, personURL(next.ID), next); err != nil {
			return err
		}
		return verifyOne(ctx, c, next)
	})
	stats.Updated = updated
	stats.Failed += failed

	// Step 6: Delete everyone and confirm they are gone
	deleted, failed := runPool(ctx, "delete", cfg.Workers, len(ids), cfg.Verbose, func(ctx context.Context, i int) error {
		if ids[i] == 0 {
			return fmt.Errorf("%w: person %d was never listed", ErrMismatch, i)
		}
		if _, err := c.expect(ctx, http.StatusOK, http.MethodDelete, personURL(ids[i]), nil); err != nil {
			return err
		}
		_, err := c.expect(ctx, http.StatusNotFound, http.MethodGet, personURL(ids[i]), nil)
		return err
	})
	stats.Deleted = deleted
	stats.Gone = deleted
	stats.Failed += failed

	// Step 7: The gate must refuse bad input and report missing targets
	rejectChecks(ctx, c, lastID(ids), stats)

	return finish(ctx, stats, nil)
}

// verifyListed matches listed people to the submitted ones by their unique
// name and returns the assigned ids, aligned with people.
func verifyListed(ctx context.Context, c *client, people []model.Person, stats *Stats) ([]int64, error) {
	listed, err := c.list(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]model.Person, len(listed))
	for _, p := range listed {
		byName[p.Name] = p
	}

	log := logger.Get().Named("smoke")
	ids := make([]int64, len(people))
	for i, want := range people {
		got, ok := byName[want.Name]
		if !ok {
			stats.Failed++
			log.Warn(ctx, "created person missing from list", logger.String("name", want.Name))
			continue
		}
		ids[i] = got.ID
		want.ID = got.ID
		if !model.SameContent(got, want) {
			stats.Failed++
			log.Warn(ctx, "listed person differs", logger.Int64("id", got.ID), logger.String("name", want.Name))
			continue
		}
		stats.Verified++
	}
	return ids, nil
}

// verifyOne fetches want.ID and compares it with want.
func verifyOne(ctx context.Context, c *client, want model.Person) error {
	got, err := c.get(ctx, want.ID)
	if err != nil {
		return err
	}
	if !model.SameContent(got, want) {
		return fmt.Errorf("%w: id %d", ErrMismatch, want.ID)
	}
	return nil
}

// rejectChecks sends requests the service must refuse. goneID names a person
// that no longer exists.
func rejectChecks(ctx context.Context, c *client, goneID int64, stats *Stats) {
	log := logger.Get().Named("smoke")
	valid := model.Person{ID: goneID, Name: "smoke-gone", Skills: []model.Skill{{Name: "go", Level: 5}}}

	checks := []struct {
		name   string
		want   int
		method string
		path   string
		body   any
	}{
		{"level above range", http.StatusBadRequest, http.MethodPost, personPath,
			model.Person{Name: "smoke-invalid", Skills: []model.Skill{{Name: "go", Level: 11}}}},
		{"null payload", http.StatusBadRequest, http.MethodPost, personPath, []byte("null")},
		{"update without id", http.StatusBadRequest, http.MethodPut, personPath, valid},
		{"id mismatch", http.StatusBadRequest, http.MethodPut, personURL(goneID + 1), valid},
		{"update missing person", http.StatusNotFound, http.MethodPut, personURL(goneID), valid},
		{"delete missing person", http.StatusNotFound, http.MethodDelete, personURL(goneID), nil},
	}

	for _, chk := range checks {
		if _, err := c.expect(ctx, chk.want, chk.method, chk.path, chk.body); err != nil {
			stats.Failed++
			log.Warn(ctx, "check failed", logger.String("check", chk.name), logger.Error(err))
			continue
		}
		stats.Rejected++
	}
}

// lastID returns the largest known id, or a large id nobody uses when none
// were learned.
func lastID(ids []int64) int64 {
	var last int64
	for _, id := range ids {
		if id > last {
			last = id
		}
	}
	if last == 0 {
		return 1 << 40
	}
	return last
}

func finish(ctx context.Context, stats *Stats, err error) (*Stats, error) {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err != nil {
		return stats, err
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d failures", ErrFailedChecks, stats.Failed)
	}
	logger.Get().Named("smoke").Info(ctx, "smoke run passed")
	return stats, nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, requestsPerSecond float64

	if stats.Generated > 0 {
		successRate = float64(stats.Verified) / float64(stats.Generated) * percent
	}
	if stats.Duration > 0 {
		requests := stats.Created + stats.Updated*2 + stats.Deleted*2 + stats.Rejected + 1
		requestsPerSecond = float64(requests) / stats.Duration.Seconds()
	}

	logger.Get().Named("smoke").Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("created", stats.Created),
		logger.Int("verified", stats.Verified),
		logger.Int("updated", stats.Updated),
		logger.Int("deleted", stats.Deleted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}

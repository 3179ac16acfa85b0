package copier

import (
	"context"

	"github.com/shinji-kodama/docker-image-cp/internal/logger"
)

// release is one pending teardown registered on a cleanupStack.
type release struct {
	name string
	fn   func(context.Context) error

	// bestEffort releases log their failure instead of returning it.
	bestEffort bool
}

// cleanupStack collects teardowns for resources acquired during a run and
// executes them in reverse order of acquisition.
type cleanupStack struct {
	releases []release
}

// push registers a teardown that fails the run if it fails.
func (s *cleanupStack) push(name string, fn func(context.Context) error) {
	s.releases = append(s.releases, release{name: name, fn: fn})
}

// pushBestEffort registers a teardown whose failure is only logged.
func (s *cleanupStack) pushBestEffort(name string, fn func(context.Context) error) {
	s.releases = append(s.releases, release{name: name, fn: fn, bestEffort: true})
}

// close runs every registered teardown, last-in first-out, and empties the
// stack. All teardowns run even when an earlier one fails; the first hard
// failure is returned.
func (s *cleanupStack) close(ctx context.Context) error {
	log := logger.From(ctx)

	var firstErr error
	for i := len(s.releases) - 1; i >= 0; i-- {
		r := s.releases[i]

		log.Debug("releasing", "resource", r.name)
		err := r.fn(ctx)
		if err == nil {
			continue
		}

		if r.bestEffort {
			log.Warn("failed to remove, leaving it behind", "resource", r.name, "error", err)
			continue
		}

		log.Error("failed to remove", "resource", r.name, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	s.releases = nil
	return firstErr
}

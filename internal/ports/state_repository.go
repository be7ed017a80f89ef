package ports

import (
	"context"

	"github.com/bft-labs/repovault/internal/domain"
)

// StateRepository handles local run-state persistence.
// Implementations persist state to disk atomically.
type StateRepository interface {
	// Load retrieves the last saved state.
	// Returns an empty state and nil error if no state exists.
	// Returns an error only for actual read failures.
	Load(ctx context.Context) (domain.RunState, error)

	// Save persists the current state atomically.
	// The implementation should use atomic writes (write to temp file,
	// then rename) to prevent corruption on crash.
	Save(ctx context.Context, state domain.RunState) error

	// Exists reports whether a state file is present on disk, without
	// reading it. Drives the local-first load precedence.
	Exists() bool
}

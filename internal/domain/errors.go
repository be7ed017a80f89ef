package domain

import "errors"

// Domain errors represent error conditions in the repovault domain.
// These errors cross component boundaries and can be checked with errors.Is.
var (
	// ErrFatalRun marks whole-run failures: the repository list could not
	// be obtained or the object store could not be initialized. The run
	// aborts; per-repository failures never carry this.
	ErrFatalRun = errors.New("repovault: fatal run error")

	// ErrClone is returned when a mirror clone fails for auth or network
	// reasons. Fatal for the repository, not for the run.
	ErrClone = errors.New("repovault: clone failed")

	// ErrEmptyRepository is returned when a remote has zero reachable
	// refs. A valid terminal state, not a failure.
	ErrEmptyRepository = errors.New("repovault: repository is empty")

	// ErrRepositoryNotFound is returned when the remote does not exist,
	// e.g. a wiki that was never created.
	ErrRepositoryNotFound = errors.New("repovault: repository not found")

	// ErrRateLimited is returned by the provider when the API rate limit
	// is exhausted; retryable after the provider-specified reset.
	ErrRateLimited = errors.New("repovault: provider rate limit exceeded")

	// ErrStoreIO is returned when the local state file cannot be written.
	// A failed remote mirror of the state is a warning, never this error.
	ErrStoreIO = errors.New("repovault: state store io")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("repovault: invalid configuration")
)

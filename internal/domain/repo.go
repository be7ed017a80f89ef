package domain

import "time"

// RepoDescriptor identifies one remote repository and the provider-reported
// facts the engine needs to decide whether and how to capture it.
// Descriptors are supplied by the provider adapter and are immutable for the
// duration of a run.
type RepoDescriptor struct {
	// Owner is the organization or user that owns the repository.
	Owner string

	// Name is the repository name without the owner.
	Name string

	// PushedAt is the last code-affecting activity reported by the provider.
	// Zero when the repository has never been pushed to; callers fall back
	// to the creation time in that case before the descriptor is built.
	PushedAt time.Time

	Private  bool
	Fork     bool
	Archived bool
	HasWiki  bool
}

// FullName returns "owner/name", the identity used as the state map key.
func (d RepoDescriptor) FullName() string {
	return d.Owner + "/" + d.Name
}

// RepoState is the durable watermark for one repository: what was captured
// last, and when. It is created on the first successful snapshot and
// overwritten on every subsequent one.
type RepoState struct {
	// LastPushedAt is the pushed_at value at the time of the last
	// successful snapshot (the watermark).
	LastPushedAt time.Time `json:"pushed_at"`

	// LastBackupAt is the wall-clock time the snapshot completed.
	LastBackupAt time.Time `json:"last_backup"`

	// LastBackupID identifies the snapshot that holds the capture.
	LastBackupID string `json:"last_backup_id"`
}

// RunState is the process-wide durable state: the last completed run and the
// per-repository watermarks, keyed by "owner/name".
type RunState struct {
	LastRunAt    time.Time            `json:"last_sync"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Repositories map[string]RepoState `json:"repositories"`
}

// NewRunState returns an empty RunState with an initialized repository map.
func NewRunState() RunState {
	return RunState{Repositories: make(map[string]RepoState)}
}

// IsEmpty reports whether the state has never recorded a run or a snapshot.
func (s RunState) IsEmpty() bool {
	return s.LastRunAt.IsZero() && len(s.Repositories) == 0
}

// BackedUpRepos returns the set of repositories that have at least one
// recorded snapshot, mapped to that snapshot's backup id.
func (s RunState) BackedUpRepos() map[string]string {
	out := make(map[string]string, len(s.Repositories))
	for name, rs := range s.Repositories {
		if rs.LastBackupID != "" {
			out[name] = rs.LastBackupID
		}
	}
	return out
}

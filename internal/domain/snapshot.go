package domain

import "time"

// Status is the terminal result of one repository capture.
type Status string

const (
	// StatusSuccess means every attempted phase and artifact succeeded.
	StatusSuccess Status = "success"

	// StatusPartial means at least one artifact succeeded and at least one
	// failed.
	StatusPartial Status = "partial"

	// StatusFailed means the mirror phase failed and nothing usable was
	// produced.
	StatusFailed Status = "failed"
)

// Well-known artifact names within a snapshot.
const (
	ArtifactIssues       = "metadata/issues.json"
	ArtifactPullRequests = "metadata/pull-requests.json"
	ArtifactReleases     = "metadata/releases.json"
)

// Artifact is one uploaded object belonging to a snapshot.
type Artifact struct {
	// Name is the artifact's name relative to the snapshot key prefix,
	// e.g. "repository.bundle" or "metadata/issues.json".
	Name string

	// Key is the full object-store key the artifact was uploaded under.
	Key string

	// Size is the artifact size in bytes.
	Size int64
}

// SnapshotRecord is the immutable result of one repository capture. It is
// created by the pipeline, consumed by the coordinator, retention planning
// and alerting, and never mutated after creation.
type SnapshotRecord struct {
	BackupID string
	Repo     string

	// PushedAt is the descriptor's pushed_at captured with this snapshot;
	// it becomes the new watermark when the state advances.
	PushedAt time.Time

	Status    Status
	Artifacts []Artifact

	// Errors lists per-artifact failures with artifact context. A failed
	// mirror phase produces exactly one entry.
	Errors []string

	// Empty is set when the repository had zero reachable refs; a valid
	// terminal state recorded as success with no bundle artifact.
	Empty bool

	// WikiAbsent is set when the wiki was requested but missing or empty.
	// Never surfaced as an error.
	WikiAbsent bool

	// BundleOK is set when the primary bundle artifact was produced and
	// uploaded (or the repository was empty and no bundle was required).
	BundleOK bool

	// Exported metadata item counts, for the run summary.
	Issues   int
	Pulls    int
	Releases int

	Duration time.Duration
}

// Bytes returns the total uploaded size across all artifacts.
func (r SnapshotRecord) Bytes() int64 {
	var n int64
	for _, a := range r.Artifacts {
		n += a.Size
	}
	return n
}

// AdvancesState reports whether this record moves the repository's watermark
// forward. Failed captures never advance; partial captures advance only when
// the primary bundle is present, so the next run retries from the last
// known-good watermark otherwise.
func (r SnapshotRecord) AdvancesState() bool {
	switch r.Status {
	case StatusSuccess:
		return true
	case StatusPartial:
		return r.BundleOK
	default:
		return false
	}
}

// RetentionDecision partitions the snapshots physically present for one
// repository into those to keep and those to delete. Keep always contains
// the most recent snapshot.
type RetentionDecision struct {
	Repo   string
	Keep   []string
	Delete []string
}

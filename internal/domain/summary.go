package domain

import "time"

// AlertLevel classifies a run summary for the alerting collaborator.
type AlertLevel string

const (
	AlertSuccess AlertLevel = "success"
	AlertWarning AlertLevel = "warning"
	AlertError   AlertLevel = "error"
)

// RunSummary aggregates one full run for logging and alerting. Partial
// success is never reported as full success: any per-repository error keeps
// the summary at warning or error level.
type RunSummary struct {
	BackupID  string
	Owner     string
	StartedAt time.Time
	Duration  time.Duration

	// Repository counts.
	Total    int
	BackedUp int
	Skipped  int
	Failed   int

	// Aggregate artifact counts.
	Issues   int
	Pulls    int
	Releases int
	Wikis    int

	// TotalBytes is the sum of all uploaded artifact sizes.
	TotalBytes int64

	// DeletedSnapshots counts snapshots pruned by retention this run.
	DeletedSnapshots int

	// Errors lists every per-repository and per-artifact error with
	// repository context, in completion order.
	Errors []string

	// Warnings carries non-blocking conditions, such as a failed remote
	// state sync or repositories skipped during shutdown.
	Warnings []string
}

// Level derives the alert level: error when nothing was captured and
// something failed, warning when the run partially succeeded or produced
// warnings, success otherwise.
func (s RunSummary) Level() AlertLevel {
	if len(s.Errors) > 0 && s.BackedUp == 0 {
		return AlertError
	}
	if len(s.Errors) > 0 || len(s.Warnings) > 0 {
		return AlertWarning
	}
	return AlertSuccess
}

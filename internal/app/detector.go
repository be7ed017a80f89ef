package app

import (
	"github.com/bft-labs/repovault/internal/domain"
)

// Detector decides whether a repository needs a new snapshot by comparing
// the provider-reported activity against the stored watermark.
type Detector struct {
	incremental bool
}

// NewDetector creates a Detector. With incremental disabled every repository
// is always captured.
func NewDetector(incremental bool) *Detector {
	return &Detector{incremental: incremental}
}

// NeedsBackup reports whether desc must be captured this run.
//
// A repository with no watermark has never been captured and always needs a
// backup. Otherwise the comparison is strictly pushed_at > watermark: equal
// timestamps mean no new activity, and an older timestamp (a clock quirk or
// a force-push rewriting history visible through the API) is left alone
// until real activity advances it.
func (d *Detector) NeedsBackup(desc domain.RepoDescriptor, st domain.RunState) bool {
	if !d.incremental {
		return true
	}
	prev, ok := st.Repositories[desc.FullName()]
	if !ok {
		return true
	}
	return desc.PushedAt.After(prev.LastPushedAt)
}

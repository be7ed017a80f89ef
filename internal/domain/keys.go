package domain

import (
	"strings"
	"time"
)

// backupIDLayout is the sortable timestamp format shared by every repository
// captured in one run. Lexicographic order equals chronological order.
const backupIDLayout = "2006-01-02_15-04-05"

// NewBackupID derives the run's backup id from its start time.
func NewBackupID(t time.Time) string {
	return t.Format(backupIDLayout)
}

// ParseBackupID parses a backup id back into a timestamp. Used to validate
// ids found in the store before retention considers them.
func ParseBackupID(id string) (time.Time, error) {
	return time.Parse(backupIDLayout, id)
}

// OwnerPrefix returns "{prefix}/{owner}" or "{owner}" when prefix is empty,
// letting multiple owners share one bucket.
func OwnerPrefix(prefix, owner string) string {
	if prefix == "" {
		return owner
	}
	return strings.TrimSuffix(prefix, "/") + "/" + owner
}

// RepoPrefix returns the key prefix holding every snapshot of one repository.
func RepoPrefix(prefix, owner, repo string) string {
	return OwnerPrefix(prefix, owner) + "/" + repo + "/"
}

// SnapshotPrefix returns the key prefix for one repository snapshot.
func SnapshotPrefix(prefix, owner, repo, backupID string) string {
	return RepoPrefix(prefix, owner, repo) + backupID + "/"
}

// ObjectKey returns the full key for one artifact within a snapshot.
func ObjectKey(prefix, owner, repo, backupID, name string) string {
	return SnapshotPrefix(prefix, owner, repo, backupID) + name
}

// StateKey returns the key of the remote state mirror for an owner.
func StateKey(prefix, owner string) string {
	return OwnerPrefix(prefix, owner) + "/state.json"
}

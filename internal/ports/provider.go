package ports

import (
	"context"

	"github.com/bft-labs/repovault/internal/domain"
)

// Provider abstracts the source-control host: listing the repositories to
// back up and exporting their non-git metadata.
//
// ListRepositories applies the configured inclusion filters (private, fork,
// archived) before returning. Export methods return the serialized document
// for one metadata kind; each is attempted independently by the pipeline so
// a rate-limited export of one kind never blocks the others. Export failures
// caused by rate limiting wrap domain.ErrRateLimited.
type Provider interface {
	// ListRepositories returns the candidate repository set for one run.
	ListRepositories(ctx context.Context) ([]domain.RepoDescriptor, error)

	// ExportIssues returns all issues of the repository as a JSON document.
	ExportIssues(ctx context.Context, desc domain.RepoDescriptor) ([]byte, error)

	// ExportPullRequests returns all pull requests as a JSON document.
	ExportPullRequests(ctx context.Context, desc domain.RepoDescriptor) ([]byte, error)

	// ExportReleases returns all releases as a JSON document.
	ExportReleases(ctx context.Context, desc domain.RepoDescriptor) ([]byte, error)

	// CloneURL returns the URL to mirror-clone the repository, with
	// credentials embedded when the provider is authenticated.
	CloneURL(desc domain.RepoDescriptor) string

	// WikiURL returns the clone URL of the repository's wiki, or "" when
	// the provider reports no wiki.
	WikiURL(desc domain.RepoDescriptor) string
}

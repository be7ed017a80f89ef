package ports

import (
	"context"
	"io"
)

// ObjectStore abstracts the S3-compatible bucket that holds snapshots and
// the remote state mirror.
//
// Uploads are not externally visible until complete: implementations must
// guarantee that an aborted transfer leaves no object at the final key.
type ObjectStore interface {
	// EnsureBucket verifies the bucket exists, creating it when absent.
	// Failure here is fatal for the run.
	EnsureBucket(ctx context.Context) error

	// Put uploads the contents of r under key. Large payloads use
	// multi-part transfer.
	Put(ctx context.Context, key string, r io.Reader) error

	// PutFile uploads a local file under key.
	PutFile(ctx context.Context, key, path string) error

	// Get downloads the object at key. Returns an error wrapping
	// domain.ErrRepositoryNotFound semantics via NotFound below.
	Get(ctx context.Context, key string) ([]byte, error)

	// NotFound reports whether err from Get means the key does not exist.
	NotFound(err error) bool

	// Delete removes a single object.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every object under prefix and returns the
	// number of objects deleted.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// List returns the keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// ListDirs returns the immediate "directory" names under prefix,
	// e.g. the backup ids present under a repository prefix.
	ListDirs(ctx context.Context, prefix string) ([]string, error)

	// Size returns the total byte size of all objects under prefix.
	Size(ctx context.Context, prefix string) (int64, error)
}

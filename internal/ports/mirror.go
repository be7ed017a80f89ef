package ports

import "context"

// Mirror abstracts the native git plumbing used for capture.
//
// MirrorClone obtains a full mirror (all refs and objects) of remoteURL at
// destPath. It returns an error wrapping domain.ErrEmptyRepository when the
// remote has zero reachable refs, domain.ErrRepositoryNotFound when the
// remote does not exist, and domain.ErrClone for auth or network failures.
//
// CreateBundle packages the mirror at mirrorPath into a single-file bundle
// at bundlePath, containing every ref. The caller owns both paths.
type Mirror interface {
	MirrorClone(ctx context.Context, remoteURL, destPath string) error
	CreateBundle(ctx context.Context, mirrorPath, bundlePath string) error
}

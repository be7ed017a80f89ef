// Package gitmirror implements ports.Mirror. Cloning goes through go-git so
// empty and missing remotes map to typed errors; bundle creation shells out
// to the git binary, which is the only producer of the bundle format.
package gitmirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/pkg/log"
)

// Mirror clones repositories and packages them into bundles.
type Mirror struct {
	logger log.Logger
}

func New(logger log.Logger) *Mirror {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Mirror{logger: logger}
}

// MirrorClone fetches a bare mirror of remoteURL into destPath.
func (m *Mirror) MirrorClone(ctx context.Context, remoteURL, destPath string) error {
	m.logger.Debug("mirror clone", log.String("dest", destPath))

	_, err := git.PlainCloneContext(ctx, destPath, true, &git.CloneOptions{
		URL:    remoteURL,
		Mirror: true,
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return fmt.Errorf("%w: %s", domain.ErrEmptyRepository, redact(remoteURL))
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, redact(remoteURL))
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: authentication failed for %s", domain.ErrClone, redact(remoteURL))
	default:
		return fmt.Errorf("%w: %s: %v", domain.ErrClone, redact(remoteURL), err)
	}
}

// CreateBundle writes a bundle containing every ref of the mirror at
// mirrorPath to bundlePath.
func (m *Mirror) CreateBundle(ctx context.Context, mirrorPath, bundlePath string) error {
	cmd := exec.CommandContext(ctx, "git", "bundle", "create", bundlePath, "--all")
	cmd.Dir = mirrorPath
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git bundle create: %v: %s", err, strings.TrimSpace(string(out)))
	}

	info, err := os.Stat(bundlePath)
	if err != nil {
		return fmt.Errorf("bundle not written: %w", err)
	}
	m.logger.Debug("bundle created",
		log.String("path", bundlePath),
		log.Int64("bytes", info.Size()))
	return nil
}

// redact strips userinfo from a clone URL so tokens never reach logs or
// error chains.
func redact(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme < 0 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}

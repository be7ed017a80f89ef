package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
	"github.com/bft-labs/repovault/pkg/log"
)

// PipelineConfig carries the per-run settings the pipeline needs.
type PipelineConfig struct {
	// Prefix is the object key prefix shared by all snapshots.
	Prefix string

	// WorkDir is where per-repository scratch directories are created.
	WorkDir string

	IncludeMetadata bool
	IncludeWiki     bool

	// UploadRetries is the number of attempts per artifact upload.
	UploadRetries int
}

// Pipeline captures one repository into one snapshot: mirror clone, bundle,
// optional wiki, optional metadata exports, each uploaded as it is produced.
type Pipeline struct {
	provider ports.Provider
	mirror   ports.Mirror
	store    ports.ObjectStore
	cfg      PipelineConfig
	logger   log.Logger
	now      func() time.Time
}

func NewPipeline(provider ports.Provider, mirror ports.Mirror, store ports.ObjectStore, cfg PipelineConfig, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if cfg.UploadRetries < 1 {
		cfg.UploadRetries = 1
	}
	return &Pipeline{
		provider: provider,
		mirror:   mirror,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Capture runs the full snapshot pipeline for one repository and returns its
// record. Capture never returns an error: every failure mode is folded into
// the record's status and error list so the coordinator can aggregate.
func (p *Pipeline) Capture(ctx context.Context, desc domain.RepoDescriptor, backupID string) domain.SnapshotRecord {
	started := p.now()
	rec := domain.SnapshotRecord{
		BackupID: backupID,
		Repo:     desc.FullName(),
		PushedAt: desc.PushedAt,
	}

	workDir, err := os.MkdirTemp(p.cfg.WorkDir, desc.Name+"-")
	if err != nil {
		rec.Status = domain.StatusFailed
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: scratch dir: %v", rec.Repo, err))
		rec.Duration = p.now().Sub(started)
		return rec
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			p.logger.Warn("scratch dir cleanup failed",
				log.String("repo", rec.Repo), log.Err(err))
		}
	}()

	p.captureBundle(ctx, desc, workDir, &rec)
	if rec.Status == domain.StatusFailed {
		rec.Duration = p.now().Sub(started)
		return rec
	}

	if p.cfg.IncludeWiki && desc.HasWiki {
		p.captureWiki(ctx, desc, workDir, &rec)
	}
	if p.cfg.IncludeMetadata {
		p.captureMetadata(ctx, desc, &rec)
	}

	switch {
	case len(rec.Errors) == 0:
		rec.Status = domain.StatusSuccess
	case len(rec.Artifacts) > 0 || rec.Empty:
		rec.Status = domain.StatusPartial
	default:
		rec.Status = domain.StatusFailed
	}
	rec.Duration = p.now().Sub(started)

	p.logger.Info("repository captured",
		log.String("repo", rec.Repo),
		log.String("status", string(rec.Status)),
		log.Int("artifacts", len(rec.Artifacts)),
		log.Int64("bytes", rec.Bytes()),
		log.Duration("took", rec.Duration))
	return rec
}

// captureBundle mirrors the repository and uploads the bundle. A failed
// mirror clone is fatal for the repository and sets StatusFailed; an empty
// remote is a valid terminal state with no bundle.
func (p *Pipeline) captureBundle(ctx context.Context, desc domain.RepoDescriptor, workDir string, rec *domain.SnapshotRecord) {
	mirrorPath := filepath.Join(workDir, "mirror.git")
	err := p.mirror.MirrorClone(ctx, p.provider.CloneURL(desc), mirrorPath)
	if errors.Is(err, domain.ErrEmptyRepository) {
		p.logger.Info("repository is empty, nothing to bundle", log.String("repo", rec.Repo))
		rec.Empty = true
		rec.BundleOK = true
		return
	}
	if err != nil {
		rec.Status = domain.StatusFailed
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: %v", rec.Repo, err))
		return
	}

	bundlePath := filepath.Join(workDir, "repository.bundle")
	if err := p.mirror.CreateBundle(ctx, mirrorPath, bundlePath); err != nil {
		rec.Status = domain.StatusFailed
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: %v", rec.Repo, err))
		return
	}

	// An upload failure is not fatal for the repository: the metadata
	// phases still run, but the watermark will not advance.
	if art, err := p.uploadFile(ctx, desc, rec.BackupID, "repository.bundle", bundlePath); err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: upload bundle: %v", rec.Repo, err))
	} else {
		rec.Artifacts = append(rec.Artifacts, art)
		rec.BundleOK = true
	}
}

// captureWiki mirrors and bundles the wiki. A missing or empty wiki is
// recorded, never reported as an error: GitHub advertises has_wiki even when
// no wiki page was ever created.
func (p *Pipeline) captureWiki(ctx context.Context, desc domain.RepoDescriptor, workDir string, rec *domain.SnapshotRecord) {
	wikiURL := p.provider.WikiURL(desc)
	if wikiURL == "" {
		rec.WikiAbsent = true
		return
	}

	wikiPath := filepath.Join(workDir, "wiki.git")
	err := p.mirror.MirrorClone(ctx, wikiURL, wikiPath)
	if errors.Is(err, domain.ErrEmptyRepository) || errors.Is(err, domain.ErrRepositoryNotFound) {
		rec.WikiAbsent = true
		return
	}
	if err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: wiki: %v", rec.Repo, err))
		return
	}

	bundlePath := filepath.Join(workDir, "wiki.bundle")
	if err := p.mirror.CreateBundle(ctx, wikiPath, bundlePath); err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: wiki bundle: %v", rec.Repo, err))
		return
	}

	if art, err := p.uploadFile(ctx, desc, rec.BackupID, "wiki.bundle", bundlePath); err != nil {
		rec.Errors = append(rec.Errors, fmt.Sprintf("%s: upload wiki: %v", rec.Repo, err))
	} else {
		rec.Artifacts = append(rec.Artifacts, art)
	}
}

// captureMetadata exports issues, pull requests and releases. Each export is
// independent: a rate-limited issues export still leaves pull requests and
// releases to be captured.
func (p *Pipeline) captureMetadata(ctx context.Context, desc domain.RepoDescriptor, rec *domain.SnapshotRecord) {
	exports := []struct {
		name  string
		fetch func(context.Context, domain.RepoDescriptor) ([]byte, error)
		count *int
	}{
		{domain.ArtifactIssues, p.provider.ExportIssues, &rec.Issues},
		{domain.ArtifactPullRequests, p.provider.ExportPullRequests, &rec.Pulls},
		{domain.ArtifactReleases, p.provider.ExportReleases, &rec.Releases},
	}

	for _, ex := range exports {
		doc, err := ex.fetch(ctx, desc)
		if err != nil {
			rec.Errors = append(rec.Errors, fmt.Sprintf("%s: %v", rec.Repo, err))
			continue
		}
		*ex.count = countItems(doc)

		art, err := p.uploadBytes(ctx, desc, rec.BackupID, ex.name, doc)
		if err != nil {
			rec.Errors = append(rec.Errors, fmt.Sprintf("%s: upload %s: %v", rec.Repo, ex.name, err))
			continue
		}
		rec.Artifacts = append(rec.Artifacts, art)
	}
}

func (p *Pipeline) uploadFile(ctx context.Context, desc domain.RepoDescriptor, backupID, name, path string) (domain.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Artifact{}, err
	}
	key := domain.ObjectKey(p.cfg.Prefix, desc.Owner, desc.Name, backupID, name)
	err = p.withRetry(ctx, func() error {
		return p.store.PutFile(ctx, key, path)
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{Name: name, Key: key, Size: info.Size()}, nil
}

func (p *Pipeline) uploadBytes(ctx context.Context, desc domain.RepoDescriptor, backupID, name string, data []byte) (domain.Artifact, error) {
	key := domain.ObjectKey(p.cfg.Prefix, desc.Owner, desc.Name, backupID, name)
	err := p.withRetry(ctx, func() error {
		return p.store.Put(ctx, key, bytes.NewReader(data))
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	return domain.Artifact{Name: name, Key: key, Size: int64(len(data))}, nil
}

// withRetry runs fn up to the configured attempt count with exponential
// backoff between attempts.
func (p *Pipeline) withRetry(ctx context.Context, fn func() error) error {
	bo := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	var err error
	for attempt := 1; attempt <= p.cfg.UploadRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.cfg.UploadRetries {
			break
		}
		p.logger.Warn("upload attempt failed, retrying",
			log.Int("attempt", attempt), log.Err(err))
		if serr := bo.Sleep(ctx); serr != nil {
			return serr
		}
	}
	return err
}

// countItems returns the element count of a JSON array document, or 0 when
// the document is not an array.
func countItems(doc []byte) int {
	var items []json.RawMessage
	if err := json.Unmarshal(doc, &items); err != nil {
		return 0
	}
	return len(items)
}

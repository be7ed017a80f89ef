package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
	"github.com/bft-labs/repovault/pkg/log"
)

// StateStore is the durable state collaborator. state.Store satisfies it.
type StateStore interface {
	Load(ctx context.Context) (domain.RunState, error)
	SaveLocal(ctx context.Context, st domain.RunState) error
	Save(ctx context.Context, st domain.RunState) (warning string, err error)
}

// Capturer produces one snapshot record per repository. Pipeline satisfies
// it.
type Capturer interface {
	Capture(ctx context.Context, desc domain.RepoDescriptor, backupID string) domain.SnapshotRecord
}

// Notifier consumes the run summary. alert.Manager satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, summary domain.RunSummary)
}

// CoordinatorConfig carries the run-level settings.
type CoordinatorConfig struct {
	Owner   string
	Prefix  string
	Workers int
}

// Coordinator owns one backup run end to end: list, filter, dispatch
// captures to a bounded worker pool, merge results into state, prune, and
// report. It is the only writer of the run state.
type Coordinator struct {
	provider ports.Provider
	store    ports.ObjectStore
	states   StateStore
	detector *Detector
	capturer Capturer
	planner  *Planner
	notifier Notifier
	cfg      CoordinatorConfig
	logger   log.Logger
	now      func() time.Time
}

func NewCoordinator(
	provider ports.Provider,
	store ports.ObjectStore,
	states StateStore,
	detector *Detector,
	capturer Capturer,
	planner *Planner,
	notifier Notifier,
	cfg CoordinatorConfig,
	logger log.Logger,
) *Coordinator {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Coordinator{
		provider: provider,
		store:    store,
		states:   states,
		detector: detector,
		capturer: capturer,
		planner:  planner,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one backup run and returns its summary. An error is returned
// only for whole-run failures: the repository list or the object store could
// not be obtained, or the state could not be persisted. Per-repository
// failures are folded into the summary.
func (c *Coordinator) Run(ctx context.Context) (domain.RunSummary, error) {
	started := c.now().UTC()
	backupID := domain.NewBackupID(started)
	summary := domain.RunSummary{
		BackupID:  backupID,
		Owner:     c.cfg.Owner,
		StartedAt: started,
	}
	c.logger.Info("backup run starting",
		log.String("backup_id", backupID),
		log.String("owner", c.cfg.Owner))

	if err := c.store.EnsureBucket(ctx); err != nil {
		return summary, fmt.Errorf("%w: %v", domain.ErrFatalRun, err)
	}

	st, err := c.states.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", domain.ErrFatalRun, err)
	}

	repos, err := c.provider.ListRepositories(ctx)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", domain.ErrFatalRun, err)
	}
	summary.Total = len(repos)

	var pending []domain.RepoDescriptor
	for _, desc := range repos {
		if !c.detector.NeedsBackup(desc, st) {
			c.logger.Debug("repository unchanged, skipping", log.String("repo", desc.FullName()))
			summary.Skipped++
			continue
		}
		pending = append(pending, desc)
	}
	c.logger.Info("change detection complete",
		log.Int("total", summary.Total),
		log.Int("pending", len(pending)),
		log.Int("skipped", summary.Skipped))

	interrupted := c.captureAll(ctx, pending, backupID, &st, &summary)

	if !interrupted {
		c.prune(ctx, st, &summary)
		st.LastRunAt = started
	}

	warning, err := c.states.Save(ctx, st)
	if warning != "" {
		summary.Warnings = append(summary.Warnings, warning)
	}
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("persist state: %v", err))
		c.report(ctx, &summary, started)
		return summary, err
	}

	c.report(ctx, &summary, started)
	return summary, nil
}

// captureAll fans pending repositories out to the worker pool and merges the
// records into state and summary. This goroutine is the only one that
// touches st and summary; workers communicate exclusively through the
// channel. Returns true when a shutdown interrupted dispatch.
func (c *Coordinator) captureAll(ctx context.Context, pending []domain.RepoDescriptor, backupID string, st *domain.RunState, summary *domain.RunSummary) bool {
	records := make(chan domain.SnapshotRecord)
	skippedShutdown := 0

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)
	go func() {
		defer close(records)
		for _, desc := range pending {
			if ctx.Err() != nil {
				skippedShutdown++
				continue
			}
			desc := desc
			g.Go(func() error {
				records <- c.capturer.Capture(ctx, desc, backupID)
				return nil
			})
		}
		g.Wait()
	}()

	for rec := range records {
		c.merge(ctx, rec, st, summary)
	}

	if skippedShutdown > 0 {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("shutdown requested, %d repositories not attempted", skippedShutdown))
		return true
	}
	return ctx.Err() != nil
}

// merge folds one record into the summary and, when it advances the
// watermark, into the state, persisting locally after each repository.
func (c *Coordinator) merge(ctx context.Context, rec domain.SnapshotRecord, st *domain.RunState, summary *domain.RunSummary) {
	switch rec.Status {
	case domain.StatusFailed:
		summary.Failed++
	default:
		summary.BackedUp++
		summary.Issues += rec.Issues
		summary.Pulls += rec.Pulls
		summary.Releases += rec.Releases
		summary.TotalBytes += rec.Bytes()
		for _, a := range rec.Artifacts {
			if a.Name == "wiki.bundle" {
				summary.Wikis++
			}
		}
	}
	summary.Errors = append(summary.Errors, rec.Errors...)

	if !rec.AdvancesState() {
		return
	}
	st.Repositories[rec.Repo] = domain.RepoState{
		LastPushedAt: rec.PushedAt,
		LastBackupAt: c.now().UTC(),
		LastBackupID: rec.BackupID,
	}
	if err := c.states.SaveLocal(ctx, *st); err != nil {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("incremental state save failed: %v", err))
	}
}

// prune applies retention to every repository that has snapshots in the
// store. Pruning failures degrade to summary warnings.
func (c *Coordinator) prune(ctx context.Context, st domain.RunState, summary *domain.RunSummary) {
	if c.planner == nil {
		return
	}

	repos, err := c.store.ListDirs(ctx, domain.OwnerPrefix(c.cfg.Prefix, c.cfg.Owner)+"/")
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("retention listing failed: %v", err))
		return
	}
	sort.Strings(repos)

	protected := st.BackedUpRepos()
	for _, repo := range repos {
		decision, err := c.planner.Plan(ctx, repo, protected[c.cfg.Owner+"/"+repo])
		if err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("retention plan: %v", err))
			continue
		}
		n, err := c.planner.Apply(ctx, decision)
		summary.DeletedSnapshots += n
		if err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("retention apply: %v", err))
		}
	}
}

func (c *Coordinator) report(ctx context.Context, summary *domain.RunSummary, started time.Time) {
	summary.Duration = c.now().Sub(started)

	c.logger.Info("backup run finished",
		log.String("backup_id", summary.BackupID),
		log.String("level", string(summary.Level())),
		log.Int("backed_up", summary.BackedUp),
		log.Int("skipped", summary.Skipped),
		log.Int("failed", summary.Failed),
		log.Int("pruned", summary.DeletedSnapshots),
		log.Int64("bytes", summary.TotalBytes),
		log.Duration("took", summary.Duration))

	if c.notifier != nil {
		c.notifier.Dispatch(ctx, *summary)
	}
}

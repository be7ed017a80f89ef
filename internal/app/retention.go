package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
	"github.com/bft-labs/repovault/pkg/log"
)

// Planner computes which snapshots to keep per repository. Planning reads
// what is physically present in the store, not what the state file claims,
// so snapshots orphaned by earlier crashes are still governed.
type Planner struct {
	store  ports.ObjectStore
	prefix string
	owner  string
	keep   int
	logger log.Logger
}

// NewPlanner creates a Planner keeping the `keep` most recent snapshots of
// each repository. A count below one is treated as one: a repository is
// never left without its most recent snapshot.
func NewPlanner(store ports.ObjectStore, prefix, owner string, keep int, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Planner{store: store, prefix: prefix, owner: owner, keep: keep, logger: logger}
}

// Plan lists the snapshots present for repo and partitions them into keep
// and delete sets. protectedID, when non-empty, names the snapshot recorded
// as the repository's last backup; it is kept regardless of the window so a
// repository that has been quiet for a long time never loses its only copy.
func (p *Planner) Plan(ctx context.Context, repo, protectedID string) (domain.RetentionDecision, error) {
	dirs, err := p.store.ListDirs(ctx, domain.RepoPrefix(p.prefix, p.owner, repo))
	if err != nil {
		return domain.RetentionDecision{}, fmt.Errorf("list snapshots for %s: %w", repo, err)
	}

	var ids []string
	for _, d := range dirs {
		if _, err := domain.ParseBackupID(d); err != nil {
			p.logger.Warn("ignoring foreign object under repository prefix",
				log.String("repo", repo), log.String("name", d))
			continue
		}
		ids = append(ids, d)
	}
	// Backup ids sort lexicographically in chronological order.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	keep := p.keep
	if keep < 1 {
		keep = 1
	}

	decision := domain.RetentionDecision{Repo: repo}
	for i, id := range ids {
		if i < keep || id == protectedID {
			decision.Keep = append(decision.Keep, id)
			continue
		}
		decision.Delete = append(decision.Delete, id)
	}
	return decision, nil
}

// Apply deletes every snapshot the decision marks for deletion and returns
// the number of snapshots removed. Deletion failures abort the repository's
// pruning but never the run.
func (p *Planner) Apply(ctx context.Context, decision domain.RetentionDecision) (int, error) {
	deleted := 0
	for _, id := range decision.Delete {
		prefix := domain.SnapshotPrefix(p.prefix, p.owner, decision.Repo, id)
		n, err := p.store.DeletePrefix(ctx, prefix)
		if err != nil {
			return deleted, fmt.Errorf("prune %s/%s: %w", decision.Repo, id, err)
		}
		p.logger.Info("pruned snapshot",
			log.String("repo", decision.Repo),
			log.String("backup_id", id),
			log.Int("objects", n))
		deleted++
	}
	return deleted, nil
}

package app

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/repovault/internal/domain"
)

// seedSnapshots creates n snapshots for repo, one per day, and returns their
// ids oldest first.
func seedSnapshots(store *memStore, owner, repo string, n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("2024-06-%02d_02-00-00", i)
		ids = append(ids, id)
		store.objects[domain.ObjectKey("", owner, repo, id, "repository.bundle")] = []byte("b")
		store.objects[domain.ObjectKey("", owner, repo, id, "metadata/issues.json")] = []byte("[]")
	}
	return ids
}

func TestPlanKeepsMostRecent(t *testing.T) {
	store := newMemStore()
	ids := seedSnapshots(store, "acme", "widgets", 5)

	p := NewPlanner(store, "", "acme", 3, nil)
	decision, err := p.Plan(context.Background(), "widgets", "")
	require.NoError(t, err)

	assert.Equal(t, []string{ids[4], ids[3], ids[2]}, decision.Keep)
	assert.Equal(t, []string{ids[1], ids[0]}, decision.Delete)
}

func TestPlanWindowLargerThanHistory(t *testing.T) {
	store := newMemStore()
	seedSnapshots(store, "acme", "widgets", 3)

	p := NewPlanner(store, "", "acme", 8, nil)
	decision, err := p.Plan(context.Background(), "widgets", "")
	require.NoError(t, err)

	assert.Len(t, decision.Keep, 3)
	assert.Empty(t, decision.Delete)
}

func TestPlanKeepOne(t *testing.T) {
	store := newMemStore()
	ids := seedSnapshots(store, "acme", "widgets", 4)

	p := NewPlanner(store, "", "acme", 1, nil)
	decision, err := p.Plan(context.Background(), "widgets", "")
	require.NoError(t, err)

	assert.Equal(t, []string{ids[3]}, decision.Keep)
	assert.Len(t, decision.Delete, 3)
}

func TestPlanNonPositiveKeepStillProtectsNewest(t *testing.T) {
	store := newMemStore()
	ids := seedSnapshots(store, "acme", "widgets", 4)

	for _, keep := range []int{0, -5} {
		p := NewPlanner(store, "", "acme", keep, nil)
		decision, err := p.Plan(context.Background(), "widgets", "")
		require.NoError(t, err)
		assert.Equal(t, []string{ids[3]}, decision.Keep, "keep=%d", keep)
		assert.Len(t, decision.Delete, 3, "keep=%d", keep)
		assert.NotContains(t, decision.Delete, ids[3], "keep=%d", keep)
	}
}

func TestPlanProtectsLastBackup(t *testing.T) {
	store := newMemStore()
	ids := seedSnapshots(store, "acme", "widgets", 5)

	// The oldest snapshot is the recorded last backup of a long-quiet repo.
	p := NewPlanner(store, "", "acme", 2, nil)
	decision, err := p.Plan(context.Background(), "widgets", ids[0])
	require.NoError(t, err)

	assert.Contains(t, decision.Keep, ids[0])
	assert.NotContains(t, decision.Delete, ids[0])
	assert.Equal(t, []string{ids[2], ids[1]}, decision.Delete)
}

func TestPlanIgnoresForeignNames(t *testing.T) {
	store := newMemStore()
	seedSnapshots(store, "acme", "widgets", 2)
	store.objects["acme/widgets/not-a-backup-id/file"] = []byte("x")

	p := NewPlanner(store, "", "acme", 1, nil)
	decision, err := p.Plan(context.Background(), "widgets", "")
	require.NoError(t, err)

	assert.Len(t, decision.Keep, 1)
	assert.Len(t, decision.Delete, 1)
	assert.NotContains(t, decision.Delete, "not-a-backup-id")
}

func TestApplyDeletesSnapshots(t *testing.T) {
	store := newMemStore()
	ids := seedSnapshots(store, "acme", "widgets", 3)

	p := NewPlanner(store, "", "acme", 1, nil)
	decision, err := p.Plan(context.Background(), "widgets", "")
	require.NoError(t, err)

	n, err := p.Apply(context.Background(), decision)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := store.List(context.Background(), "acme/widgets/")
	require.NoError(t, err)
	for _, k := range keys {
		assert.Contains(t, k, ids[2], "only the newest snapshot remains")
	}
}

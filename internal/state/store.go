// Package state resolves and persists the durable run state. The local file
// is authoritative: the remote mirror in the object store exists for disaster
// recovery and is only consulted when no local file is present.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
	"github.com/bft-labs/repovault/pkg/log"
)

// localStore is the filesystem side of the store. fs.StateFile satisfies it.
type localStore interface {
	ports.StateRepository
	WriteRaw(data []byte) error
	Path() string
}

// Store loads and saves RunState with local-first precedence.
type Store struct {
	local  localStore
	remote ports.ObjectStore
	key    string
	logger log.Logger
	now    func() time.Time
}

// New builds a Store. key is the remote state object key for the owner.
// remote may be nil, which disables mirroring entirely.
func New(local localStore, remote ports.ObjectStore, key string, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Store{local: local, remote: remote, key: key, logger: logger, now: time.Now}
}

// Load resolves the state for a run.
//
// When a local file exists it is used as-is and the remote copy is ignored,
// even if the remote copy is newer. Otherwise the remote copy, if any, is
// materialized as the local file and used. With neither present the run
// starts from empty state.
func (s *Store) Load(ctx context.Context) (domain.RunState, error) {
	if s.local.Exists() {
		st, err := s.local.Load(ctx)
		if err != nil {
			return domain.NewRunState(), fmt.Errorf("%w: read %s: %v", domain.ErrStoreIO, s.local.Path(), err)
		}
		return st, nil
	}

	if s.remote == nil {
		return domain.NewRunState(), nil
	}

	data, err := s.remote.Get(ctx, s.key)
	if err != nil {
		if s.remote.NotFound(err) {
			s.logger.Debug("no stored state, starting fresh", log.String("key", s.key))
			return domain.NewRunState(), nil
		}
		// A transient store failure must not wipe history by pretending a
		// fresh start; without state every repository would be recaptured,
		// which is safe, so degrade with a warning instead of failing.
		s.logger.Warn("remote state fetch failed, starting fresh",
			log.String("key", s.key), log.Err(err))
		return domain.NewRunState(), nil
	}

	var st domain.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("remote state is not valid JSON, starting fresh",
			log.String("key", s.key), log.Err(err))
		return domain.NewRunState(), nil
	}
	if st.Repositories == nil {
		st.Repositories = make(map[string]domain.RepoState)
	}

	if err := s.local.WriteRaw(data); err != nil {
		return domain.NewRunState(), fmt.Errorf("%w: materialize %s: %v", domain.ErrStoreIO, s.local.Path(), err)
	}
	s.logger.Info("restored state from object store",
		log.String("key", s.key),
		log.Int("repositories", len(st.Repositories)))
	return st, nil
}

// SaveLocal persists the state to the local file only. The coordinator calls
// this after every repository so a crash mid-run loses at most the snapshot
// in flight; the remote mirror is refreshed once per run via Save.
func (s *Store) SaveLocal(ctx context.Context, st domain.RunState) error {
	st.UpdatedAt = s.now().UTC()
	if err := s.local.Save(ctx, st); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStoreIO, s.local.Path(), err)
	}
	return nil
}

// Save persists the state locally and mirrors it to the object store.
//
// A local write failure is an error wrapping domain.ErrStoreIO and leaves the
// previous file intact. A remote mirror failure is returned as a non-empty
// warning with a nil error; the run continues.
func (s *Store) Save(ctx context.Context, st domain.RunState) (warning string, err error) {
	st.UpdatedAt = s.now().UTC()

	if err := s.local.Save(ctx, st); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrStoreIO, s.local.Path(), err)
	}

	if s.remote == nil {
		return "", nil
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	if err := s.remote.Put(ctx, s.key, bytes.NewReader(data)); err != nil {
		s.logger.Warn("remote state sync failed", log.String("key", s.key), log.Err(err))
		return fmt.Sprintf("remote state sync failed: %v", err), nil
	}
	return "", nil
}

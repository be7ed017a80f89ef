// Package fs provides filesystem-backed adapters.
package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bft-labs/repovault/internal/domain"
)

const stateFileName = "state.json"

// StateFile implements ports.StateRepository using a JSON file.
type StateFile struct {
	dir string
}

// NewStateFile creates a new StateFile repository for the given directory.
func NewStateFile(dir string) *StateFile {
	return &StateFile{dir: dir}
}

// Path returns the full path to the state file.
func (r *StateFile) Path() string {
	return filepath.Join(r.dir, stateFileName)
}

// Exists reports whether the state file is present on disk.
func (r *StateFile) Exists() bool {
	_, err := os.Stat(r.Path())
	return err == nil
}

// Load retrieves the last saved state from disk.
// Returns an empty state and nil error if no state file exists.
func (r *StateFile) Load(ctx context.Context) (domain.RunState, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewRunState(), nil
		}
		return domain.NewRunState(), err
	}

	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.NewRunState(), err
	}
	if state.Repositories == nil {
		state.Repositories = make(map[string]domain.RepoState)
	}

	return state, nil
}

// Save persists the current state atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *StateFile) Save(ctx context.Context, state domain.RunState) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// WriteRaw writes already-serialized state bytes atomically. Used when the
// remote copy is materialized as the local file during state resolution.
func (r *StateFile) WriteRaw(data []byte) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}
	tmp := r.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.Path())
}

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists engine snapshots. Implementations must make Save atomic so
// a crash mid-write never leaves a half-written snapshot behind.
type Store interface {
	Save(ctx context.Context, state State) error
	Load(ctx context.Context) (State, error)
}

// FileStore keeps the snapshot as a single JSON file, written via a temp
// file and rename.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Save(_ context.Context, state State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to install snapshot: %w", err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context) (State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data)
}

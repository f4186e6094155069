package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/logger"
)

// FileStore keeps one JSON file per source identity in a directory.
type FileStore struct {
	dir string
	log logger.Logger
}

// NewFileStore creates a file store in dir, creating the directory if
// needed.
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Path returns the checkpoint file of an identity.
func (fs *FileStore) Path(id newsharvest.SourceIdentity) string {
	return filepath.Join(fs.dir, fmt.Sprintf("%s_%s_results.json", id.Site, id.Section))
}

// ErrMalformed is returned by Read when a checkpoint file cannot be parsed.
var ErrMalformed = errors.New("malformed checkpoint")

// Read reads the checkpoint file without changing the directory. A missing
// file gives an empty state.
func (fs *FileStore) Read(ctx context.Context, id newsharvest.SourceIdentity) (newsharvest.CrawlState, error) {
	path := fs.Path(id)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return newsharvest.CrawlState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var state newsharvest.CrawlState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return state, nil
}

// Load reads the checkpoint file. A missing file gives an empty state. A
// file that cannot be parsed is renamed aside, so that the next save does
// not overwrite it, and an empty state is returned.
func (fs *FileStore) Load(ctx context.Context, id newsharvest.SourceIdentity) newsharvest.CrawlState {
	path := fs.Path(id)

	state, err := fs.Read(ctx, id)
	if errors.Is(err, ErrMalformed) {
		aside := path + ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
		if renameErr := os.Rename(path, aside); renameErr != nil {
			fs.log.Error("Cannot move malformed checkpoint aside",
				logger.String("path", path), logger.Error(renameErr))
		}
		fs.log.Warn("Malformed checkpoint, starting empty",
			logger.String("path", path),
			logger.String("moved_to", aside),
			logger.Error(err))
		return newsharvest.CrawlState{}
	}
	if err != nil {
		fs.log.Warn("Cannot read checkpoint, starting empty",
			logger.String("path", path), logger.Error(err))
		return newsharvest.CrawlState{}
	}

	return state
}

// Save writes the whole state to a temporary file and renames it over the
// checkpoint, so readers see either the old or the new file.
func (fs *FileStore) Save(ctx context.Context, id newsharvest.SourceIdentity, state newsharvest.CrawlState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := fs.Path(id)
	tmp, err := os.CreateTemp(fs.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

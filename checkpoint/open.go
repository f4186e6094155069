package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/newsharvest/logger"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the store named by backend. dsn is the database path for
// sqlite and the directory for file; an empty dsn places the store in
// dataDir. The returned close function releases the store.
func Open(backend, dsn, dataDir string, log logger.Logger) (Store, func() error, error) {
	switch backend {
	case "", BackendFile:
		if dsn == "" {
			dsn = dataDir
		}
		store, err := NewFileStore(dsn, log)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil

	case BackendSQLite:
		if dsn == "" {
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			dsn = filepath.Join(dataDir, "newsharvest.db")
		}
		store, err := NewSQLiteStore(dsn, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", backend)
	}
}

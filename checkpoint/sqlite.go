package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/logger"
)

// SQLiteStore keeps crawl state in a SQLite database, one row per day, and
// records every crawl run.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// Run describes one crawl run.
type Run struct {
	RunID      uuid.UUID
	Identity   newsharvest.SourceIdentity
	StartedAt  time.Time
	FinishedAt *time.Time
	Days       int
}

// NewSQLiteStore opens the database at dbPath and creates its tables.
func NewSQLiteStore(dbPath string, log logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	store := &SQLiteStore{db: db, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS day_buckets (
		site TEXT NOT NULL,
		section TEXT NOT NULL,
		day_key INTEGER NOT NULL,
		records TEXT NOT NULL,
		PRIMARY KEY (site, section, day_key)
	);
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		section TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		days INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads every day of an identity. Query failures are logged and give
// an empty state; rows that cannot be decoded are skipped.
func (s *SQLiteStore) Load(ctx context.Context, id newsharvest.SourceIdentity) newsharvest.CrawlState {
	state := newsharvest.CrawlState{}

	rows, err := s.db.QueryContext(ctx,
		"SELECT day_key, records FROM day_buckets WHERE site = ? AND section = ?",
		id.Site, id.Section)
	if err != nil {
		s.log.Warn("Cannot read checkpoint, starting empty",
			logger.String("source", id.String()), logger.Error(err))
		return state
	}
	defer rows.Close()

	for rows.Next() {
		var key int64
		var raw string
		if err := rows.Scan(&key, &raw); err != nil {
			s.log.Warn("Skipping unreadable checkpoint row", logger.Error(err))
			continue
		}
		var bucket newsharvest.DayBucket
		if err := json.Unmarshal([]byte(raw), &bucket); err != nil {
			s.log.Warn("Skipping malformed day",
				logger.String("source", id.String()),
				logger.String("day_key", newsharvest.DayKey(key).String()),
				logger.Error(err))
			continue
		}
		if bucket == nil {
			bucket = newsharvest.DayBucket{}
		}
		state[newsharvest.DayKey(key)] = bucket
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("Checkpoint read interrupted", logger.Error(err))
	}

	return state
}

// Save upserts every day of state in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, id newsharvest.SourceIdentity, state newsharvest.CrawlState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO day_buckets (site, section, day_key, records) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, bucket := range state {
		if bucket == nil {
			bucket = newsharvest.DayBucket{}
		}
		data, err := json.Marshal(bucket)
		if err != nil {
			return fmt.Errorf("failed to marshal day %s: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, id.Site, id.Section, int64(key), string(data)); err != nil {
			return fmt.Errorf("failed to save day %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// StartRun records the start of a crawl run.
func (s *SQLiteStore) StartRun(ctx context.Context, runID uuid.UUID, id newsharvest.SourceIdentity, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, site, section, started_at) VALUES (?, ?, ?, ?)",
		runID.String(), id.Site, id.Section, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// FinishRun records the end of a crawl run and how many days it completed.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, days int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, days = ? WHERE run_id = ?",
		finishedAt.UTC().Format(time.RFC3339), days, runID.String())
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// ListRuns returns the runs of an identity, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, id newsharvest.SourceIdentity) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, days
		FROM runs
		WHERE site = ? AND section = ?
		ORDER BY started_at DESC
	`, id.Site, id.Section)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var runIDStr, startedAtStr string
		var finishedAtStr sql.NullString
		var days int
		if err := rows.Scan(&runIDStr, &startedAtStr, &finishedAtStr, &days); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run := Run{Identity: id, Days: days}
		run.RunID, err = uuid.Parse(runIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", runIDStr, err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAtStr)
		if finishedAtStr.Valid {
			finished, _ := time.Parse(time.RFC3339, finishedAtStr.String)
			run.FinishedAt = &finished
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

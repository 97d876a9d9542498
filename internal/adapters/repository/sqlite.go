package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/pkg/logger"
	"github.com/okian/vivaran/pkg/metrics"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS records (
	path       TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	seq        INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_collection_seq ON records(collection, seq);
`

// seq is assigned on first insert only, so overwrites keep their position.
const upsertRecord = `
INSERT INTO records (path, collection, key, value, seq, created_at, updated_at)
VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records), ?, ?)
ON CONFLICT(path) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore is a Store backed by a single SQLite connection.
type SQLiteStore struct {
	db                    *sql.DB
	log                   logger.Logger
	now                   func() time.Time
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at path and starts the
// background metrics updater. Use MemoryPath for a throwaway store.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		log:                   logger.Nop(),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	s.db = db

	s.startMetricsUpdater(ctx)
	s.log.Info(ctx, "record store opened", logger.String("path", path))
	return s, nil
}

// Put implements Store.Put.
func (s *SQLiteStore) Put(ctx context.Context, collection, key string, value []byte) error {
	if err := checkPath(collection, key); err != nil {
		return err
	}
	start := time.Now()
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, upsertRecord, model.Path(collection, key), collection, key, value, now, now)
	observe("put", start, err)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, model.Path(collection, key), err)
	}
	return nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := checkPath(collection, key); err != nil {
		return nil, err
	}
	start := time.Now()
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM records WHERE path = ?`, model.Path(collection, key)).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		observe("get", start, nil)
		return nil, ErrNotFound
	case err != nil:
		observe("get", start, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, model.Path(collection, key), err)
	}
	observe("get", start, nil)
	return value, nil
}

// List implements Store.List.
func (s *SQLiteStore) List(ctx context.Context, collection string) (model.Snapshot, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM records WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		observe("list", start, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, collection, err)
	}
	defer rows.Close()

	snap := model.Snapshot{}
	for rows.Next() {
		var rec model.Record
		var value []byte
		if err := rows.Scan(&rec.Key, &value); err != nil {
			observe("list", start, err)
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, collection, err)
		}
		rec.Value = value
		snap = append(snap, rec)
	}
	err = rows.Err()
	observe("list", start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, collection, err)
	}
	return snap, nil
}

// Delete implements Store.Delete.
func (s *SQLiteStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	if err := checkPath(collection, key); err != nil {
		return false, err
	}
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE path = ?`, model.Path(collection, key))
	observe("delete", start, err)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrWrite, model.Path(collection, key), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return n > 0, nil
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return n, nil
}

// Close stops the metrics updater and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// startMetricsUpdater starts a background goroutine that publishes per-collection record counts.
func (s *SQLiteStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *SQLiteStore) updateMetrics(ctx context.Context) {
	counts, err := s.collectionCounts(ctx)
	if err != nil {
		s.log.Warn(ctx, "record count failed", logger.Error(err))
		return
	}
	for _, c := range []string{model.CollectionUsers, model.CollectionStartups, model.CollectionInvestors, model.CollectionMessages} {
		metrics.UpdateRecordsStored(c, counts[c])
	}
}

func (s *SQLiteStore) collectionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection, COUNT(*) FROM records GROUP BY collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		counts[c] = n
	}
	return counts, rows.Err()
}

func checkPath(collection, key string) error {
	if _, _, err := model.SplitPath(model.Path(collection, key)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return nil
}

func observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		metrics.RecordErrorByComponent("repository", op)
	}
	metrics.RecordRecordOperation(op, outcome, float64(time.Since(start).Microseconds())/1000)
}

// Package boltdb is a BackupSink that keeps archived record snapshots in a local bbolt file
package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"go.etcd.io/bbolt"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

var (
	bucketRuns = []byte("runs")

	// ErrRunNotFound is returned when a run has no backup
	ErrRunNotFound = errors.New("backup run not found")
)

const openTimeout = 2 * time.Second

// Storage holds one nested bucket per run, keyed by page id
type Storage struct {
	db     *bbolt.DB
	logger ectologger.Logger
}

// New opens or creates the backup file at dbPath
func New(dbPath string, logger ectologger.Logger) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &Storage{db: db, logger: logger}, nil
}

// Close closes the database file
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteBackup stores records under the run's bucket in one transaction
func (s *Storage) WriteBackup(ctx context.Context, runID string, records []models.BackupRecord) error {
	_, span := tracing.StartSpan(ctx, "boltdb.Storage.WriteBackup")
	defer span.End()

	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		run, err := tx.Bucket(bucketRuns).CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return fmt.Errorf("failed to create run bucket: %w", err)
		}
		for _, r := range records {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to marshal backup record %s: %w", r.PageID, err)
			}
			if err := run.Put([]byte(r.PageID), data); err != nil {
				return fmt.Errorf("failed to save backup record %s: %w", r.PageID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Error("Failed to write backup")
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":  runID,
		"records": len(records),
	}).Info("Wrote backup")
	return nil
}

// ReadBackup returns the records of a run ordered by page id
func (s *Storage) ReadBackup(ctx context.Context, runID string) ([]models.BackupRecord, error) {
	_, span := tracing.StartSpan(ctx, "boltdb.Storage.ReadBackup")
	defer span.End()

	records := make([]models.BackupRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		run := tx.Bucket(bucketRuns).Bucket([]byte(runID))
		if run == nil {
			return ErrRunNotFound
		}
		return run.ForEach(func(_, v []byte) error {
			var r models.BackupRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to unmarshal backup record: %w", err)
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Runs lists run ids that have a backup
func (s *Storage) Runs(ctx context.Context) ([]string, error) {
	_, span := tracing.StartSpan(ctx, "boltdb.Storage.Runs")
	defer span.End()

	runs := make([]string, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEachBucket(func(k []byte) error {
			runs = append(runs, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

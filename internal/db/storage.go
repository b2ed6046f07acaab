package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BrowserStorage is the key/value scope of a single browser id. It satisfies
// session.Storage.
type BrowserStorage struct {
	store     *Store
	browserID string
}

// Scope returns the storage for browserID. No row exists until the first Set.
func (s *Store) Scope(browserID string) *BrowserStorage {
	return &BrowserStorage{store: s, browserID: browserID}
}

func (b *BrowserStorage) BrowserID() string { return b.browserID }

func (b *BrowserStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := b.store.db.QueryRowContext(ctx,
		"SELECT value FROM browser_storage WHERE browser_id = ? AND key = ?",
		b.browserID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}

	// Reads keep the entry alive for the purge sweep.
	if _, err := b.store.db.ExecContext(ctx,
		"UPDATE browser_storage SET updated_at = ? WHERE browser_id = ? AND key = ?",
		time.Now().Unix(), b.browserID, key,
	); err != nil {
		b.store.log.Warn("touch storage entry", zap.String("key", key), zap.Error(err))
	}
	return value, true, nil
}

func (b *BrowserStorage) Set(ctx context.Context, key, value string) error {
	_, err := b.store.db.ExecContext(ctx,
		`INSERT INTO browser_storage (browser_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(browser_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.browserID, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (b *BrowserStorage) Remove(ctx context.Context, key string) error {
	_, err := b.store.db.ExecContext(ctx,
		"DELETE FROM browser_storage WHERE browser_id = ? AND key = ?",
		b.browserID, key,
	)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Purge deletes entries untouched since before. It returns the number removed.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM browser_storage WHERE updated_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge storage: %w", err)
	}
	return res.RowsAffected()
}

// RunPurge sweeps entries older than ttl every interval until ctx is done.
func (s *Store) RunPurge(ctx context.Context, ttl, interval time.Duration) {
	sweep := func() {
		n, err := s.Purge(ctx, time.Now().Add(-ttl))
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("storage purge failed", zap.Error(err))
			}
			return
		}
		if n > 0 {
			s.log.Info("purged idle browser storage", zap.Int64("entries", n))
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

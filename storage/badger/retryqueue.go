package badger

import (
	"context"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/dgraph-io/badger/v4"
)

// RetryQueue implements storage.RetryQueue for BadgerDB.
type RetryQueue struct {
	backend *Backend
}

var _ storage.RetryQueue = (*RetryQueue)(nil)

// NewRetryQueue creates a new RetryQueue.
func NewRetryQueue(backend *Backend) *RetryQueue {
	return &RetryQueue{backend: backend}
}

// EnqueueRetries adds entries, bumping Attempts for records already queued.
func (q *RetryQueue) EnqueueRetries(ctx context.Context, entries ...core.RetryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return q.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			key := makeRetryKey(entry.RecordId)
			item, err := tx.Get(key)
			switch {
			case err == nil:
				err = item.Value(func(val []byte) error {
					old, err := storage.UnmarshalRetryEntry(val)
					if err != nil {
						return err
					}
					entry.Attempts = max(entry.Attempts, old.Attempts+1)
					return nil
				})
				if err != nil {
					return err
				}
			case err == badger.ErrKeyNotFound:
				entry.Attempts = max(entry.Attempts, 1)
			default:
				return err
			}
			if entry.EnqueuedAt.IsZero() {
				entry.EnqueuedAt = time.Now().UTC()
			}

			value, err := storage.MarshalRetryEntry(&entry)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return commitTx(tx)
	}, true)
}

// ListRetries returns up to limit entries ordered by record ID.
func (q *RetryQueue) ListRetries(ctx context.Context, limit int) ([]core.RetryEntry, error) {
	var entries []core.RetryEntry
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(retryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalRetryEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, *entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return entries, err
}

// RemoveRetries deletes entries. Missing entries are ignored.
func (q *RetryQueue) RemoveRetries(ctx context.Context, ids ...core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return q.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeRetryKey(id)); err != nil {
				return err
			}
		}
		return commitTx(tx)
	}, true)
}

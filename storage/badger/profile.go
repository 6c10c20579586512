package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/dgraph-io/badger/v4"
)

const defaultProfileTTL = 24 * time.Hour

// ProfileStore implements storage.ProfileStore for BadgerDB. Updates run in
// optimistic transactions; a concurrent commit to the same session surfaces
// as storage.ErrConflict and the update is replayed on a fresh read.
type ProfileStore struct {
	backend  *Backend
	ttl      time.Duration
	attempts int
}

var _ storage.ProfileStore = (*ProfileStore)(nil)

// NewProfileStore creates a new ProfileStore. Profiles expire ttl after their
// last write; ttl <= 0 selects 24 hours.
func NewProfileStore(backend *Backend, ttl time.Duration) (*ProfileStore, error) {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileStore{
		backend:  backend,
		ttl:      ttl,
		attempts: storage.DefaultConflictAttempts,
	}, nil
}

// Close releases resources. ProfileStore has no resources to release.
func (s *ProfileStore) Close() error {
	return nil
}

// GetProfile returns the profile for a session.
func (s *ProfileStore) GetProfile(ctx context.Context, sessionID string) (*core.UserProfile, error) {
	var profile *core.UserProfile
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		profile, err = readProfile(tx, sessionID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: session %s", storage.ErrNotFound, sessionID)
	}
	return profile, nil
}

// PutProfile stores a profile unconditionally.
func (s *ProfileStore) PutProfile(ctx context.Context, profile *core.UserProfile) error {
	if err := core.ValidateUserProfile(profile); err != nil {
		return err
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := s.writeProfile(tx, profile); err != nil {
			return err
		}
		return commitTx(tx)
	}, true)
}

// UpdateProfile applies fn in a read-modify-write transaction.
func (s *ProfileStore) UpdateProfile(ctx context.Context, sessionID string, fn func(*core.UserProfile) error) (*core.UserProfile, error) {
	if sessionID == "" {
		return nil, core.ErrEmptySessionID
	}

	var updated *core.UserProfile
	err := storage.RetryOnConflict(ctx, s.attempts, func() error {
		return s.backend.WithTx(func(tx *badger.Txn) error {
			profile, err := readProfile(tx, sessionID)
			if err != nil {
				return err
			}
			if profile == nil {
				profile = core.NewUserProfile(sessionID)
			}
			if err := fn(profile); err != nil {
				return err
			}
			profile.SessionId = sessionID
			profile.Version++
			if err := s.writeProfile(tx, profile); err != nil {
				return err
			}
			if err := commitTx(tx); err != nil {
				return err
			}
			updated = profile
			return nil
		}, true)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ProfileStore) writeProfile(tx *badger.Txn, profile *core.UserProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	value, err := storage.MarshalProfile(profile)
	if err != nil {
		return err
	}
	entry := badger.NewEntry(makeProfileKey(profile.SessionId), value).WithTTL(s.ttl)
	return tx.SetEntry(entry)
}

func readProfile(tx *badger.Txn, sessionID string) (*core.UserProfile, error) {
	item, err := tx.Get(makeProfileKey(sessionID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var profile *core.UserProfile
	err = item.Value(func(val []byte) error {
		var err error
		profile, err = storage.UnmarshalProfile(val)
		return err
	})
	return profile, err
}

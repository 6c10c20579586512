// Package memory provides an in-process profile store for single-replica
// deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/patrickmn/go-cache"
)

// ProfileStore keeps profiles in a go-cache with sliding expiration.
// A mutex serializes writers, so updates never conflict.
type ProfileStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ storage.ProfileStore = (*ProfileStore)(nil)

// NewProfileStore creates a store whose sessions expire ttl after their
// last write. Expired sessions are purged every ttl/6.
func NewProfileStore(ttl time.Duration) storage.ProfileStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ProfileStore{
		cache: cache.New(ttl, ttl/6),
	}
}

// GetProfile returns a copy of the stored profile.
func (s *ProfileStore) GetProfile(ctx context.Context, sessionID string) (*core.UserProfile, error) {
	if x, found := s.cache.Get(sessionID); found {
		return x.(*core.UserProfile).Clone(), nil
	}
	return nil, fmt.Errorf("%w: session %s", storage.ErrNotFound, sessionID)
}

// PutProfile stores a copy of the profile.
func (s *ProfileStore) PutProfile(ctx context.Context, profile *core.UserProfile) error {
	if err := core.ValidateUserProfile(profile); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	profile.UpdatedAt = time.Now().UTC()
	s.cache.Set(profile.SessionId, profile.Clone(), cache.DefaultExpiration)
	return nil
}

// UpdateProfile applies fn to a copy and stores it only when fn succeeds.
func (s *ProfileStore) UpdateProfile(ctx context.Context, sessionID string, fn func(*core.UserProfile) error) (*core.UserProfile, error) {
	if sessionID == "" {
		return nil, core.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := core.NewUserProfile(sessionID)
	if x, found := s.cache.Get(sessionID); found {
		profile = x.(*core.UserProfile).Clone()
	}
	if err := fn(profile); err != nil {
		return nil, err
	}
	profile.SessionId = sessionID
	profile.Version++
	profile.UpdatedAt = time.Now().UTC()
	s.cache.Set(sessionID, profile.Clone(), cache.DefaultExpiration)
	return profile, nil
}

// Close drops every session.
func (s *ProfileStore) Close() error {
	s.cache.Flush()
	return nil
}

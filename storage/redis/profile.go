// Package redis stores conversation profiles in Redis so stateless API
// replicas can share sessions. Updates use WATCH/MULTI optimistic locking.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix  = "govchat:profile:"
	defaultProfileTTL = 24 * time.Hour
)

// ProfileStore implements storage.ProfileStore on Redis.
type ProfileStore struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	attempts int
}

var _ storage.ProfileStore = (*ProfileStore)(nil)

// Option configures a ProfileStore.
type Option func(*ProfileStore) error

// WithKeyPrefix sets the key namespace. Defaults to "govchat:profile:".
func WithKeyPrefix(prefix string) Option {
	return func(s *ProfileStore) error {
		if prefix == "" {
			return errors.New("key prefix must not be empty")
		}
		s.prefix = prefix
		return nil
	}
}

// WithTTL sets how long an idle session survives. Defaults to 24 hours.
func WithTTL(ttl time.Duration) Option {
	return func(s *ProfileStore) error {
		if ttl <= 0 {
			return errors.New("ttl must be positive")
		}
		s.ttl = ttl
		return nil
	}
}

// WithConflictAttempts sets how often a contested update is replayed.
func WithConflictAttempts(n int) Option {
	return func(s *ProfileStore) error {
		if n < 1 {
			return errors.New("conflict attempts must be at least 1")
		}
		s.attempts = n
		return nil
	}
}

// NewProfileStore creates a Redis-backed profile store. The caller owns the client.
func NewProfileStore(client redis.UniversalClient, opts ...Option) (storage.ProfileStore, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	s := &ProfileStore{
		client:   client,
		prefix:   defaultKeyPrefix,
		ttl:      defaultProfileTTL,
		attempts: storage.DefaultConflictAttempts,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *ProfileStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// GetProfile returns the profile for a session.
func (s *ProfileStore) GetProfile(ctx context.Context, sessionID string) (*core.UserProfile, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: session %s", storage.ErrNotFound, sessionID)
		}
		return nil, err
	}
	return storage.UnmarshalProfile(data)
}

// PutProfile stores a profile unconditionally and refreshes its TTL.
func (s *ProfileStore) PutProfile(ctx context.Context, profile *core.UserProfile) error {
	if err := core.ValidateUserProfile(profile); err != nil {
		return err
	}
	profile.UpdatedAt = time.Now().UTC()
	data, err := storage.MarshalProfile(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(profile.SessionId), data, s.ttl).Err()
}

// UpdateProfile applies fn inside a WATCH on the session key. A write by
// another replica between read and EXEC aborts the transaction and fn runs
// again on the fresh value.
func (s *ProfileStore) UpdateProfile(ctx context.Context, sessionID string, fn func(*core.UserProfile) error) (*core.UserProfile, error) {
	if sessionID == "" {
		return nil, core.ErrEmptySessionID
	}
	key := s.key(sessionID)

	var updated *core.UserProfile
	err := storage.RetryOnConflict(ctx, s.attempts, func() error {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			profile := core.NewUserProfile(sessionID)
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				if profile, err = storage.UnmarshalProfile(data); err != nil {
					return err
				}
			case !errors.Is(err, redis.Nil):
				return err
			}

			if err := fn(profile); err != nil {
				return err
			}
			profile.SessionId = sessionID
			profile.Version++
			profile.UpdatedAt = time.Now().UTC()
			value, err := storage.MarshalProfile(profile)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, value, s.ttl)
				return nil
			})
			if err != nil {
				return err
			}
			updated = profile
			return nil
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("%w: session %s", storage.ErrConflict, sessionID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Close is a no-op; the client belongs to the caller.
func (s *ProfileStore) Close() error {
	return nil
}

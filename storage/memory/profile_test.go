package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileStore(t *testing.T) {
	store := NewProfileStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	_, err := store.GetProfile(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.UpdateProfile(ctx, "s1", func(p *core.UserProfile) error {
		p.Set(core.FieldIncome, "50")
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Version)

	t.Run("returned profile is a copy", func(t *testing.T) {
		got.Set(core.FieldIncome, "999")
		stored, err := store.GetProfile(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "50", stored.Fields[core.FieldIncome])
	})

	t.Run("failed update is not stored", func(t *testing.T) {
		_, err := store.UpdateProfile(ctx, "s1", func(p *core.UserProfile) error {
			p.Set(core.FieldIncome, "100")
			return errors.New("rejected")
		})
		assert.Error(t, err)
		stored, err := store.GetProfile(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "50", stored.Fields[core.FieldIncome])
	})
}

func TestProfileStore_Expiry(t *testing.T) {
	store := NewProfileStore(20 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.PutProfile(ctx, core.NewUserProfile("s1")))
	time.Sleep(40 * time.Millisecond)

	_, err := store.GetProfile(ctx, "s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProfileStore_ConcurrentUpdates(t *testing.T) {
	store := NewProfileStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateProfile(ctx, "shared", func(p *core.UserProfile) error {
				p.TurnCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetProfile(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 20, got.TurnCount)
}

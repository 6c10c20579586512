package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/crazybass81/GovChat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramIterator_ForEach(t *testing.T) {
	t.Run("batches cover every program", func(t *testing.T) {
		store := seed(t, 7)
		it := NewProgramIterator(store.Programs, 3)

		var sizes []int
		seen := map[core.ID]bool{}
		err := it.ForEach(context.Background(), func(batch []*core.ProgramRecord) error {
			sizes = append(sizes, len(batch))
			for _, p := range batch {
				seen[p.Id] = true
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 3, 1}, sizes)
		assert.Len(t, seen, 7, "inactive programs are included")
	})

	t.Run("empty index", func(t *testing.T) {
		store := seed(t, 0)
		calls := 0
		err := NewProgramIterator(store.Programs, 10).ForEach(context.Background(), func([]*core.ProgramRecord) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Zero(t, calls)
	})

	t.Run("callback error stops iteration", func(t *testing.T) {
		store := seed(t, 5)
		boom := errors.New("boom")
		calls := 0
		err := NewProgramIterator(store.Programs, 2).ForEach(context.Background(), func([]*core.ProgramRecord) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancellation between batches", func(t *testing.T) {
		store := seed(t, 5)
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := NewProgramIterator(store.Programs, 2).ForEach(ctx, func([]*core.ProgramRecord) error {
			calls++
			cancel()
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("non-positive batch size uses default", func(t *testing.T) {
		store := seed(t, 0)
		assert.Equal(t, DefaultBatchSize, NewProgramIterator(store.Programs, 0).batchSize)
	})
}

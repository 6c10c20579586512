package badger

import (
	"context"
	"testing"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProgram(externalID, title string, vector []float32, preds ...core.ConditionPredicate) *core.ProgramRecord {
	return &core.ProgramRecord{
		Id:         core.IDFromSource(core.SourceTypeAPI, externalID),
		SourceType: core.SourceTypeAPI,
		ExternalId: externalID,
		Title:      title,
		Predicates: preds,
		Vector:     vector,
		Active:     true,
	}
}

func TestUpsertPrograms(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	record := newProgram("P1", "청년 창업 지원", []float32{1, 0, 0})
	summary, err := store.Programs.UpsertPrograms(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, storage.UpsertSummary{Inserted: 1}, summary)

	first, err := store.Programs.GetProgram(ctx, record.Id)
	require.NoError(t, err)
	assert.Equal(t, "청년 창업 지원", first.Title)
	assert.False(t, first.InsertedAt.IsZero())

	t.Run("re-upsert keeps identity and advances UpdatedAt", func(t *testing.T) {
		again := newProgram("P1", "청년 창업 지원 (개정)", nil)
		summary, err := store.Programs.UpsertPrograms(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, storage.UpsertSummary{Updated: 1}, summary)

		got, err := store.Programs.GetProgram(ctx, record.Id)
		require.NoError(t, err)
		assert.Equal(t, "청년 창업 지원 (개정)", got.Title)
		assert.True(t, got.InsertedAt.Equal(first.InsertedAt))
		assert.True(t, got.UpdatedAt.After(first.UpdatedAt))
		// vector survives an upsert that carries none
		assert.Equal(t, []float32{1, 0, 0}, got.Vector)

		count, err := store.Programs.CountPrograms(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := store.Programs.GetProgram(ctx, core.ID(42))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("get many skips missing", func(t *testing.T) {
		got, err := store.Programs.GetPrograms(ctx, record.Id, core.ID(42))
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestUpsertPrograms_FrozenClock(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	index, err := NewProgramIndex(backend)
	require.NoError(t, err)
	frozen := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	index.now = func() time.Time { return frozen }

	ctx := context.Background()
	_, err = index.UpsertPrograms(ctx, newProgram("P1", "a", nil))
	require.NoError(t, err)
	_, err = index.UpsertPrograms(ctx, newProgram("P1", "b", nil))
	require.NoError(t, err)

	got, err := index.GetProgram(ctx, core.IDFromSource(core.SourceTypeAPI, "P1"))
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(got.InsertedAt))
}

func TestQueryByFilter(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	youth := newProgram("Y", "청년창업", nil, core.NumericPredicate(core.PredicateAgeMax, core.OpLte, 39))
	seoul := newProgram("S", "서울 지원", nil, core.SetPredicate(core.PredicateRegion, core.OpIn, "서울"))
	open := newProgram("O", "전국 지원", nil)
	closed := newProgram("C", "종료 사업", nil)
	closed.Active = false
	_, err = store.Programs.UpsertPrograms(ctx, youth, seoul, open, closed)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter core.Filter
		want   []core.ID
	}{
		{"empty filter admits active", core.Filter{}, []core.ID{youth.Id, seoul.Id, open.Id}},
		{"age 30", core.Filter{core.FieldAge: "30"}, []core.ID{youth.Id, seoul.Id, open.Id}},
		{"age 45", core.Filter{core.FieldAge: "45"}, []core.ID{seoul.Id, open.Id}},
		{"age 45 in busan", core.Filter{core.FieldAge: "45", core.FieldRegion: "부산"}, []core.ID{open.Id}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Programs.QueryByFilter(ctx, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestQueryByVector(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	records := []*core.ProgramRecord{
		newProgram("A", "high", []float32{1, 0, 0}),
		newProgram("B", "medium", []float32{0.8, 0.6, 0}),
		newProgram("C", "low", []float32{0, 0, 1}),
		newProgram("D", "no vector", nil),
	}
	_, err = store.Programs.UpsertPrograms(ctx, records...)
	require.NoError(t, err)

	query := []float32{1, 0, 0}

	t.Run("ordered by similarity", func(t *testing.T) {
		results, err := store.Programs.QueryByVector(ctx, query, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, records[0].Id, results[0].RecordId)
		assert.Equal(t, records[1].Id, results[1].RecordId)
		assert.InDelta(t, 0.8, results[1].Score, 0.0001)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := store.Programs.QueryByVector(ctx, query, 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := store.Programs.QueryByVector(ctx, query, 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestListPrograms(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	list, err := store.Programs.ListPrograms(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = store.Programs.UpsertPrograms(ctx, newProgram("A", "a", nil), newProgram("B", "b", nil))
	require.NoError(t, err)

	list, err = store.Programs.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Less(t, list[0].Id, list[1].Id)
}

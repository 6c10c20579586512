package reembed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/retry"
	"github.com/crazybass81/GovChat/storage/badger"
	"github.com/stretchr/testify/require"
)

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, AttemptTimeout: time.Second}
}

// seed stores n programs without vectors, ids p00..p(n-1).
func seed(t *testing.T, n int) *badger.MemoryStore {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	records := make([]*core.ProgramRecord, n)
	for i := range n {
		ext := fmt.Sprintf("p%02d", i)
		records[i] = &core.ProgramRecord{
			Id:          core.IDFromSource(core.SourceTypeAPI, ext),
			SourceType:  core.SourceTypeAPI,
			ExternalId:  ext,
			Title:       "청년 창업 지원 " + ext,
			Description: "만 39세 이하 창업자에게 사업화 자금을 지원합니다",
			Active:      i%5 != 4,
		}
	}
	if n > 0 {
		_, err = store.Programs.UpsertPrograms(context.Background(), records...)
		require.NoError(t, err)
	}
	return store
}

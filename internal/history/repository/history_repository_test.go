package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/Alok-Gaur/mail-management-agent/internal/history/domain"
	"github.com/Alok-Gaur/mail-management-agent/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_FirstWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(testutil.NewDB(t, &domain.HistoryRecord{}))

	seen, err := repo.HasSeen(ctx, "a1", 500)
	require.NoError(t, err)
	assert.False(t, seen)

	first, err := repo.Record(ctx, "a1", 500, domain.SourceHook)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceHook, first.Source)

	again, err := repo.Record(ctx, "a1", 500, domain.SourceManual)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, domain.SourceHook, again.Source, "existing record is never overwritten")

	seen, err = repo.HasSeen(ctx, "a1", 500)
	require.NoError(t, err)
	assert.True(t, seen)

	_, err = repo.Record(ctx, "a2", 500, domain.SourceHook)
	assert.NoError(t, err, "cursors are scoped per account")
}

func TestRecord_ConcurrentInsertsProduceOneRow(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(testutil.NewDB(t, &domain.HistoryRecord{}))

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Record(ctx, "a1", 42, domain.SourceHook)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, domain.ErrDuplicate):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, dups)

	records, err := repo.ListByAccount(ctx, "a1", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListByAccount_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepository(testutil.NewDB(t, &domain.HistoryRecord{}))

	for _, c := range []uint64{10, 30, 20} {
		_, err := repo.Record(ctx, "a1", c, domain.SourceManual)
		require.NoError(t, err)
	}

	records, err := repo.ListByAccount(ctx, "a1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(30), records[0].ChangeCursor)
	assert.Equal(t, uint64(20), records[1].ChangeCursor)
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, &domain.HistoryRecord{})
	repo := NewHistoryRepository(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.HasSeen(ctx, "a1", 1)
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, err = repo.Record(ctx, "a1", 1, domain.SourceHook)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)
}

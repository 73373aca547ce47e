package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

func snap(id string) Snapshot {
	return Snapshot{
		Dataset: domain.Dataset{ID: id, Name: id + ".csv", Format: "csv", RecordCount: 1},
		Records: []domain.CallRecord{{ServiceName: "A", QPS: 1, Timestamp: time.Unix(0, 0).UTC()}},
	}
}

func TestStoreLocalOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, time.Hour, zap.NewNop())

	_, err := s.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)
	assert.Equal(t, "", s.CurrentID())

	require.NoError(t, s.Put(ctx, snap("ds-1")))
	got, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ds-1", got.Dataset.ID)
	assert.Equal(t, "ds-1", s.CurrentID())

	require.NoError(t, s.Put(ctx, snap("ds-2")))
	assert.Equal(t, "ds-2", s.CurrentID())

	s.Invalidate()
	_, err = s.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)
}

func TestStoreListenWithoutRedisReturns(t *testing.T) {
	s := NewStore(nil, time.Hour, zap.NewNop())
	done := make(chan struct{})
	go func() {
		s.Listen(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Listen must return immediately without redis")
	}
}

func TestWarmupLocal(t *testing.T) {
	ctx := context.Background()

	s := NewStore(nil, time.Hour, zap.NewNop())
	require.NoError(t, s.Warmup(ctx, func(context.Context) (Snapshot, error) { return snap("ds-9"), nil }))
	assert.Equal(t, "ds-9", s.CurrentID())

	empty := NewStore(nil, time.Hour, zap.NewNop())
	require.NoError(t, empty.Warmup(ctx, func(context.Context) (Snapshot, error) {
		return Snapshot{}, domain.ErrDatasetNotFound
	}))
	assert.Equal(t, "", empty.CurrentID())

	boom := errors.New("db down")
	failing := NewStore(nil, time.Hour, zap.NewNop())
	assert.ErrorIs(t, failing.Warmup(ctx, func(context.Context) (Snapshot, error) { return Snapshot{}, boom }), boom)
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}

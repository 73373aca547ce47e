package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

type memStorage struct {
	mu      sync.Mutex
	batches [][]Record
	fail    bool
}

func (m *memStorage) WriteBatch(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	cp := make([]Record, len(records))
	copy(cp, records)
	m.batches = append(m.batches, cp)
	return nil
}

func (m *memStorage) all() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

func records(n int) []domain.CallRecord {
	out := make([]domain.CallRecord, n)
	for i := range out {
		out[i] = domain.CallRecord{ServiceName: "svc", CallCount: int64(i)}
	}
	return out
}

func TestArchiverFlushesOnStop(t *testing.T) {
	store := &memStorage{}
	a := NewArchiver(store, Options{BatchSize: 4, FlushInterval: time.Hour}, zap.NewNop())
	a.Start()

	assert.Equal(t, 10, a.Enqueue("ds-1", records(10)))
	a.Stop()

	got := store.all()
	require.Len(t, got, 10)
	for i, r := range got {
		assert.Equal(t, "ds-1", r.DatasetID)
		assert.Equal(t, i, r.Seq)
		assert.Equal(t, int64(i), r.CallCount)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	// 4 + 4 по размеру пачки и 2 на финальном flush
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[2], 2)
}

func TestArchiverFlushesOnTicker(t *testing.T) {
	store := &memStorage{}
	a := NewArchiver(store, Options{BatchSize: 100, FlushInterval: 10 * time.Millisecond}, zap.NewNop())
	a.Start()
	defer a.Stop()

	a.Enqueue("ds-1", records(3))
	assert.Eventually(t, func() bool { return len(store.all()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestArchiverLoadShedding(t *testing.T) {
	store := &memStorage{}
	// Воркер не запущен: очередь наполняется и переполняется
	a := NewArchiver(store, Options{BufferSize: 5}, zap.NewNop())

	assert.Equal(t, 5, a.Enqueue("ds-1", records(8)))
	assert.Equal(t, int64(3), a.Dropped())

	a.Start()
	a.Stop()
	assert.Len(t, store.all(), 5)
}

func TestArchiverRejectsAfterStop(t *testing.T) {
	a := NewArchiver(&memStorage{}, Options{}, zap.NewNop())
	a.Start()
	a.Stop()
	a.Stop()

	assert.Equal(t, 0, a.Enqueue("ds-1", records(1)))
}

func TestArchiverSurvivesStorageFailure(t *testing.T) {
	store := &memStorage{fail: true}
	a := NewArchiver(store, Options{BatchSize: 1}, zap.NewNop())
	a.Start()
	a.Enqueue("ds-1", records(2))
	a.Stop()
	assert.Empty(t, store.all())
}

func TestArchiverStopDuringEnqueue(t *testing.T) {
	store := &memStorage{}
	const n = 200000
	a := NewArchiver(store, Options{BufferSize: n, BatchSize: 1000, FlushInterval: time.Hour}, zap.NewNop())
	a.Start()

	batch := records(n)
	accepted := make(chan int, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			accepted <- a.Enqueue("ds-1", batch)
		}()
	}
	time.Sleep(time.Millisecond)

	require.NotPanics(t, a.Stop)
	wg.Wait()
	close(accepted)

	total := 0
	for n := range accepted {
		total += n
	}
	// Всё, что принято до закрытия, должно дойти до хранилища
	assert.Len(t, store.all(), total)
	assert.Equal(t, 0, a.Enqueue("ds-2", records(1)))
}

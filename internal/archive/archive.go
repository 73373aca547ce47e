package archive

/*
Файл archive.go реализует фоновый архиватор загруженных датасетов.

Загрузка в консоли синхронно парсит таблицу и сразу отдает новый снапшот,
а копия записей уходит в Postgres пачками через этот компонент:
- неблокирующая постановка в очередь (при переполнении записи сбрасываются с логом);
- пакетная запись по таймеру или при достижении BatchSize;
- Drain при остановке: закрытие канала, вычитка остатков и финальный flush.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

// Record - запись датасета вместе с его идентификатором
type Record struct {
	DatasetID string
	Seq       int // Позиция записи в исходной таблице
	domain.CallRecord
}

// Storage определяет, куда физически сохраняется архив
type Storage interface {
	WriteBatch(ctx context.Context, records []Record) error
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	BufferFill    prometheus.Gauge // Может быть nil
}

type Archiver struct {
	ch      chan Record
	repo    Storage
	opts    Options
	logger  *zap.Logger
	wg      sync.WaitGroup
	dropped int64

	// mu: Enqueue шлет в ch под RLock, Stop закрывает ch под Lock
	mu     sync.RWMutex
	closed bool
}

func NewArchiver(repo Storage, opts Options, logger *zap.Logger) *Archiver {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 10000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 500 * time.Millisecond
	}
	return &Archiver{
		ch:     make(chan Record, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "archive")),
	}
}

func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.worker()
}

// Stop закрывает вход и ждет, пока воркер всё допишет.
func (a *Archiver) Stop() {
	// Ждем, пока текущие Enqueue допишут в очередь
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.logger.Info("stopping archiver: closing channel and flushing buffer...")
	close(a.ch)
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("archiver stopped gracefully", zap.Int64("dropped", atomic.LoadInt64(&a.dropped)))
}

// Enqueue ставит записи датасета в очередь. Возвращает количество принятых.
func (a *Archiver) Enqueue(datasetID string, records []domain.CallRecord) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.logger.Warn("archive dropped: archiver is stopping",
			zap.String("dataset_id", datasetID), zap.Int("records", len(records)))
		return 0
	}

	accepted := 0
	for i, r := range records {
		select {
		case a.ch <- Record{DatasetID: datasetID, Seq: i, CallRecord: r}:
			accepted++
		default:
			// Load Shedding: очередь переполнена
			dropped := len(records) - accepted
			atomic.AddInt64(&a.dropped, int64(dropped))
			a.logger.Error("archive_buffer_overflow",
				zap.String("dataset_id", datasetID),
				zap.Int("dropped", dropped))
			a.reportFill()
			return accepted
		}
	}
	a.reportFill()
	return accepted
}

// Dropped - сколько записей было сброшено из-за переполнения
func (a *Archiver) Dropped() int64 {
	return atomic.LoadInt64(&a.dropped)
}

func (a *Archiver) reportFill() {
	if a.opts.BufferFill != nil {
		a.opts.BufferFill.Set(float64(len(a.ch)))
	}
}

func (a *Archiver) worker() {
	defer a.wg.Done()

	batch := make([]Record, 0, a.opts.BatchSize)
	ticker := time.NewTicker(a.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к этому моменту может быть закрыт
		if err := a.repo.WriteBatch(context.Background(), batch); err != nil {
			a.logger.Error("archive flush failed", zap.Int("records", len(batch)), zap.Error(err))
		}
		batch = make([]Record, 0, a.opts.BatchSize)
		a.reportFill()
	}

	for {
		select {
		case r, ok := <-a.ch:
			if !ok {
				flush()
				a.logger.Info("archive worker finished")
				return
			}
			batch = append(batch, r)
			if len(batch) >= a.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

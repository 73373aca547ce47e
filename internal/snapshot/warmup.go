package snapshot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/infra"
)

// Loader поднимает последний архивный датасет (обычно из Postgres)
type Loader func(ctx context.Context) (Snapshot, error)

// Warmup прогревает L1 и L2 после рестарта.
// Если в Redis уже лежит снапшот - берем его. Иначе только один инстанс (SetNX)
// читает архив и заливает Redis; остальные подтянут снапшот лениво через Current.
func (s *Store) Warmup(ctx context.Context, load Loader) error {
	if s.rdb == nil {
		return s.warmupL1(ctx, load)
	}

	// 1. L2 уже прогрет
	if snap, err := s.loadL2(ctx); err == nil {
		s.setL1(&snap)
		s.logger.Info("snapshot restored from redis", zap.String("dataset_id", snap.Dataset.ID))
		return nil
	} else if !errors.Is(err, domain.ErrEmptyDataset) {
		s.logger.Warn("could not read snapshot from redis, proceeding with warm-up", zap.Error(err))
	}

	// 2. Распределенная блокировка, чтобы только один инстанс ходил в архив
	ok, err := s.rdb.SetNX(ctx, infra.RedisKeyLockWarmup, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // Либо ошибка сети, либо другой уже греет кэш
	}

	// 3. Заливаем из архива
	snap, err := load(ctx)
	if errors.Is(err, domain.ErrDatasetNotFound) {
		s.logger.Info("archive is empty, nothing to warm up")
		return nil
	}
	if err != nil {
		return err
	}

	s.setL1(&snap)
	s.logger.Info("redis snapshot is empty, performing warm-up from archive...",
		zap.String("dataset_id", snap.Dataset.ID), zap.Int("records", len(snap.Records)))
	return s.saveL2(ctx, snap)
}

func (s *Store) warmupL1(ctx context.Context, load Loader) error {
	snap, err := load(ctx)
	if errors.Is(err, domain.ErrDatasetNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.setL1(&snap)
	s.logger.Info("snapshot restored from archive", zap.String("dataset_id", snap.Dataset.ID))
	return nil
}

package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/infra"
)

// ListenResilient - цикл «живучей» подписки на канал Redis с переподключением.
// onReconnect вызывается после каждой успешной подписки, onMessage - на каждый payload.
func ListenResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func(),
	onMessage func(payload string),
) {
	for {
		if ctx.Err() != nil {
			return
		}

		pubsub := rdb.Subscribe(ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		// Пока нас не было, сигналы могли потеряться
		onReconnect()

		ch := pubsub.Channel()
	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				onMessage(msg.Payload)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Listen держит L1 в согласии с загрузками на других инстансах. Без Redis сразу выходит.
func (s *Store) Listen(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	ListenResilient(ctx, s.rdb, s.logger, infra.RedisChanSnapshotUpdate,
		func() { s.resync(ctx) },
		func(datasetID string) {
			if datasetID == s.CurrentID() {
				return // Наш собственный сигнал
			}
			s.logger.Info("dataset replaced on another instance", zap.String("dataset_id", datasetID))
			s.Invalidate()
		},
	)
}

// resync сверяет L1 с Redis после (пере)подключения: сигналы за время разрыва потеряны.
// Пустой или недоступный L2 не повод выбрасывать локальный снапшот.
func (s *Store) resync(ctx context.Context) {
	snap, err := s.loadL2(ctx)
	if errors.Is(err, domain.ErrEmptyDataset) {
		return
	}
	if err != nil {
		s.logger.Warn("snapshot resync failed, keeping local copy", zap.Error(err))
		return
	}
	if snap.Dataset.ID != s.CurrentID() {
		s.setL1(&snap)
		s.logger.Info("snapshot resynced from redis", zap.String("dataset_id", snap.Dataset.ID))
	}
}

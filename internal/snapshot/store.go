package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/infra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot - текущий датасет сессии. Records не изменяются после Put.
type Snapshot struct {
	Dataset domain.Dataset      `json:"dataset"`
	Records []domain.CallRecord `json:"records"`
}

// Store держит датасет сессии: L1 в памяти инстанса и L2 в Redis,
// общий для всех инстансов консоли. Без Redis работает только L1.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot

	rdb    *redis.Client // nil - режим одного инстанса
	ttl    time.Duration
	logger *zap.Logger
}

func NewStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.Named("snapshot"),
	}
}

// Put заменяет снапшот целиком и оповещает остальные инстансы.
// Ошибки Redis не фатальны: локальный снапшот уже обновлен.
func (s *Store) Put(ctx context.Context, snap Snapshot) error {
	s.setL1(&snap)

	if s.rdb == nil {
		return nil
	}

	if err := s.saveL2(ctx, snap); err != nil {
		s.logger.Warn("snapshot L2 write failed", zap.String("dataset_id", snap.Dataset.ID), zap.Error(err))
		return nil
	}

	if err := s.rdb.Publish(ctx, infra.RedisChanSnapshotUpdate, snap.Dataset.ID).Err(); err != nil {
		s.logger.Warn("snapshot update signal failed", zap.String("dataset_id", snap.Dataset.ID), zap.Error(err))
	}
	return nil
}

// Current возвращает снапшот; при промахе L1 пытается поднять его из Redis.
func (s *Store) Current(ctx context.Context) (Snapshot, error) {
	if snap := s.getL1(); snap != nil {
		return *snap, nil
	}
	if s.rdb == nil {
		return Snapshot{}, domain.ErrEmptyDataset
	}

	snap, err := s.loadL2(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	s.setL1(&snap)
	return snap, nil
}

// Invalidate сбрасывает L1, следующий Current пойдет в Redis
func (s *Store) Invalidate() {
	s.setL1(nil)
}

// CurrentID - идентификатор датасета в L1 ("" если пусто)
func (s *Store) CurrentID() string {
	if snap := s.getL1(); snap != nil {
		return snap.Dataset.ID
	}
	return ""
}

func (s *Store) getL1() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) setL1(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
}

func (s *Store) saveL2(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	return s.rdb.Set(ctx, infra.RedisKeySnapshot, payload, s.ttl).Err()
}

func (s *Store) loadL2(ctx context.Context) (Snapshot, error) {
	payload, err := s.rdb.Get(ctx, infra.RedisKeySnapshot).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, domain.ErrEmptyDataset
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: redis get: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: corrupted payload: %w", err)
	}
	return snap, nil
}
